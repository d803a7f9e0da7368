// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	if strings.ReplaceAll(now.Format("15:04:05"), ":", "") != maketime(now) {
		t.Error("time part incorrect")
	}
}
