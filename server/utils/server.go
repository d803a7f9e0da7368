// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// AddServerTimingHeader writes a Server-Timing header.
func AddServerTimingHeader(w http.ResponseWriter, name string, duration time.Duration, description string) {
	w.Header().Add("Server-Timing", fmt.Sprintf(
		"%s;dur=%s;desc=\"%s\"",
		name,
		strconv.FormatFloat(float64(duration.Nanoseconds())/float64(time.Millisecond), 'f', -1, 64),
		description,
	))
}
