// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// formSeparator keeps plural forms from colliding in the digest, e.g.
// ["ab", "c"] must not hash equal to ["a", "bc"]. The unit separator control
// character cannot appear in translatable text.
const formSeparator = "\x1f"

// HashContent computes the normalized content hash of a unit's plural forms.
//
// Whitespace runs collapse to a single space and leading/trailing whitespace
// is dropped before hashing, so segments that differ only in formatting or
// markup indentation still match across documents.
func HashContent(content []string) string {
	normalized := make([]string, len(content))
	for i, form := range content {
		normalized[i] = normalizeWhitespace(form)
	}

	sum := sha256.Sum256([]byte(strings.Join(normalized, formSeparator)))

	return hex.EncodeToString(sum[:])
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
