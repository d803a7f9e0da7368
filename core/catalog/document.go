// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package catalog

import "strings"

// Document is a container of translation units within a project version.
//
// Documents are never physically removed; replacing or deleting a document
// during re-import only sets the Obsolete flag so that history and diffing
// keep working.
type Document struct {
	ID          int64  `json:"id"`
	ProjectSlug string `json:"project"`
	VersionSlug string `json:"version"`
	Name        string `json:"name"`
	Obsolete    bool   `json:"obsolete"`
}

// TranslationUnit is one immutable source segment of a document.
//
// Content holds the plural forms of the source segment; non-plural segments
// have exactly one form. ContentHash is the normalized digest of Content and
// is what the match-and-reuse engine compares across documents and projects.
type TranslationUnit struct {
	ID          int64    `json:"id"`
	DocumentID  int64    `json:"documentId"`
	Content     []string `json:"content"`
	ContentHash string   `json:"contentHash"`
	Position    int      `json:"position"`
	// Context disambiguates segments with identical content, e.g. a
	// gettext msgctxt or a resource key.
	Context  string `json:"context,omitempty"`
	Obsolete bool   `json:"obsolete"`
}

// PluralCount returns the number of plural forms the unit carries.
func (u *TranslationUnit) PluralCount() int {
	return len(u.Content)
}

// WordCount counts whitespace-separated words across all plural forms.
//
// Statistics consumers receive this on unit-updated events so they can keep
// word-level progress counters without re-fetching unit content.
func (u *TranslationUnit) WordCount() int {
	total := 0
	for _, form := range u.Content {
		total += len(strings.Fields(form))
	}

	return total
}
