// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package catalog

import "time"

// ContentState is the review lifecycle state of a translation target.
type ContentState string

const (
	StateNew        ContentState = "New"
	StateNeedReview ContentState = "NeedReview"
	StateTranslated ContentState = "Translated"
	StateApproved   ContentState = "Approved"
	StateRejected   ContentState = "Rejected"
)

// SourceType records where a target's current content came from.
type SourceType string

const (
	SourceManual      SourceType = "manual"
	SourceImported    SourceType = "imported"
	SourceCopyMatched SourceType = "copy-matched"
	SourceMerged      SourceType = "merged"
)

// transitions is the set of allowed forward moves between states.
//
// Reviewer actions can move backward (e.g. Approved -> NeedReview reopens a
// review), so no transition here is monotonic. Any state may additionally be
// cleared back to New; that is handled by CanTransition directly rather than
// listed per state.
var transitions = map[ContentState][]ContentState{
	StateNew:        {StateNeedReview, StateTranslated, StateApproved},
	StateNeedReview: {StateTranslated, StateApproved, StateRejected},
	StateTranslated: {StateApproved, StateRejected, StateNeedReview},
	StateApproved:   {StateNeedReview, StateRejected},
	StateRejected:   {StateNeedReview, StateTranslated, StateApproved},
}

// Valid reports whether s is one of the known content states.
func (s ContentState) Valid() bool {
	switch s {
	case StateNew, StateNeedReview, StateTranslated, StateApproved, StateRejected:
		return true
	default:
		return false
	}
}

// Reviewed reports whether s represents content that passed review-quality
// translation, i.e. Translated or Approved.
func (s ContentState) Reviewed() bool {
	return s == StateTranslated || s == StateApproved
}

// CanTransition reports whether a target in state s may move to next.
//
// Staying in the same state is always allowed (content-only edits), and any
// state may be explicitly cleared back to New.
func (s ContentState) CanTransition(next ContentState) bool {
	if s == next || next == StateNew {
		return true
	}

	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}

	return false
}

// TranslationTarget is the per-locale translation of a unit.
//
// Version increases by exactly 1 on every accepted mutation and is the basis
// of the optimistic concurrency protocol: writers present the version they
// based their edit on, and the store rejects the write when it no longer
// matches.
type TranslationTarget struct {
	UnitID         int64        `json:"unitId"`
	Locale         string       `json:"locale"`
	Content        []string     `json:"content"`
	State          ContentState `json:"state"`
	Version        int          `json:"version"`
	SourceType     SourceType   `json:"sourceType"`
	LastModified   time.Time    `json:"lastModified"`
	LastModifiedBy string       `json:"lastModifiedBy"`
}

// HasEmptyForm reports whether any plural form of the target is empty.
//
// Incomplete plural content keeps a target out of Translated/Approved; the
// update engine downgrades such proposals to NeedReview.
func (t *TranslationTarget) HasEmptyForm() bool {
	if len(t.Content) == 0 {
		return true
	}

	for _, form := range t.Content {
		if form == "" {
			return true
		}
	}

	return false
}

// Snapshot returns a deep copy of the target, safe to hand to other
// goroutines (event consumers, result lists) while the original keeps
// mutating under store control.
func (t *TranslationTarget) Snapshot() *TranslationTarget {
	copied := *t
	copied.Content = make([]string, len(t.Content))
	copy(copied.Content, t.Content)

	return &copied
}
