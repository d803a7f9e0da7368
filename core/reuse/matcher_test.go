// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package reuse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/store/memstore"
)

type fixture struct {
	store *memstore.Store
	docA  *catalog.Document // proj/master, app.po
	docB  *catalog.Document // proj/master, extra.po
	docC  *catalog.Document // other/master, app.po
}

// newFixture builds three documents across two projects.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memstore.New(),
		docA:  &catalog.Document{ProjectSlug: "proj", VersionSlug: "master", Name: "app.po"},
		docB:  &catalog.Document{ProjectSlug: "proj", VersionSlug: "master", Name: "extra.po"},
		docC:  &catalog.Document{ProjectSlug: "other", VersionSlug: "master", Name: "app.po"},
	}

	ctx := context.Background()
	for _, doc := range []*catalog.Document{f.docA, f.docB, f.docC} {
		require.NoError(t, f.store.SaveDocument(ctx, doc))
	}

	return f
}

// addUnit saves a unit with a translated French target in the given state.
func (f *fixture) addUnit(t *testing.T, doc *catalog.Document, content, context_ string, state catalog.ContentState, translation string) *catalog.TranslationUnit {
	t.Helper()

	ctx := context.Background()

	unit := &catalog.TranslationUnit{DocumentID: doc.ID, Content: []string{content}, Context: context_}
	require.NoError(t, f.store.SaveUnit(ctx, unit))

	if state != "" {
		require.NoError(t, f.store.PersistTarget(ctx, &catalog.TranslationTarget{
			UnitID: unit.ID, Locale: "fr", Content: []string{translation}, State: state, Version: 1,
		}, 0))
	}

	return unit
}

func TestFindMatchPrefersHighestUnitID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	older := f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour (vieux)")
	newer := f.addUnit(t, f.docC, "hello world", "", catalog.StateTranslated, "bonjour (récent)")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	matcher := NewMatcher(f.store)

	match, err := matcher.FindMatch(context.Background(), subject, f.docA, "fr", Scope{}, false)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, newer.ID, match.Unit.ID)
	assert.Greater(t, newer.ID, older.ID)
}

func TestFindMatchExcludesSelfAndUnreviewed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.addUnit(t, f.docB, "hello world", "", catalog.StateNeedReview, "brouillon")
	subject := f.addUnit(t, f.docA, "hello world", "", catalog.StateTranslated, "bonjour")

	matcher := NewMatcher(f.store)

	// The subject's own target must never count as a candidate.
	match, err := matcher.FindMatch(context.Background(), subject, f.docA, "fr", Scope{}, false)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindMatchRequireApproved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	translated := f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour")
	approved := f.addUnit(t, f.docC, "hello world", "", catalog.StateApproved, "bonjour!")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	matcher := NewMatcher(f.store)
	ctx := context.Background()

	match, err := matcher.FindMatch(ctx, subject, f.docA, "fr", Scope{}, true)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, approved.ID, match.Unit.ID)

	// Without the restriction both qualify and the highest id wins; the
	// Translated one is still eligible.
	match, err = matcher.FindMatch(ctx, subject, f.docA, "fr", Scope{}, false)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.NotEqual(t, translated.ID, match.Unit.ID)
}

func TestFindMatchScopeFlags(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	sameProject := f.addUnit(t, f.docB, "hello world", "menu", catalog.StateTranslated, "bonjour B")
	otherProject := f.addUnit(t, f.docC, "hello world", "button", catalog.StateTranslated, "bonjour C")
	subject := f.addUnit(t, f.docA, "hello world", "menu", "", "")

	matcher := NewMatcher(f.store)
	ctx := context.Background()

	tests := []struct {
		name   string
		scope  Scope
		wantID int64
		none   bool
	}{
		{"unrestricted picks highest id", Scope{}, otherProject.ID, false},
		{"same project", Scope{SameProject: true}, sameProject.ID, false},
		{"same context", Scope{SameContext: true}, sameProject.ID, false},
		{"same document name", Scope{SameDocument: true}, otherProject.ID, false},
		{"same document and project", Scope{SameDocument: true, SameProject: true}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := matcher.FindMatch(ctx, subject, f.docA, "fr", tt.scope, false)
			require.NoError(t, err)

			if tt.none {
				assert.Nil(t, match)

				return
			}

			require.NotNil(t, match)
			assert.Equal(t, tt.wantID, match.Unit.ID)
		})
	}
}

func TestFindMatchExcludesObsolete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	obsolete := f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour")
	obsolete.Obsolete = true
	require.NoError(t, f.store.SaveUnit(ctx, obsolete))

	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	matcher := NewMatcher(f.store)

	match, err := matcher.FindMatch(ctx, subject, f.docA, "fr", Scope{}, false)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindMatchNormalizedWhitespace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	source := f.addUnit(t, f.docB, "hello   world", "", catalog.StateTranslated, "bonjour")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	matcher := NewMatcher(f.store)

	match, err := matcher.FindMatch(context.Background(), subject, f.docA, "fr", Scope{}, false)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, source.ID, match.Unit.ID)
}
