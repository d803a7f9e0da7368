// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package reuse implements the match-and-reuse engine ("copy translation").

Given a target unit and locale, the matcher finds existing translations
whose source content hash is identical and whose metadata satisfies the
configured scope constraints, then the runner applies them through the
update engine. The version captured at selection time rides along into the
update, so a concurrent manual edit aborts that single match instead of
being clobbered.
*/
package reuse

import (
	"context"
	"encoding/json"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/lrucache"
	"github.com/zanata/zanata-sub001/core/store"
)

// Scope restricts which candidates a match may come from. All flags off
// means any non-obsolete unit in the whole server qualifies.
type Scope struct {
	SameContext  bool `json:"sameContext"`
	SameDocument bool `json:"sameDocument"`
	SameProject  bool `json:"sameProject"`
}

// candidateCacheSize bounds the per-scan hash lookup cache. Documents
// repeat identical segments often (headers, boilerplate), so one store
// query typically serves many units.
const candidateCacheSize = 512

// Matcher finds reuse candidates for one scan. A Matcher caches hash
// lookups for its lifetime; create one per job so cached candidates share
// the job's point-in-time view.
type Matcher struct {
	store store.Store
	cache *lrucache.Cache
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(st store.Store) *Matcher {
	// Candidate sets are cached as marshalled JSON with transparent
	// compression; repeated boilerplate segments can carry large content.
	cache, err := lrucache.New(candidateCacheSize, true)
	if err != nil {
		// Unreachable with a positive constant size.
		panic(err)
	}

	return &Matcher{store: st, cache: cache}
}

// FindMatch returns the best reuse candidate for translating unit into
// locale, or nil when nothing qualifies.
//
// Eligibility: a different unit with the exact same content hash, target
// state Translated or Approved, non-obsolete unit and document, and -- per
// scope flags -- matching context, document and project. requireApproved
// additionally restricts candidates to Approved targets. Among qualifying
// candidates the one with the highest unit id wins: a deterministic,
// reproducible tie-break, not a quality ranking.
func (m *Matcher) FindMatch(
	ctx context.Context,
	unit *catalog.TranslationUnit,
	doc *catalog.Document,
	locale string,
	scope Scope,
	requireApproved bool,
) (*store.Candidate, error) {
	candidates, err := m.candidates(ctx, unit.ContentHash, locale)
	if err != nil {
		return nil, err
	}

	var best *store.Candidate

	for i := range candidates {
		candidate := &candidates[i]

		if !eligible(candidate, unit, doc, scope, requireApproved) {
			continue
		}

		if best == nil || candidate.Unit.ID > best.Unit.ID {
			best = candidate
		}
	}

	return best, nil
}

func eligible(candidate *store.Candidate, unit *catalog.TranslationUnit, doc *catalog.Document, scope Scope, requireApproved bool) bool {
	if candidate.Unit.ID == unit.ID {
		return false
	}

	if !candidate.Target.State.Reviewed() {
		return false
	}

	if requireApproved && candidate.Target.State != catalog.StateApproved {
		return false
	}

	if candidate.Unit.Obsolete || candidate.Document.Obsolete {
		return false
	}

	if scope.SameContext && candidate.Unit.Context != unit.Context {
		return false
	}

	if scope.SameDocument && candidate.Document.Name != doc.Name {
		return false
	}

	if scope.SameProject && candidate.Document.ProjectSlug != doc.ProjectSlug {
		return false
	}

	return true
}

// candidates returns the candidate set for (hash, locale), consulting the
// scan cache first.
func (m *Matcher) candidates(ctx context.Context, hash, locale string) ([]store.Candidate, error) {
	cacheKey := hash + ":" + locale

	if cached, ok := m.cache.Get(cacheKey); ok {
		raw, ok := cached.([]byte)
		if ok {
			var candidates []store.Candidate
			if err := json.Unmarshal(raw, &candidates); err == nil {
				return candidates, nil
			}
		}
	}

	candidates, err := m.store.CandidatesByHash(ctx, hash, locale)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(candidates); err == nil {
		m.cache.Add(cacheKey, raw)
	}

	return candidates, nil
}
