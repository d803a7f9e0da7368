// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package memstore is the in-memory store.Store implementation.

It backs unit tests and single-process deployments. A single RWMutex guards
all maps; the compare-and-swap in PersistTarget happens under the write lock,
which makes the version check and the write atomic without per-target locks.
*/
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/store"
)

type targetKey struct {
	unitID int64
	locale string
}

// Store is an in-memory store.Store. The zero value is not ready for use;
// construct instances with New.
type Store struct {
	mu        sync.RWMutex
	documents map[int64]*catalog.Document
	units     map[int64]*catalog.TranslationUnit
	targets   map[targetKey]*catalog.TranslationTarget
	nextDocID int64
	nextUnit  int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		documents: make(map[int64]*catalog.Document),
		units:     make(map[int64]*catalog.TranslationUnit),
		targets:   make(map[targetKey]*catalog.TranslationTarget),
	}
}

// Document implements store.Store.
func (s *Store) Document(_ context.Context, id int64) (*catalog.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	copied := *doc

	return &copied, nil
}

// DocumentsForVersion implements store.Store.
func (s *Store) DocumentsForVersion(_ context.Context, projectSlug, versionSlug string) ([]*catalog.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*catalog.Document

	for _, doc := range s.documents {
		if doc.ProjectSlug == projectSlug && doc.VersionSlug == versionSlug && !doc.Obsolete {
			copied := *doc
			docs = append(docs, &copied)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return docs, nil
}

// SaveDocument implements store.Store.
func (s *Store) SaveDocument(_ context.Context, doc *catalog.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == 0 {
		s.nextDocID++
		doc.ID = s.nextDocID
	} else if doc.ID > s.nextDocID {
		s.nextDocID = doc.ID
	}

	copied := *doc
	s.documents[doc.ID] = &copied

	return nil
}

// Unit implements store.Store.
func (s *Store) Unit(_ context.Context, id int64) (*catalog.TranslationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return copyUnit(unit), nil
}

// UnitsForDocument implements store.Store.
func (s *Store) UnitsForDocument(_ context.Context, documentID int64) ([]*catalog.TranslationUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var units []*catalog.TranslationUnit

	for _, unit := range s.units {
		if unit.DocumentID == documentID && !unit.Obsolete {
			units = append(units, copyUnit(unit))
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Position < units[j].Position })

	return units, nil
}

// SaveUnit implements store.Store.
func (s *Store) SaveUnit(_ context.Context, unit *catalog.TranslationUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit.ID == 0 {
		s.nextUnit++
		unit.ID = s.nextUnit
	} else if unit.ID > s.nextUnit {
		s.nextUnit = unit.ID
	}

	if unit.ContentHash == "" {
		unit.ContentHash = catalog.HashContent(unit.Content)
	}

	s.units[unit.ID] = copyUnit(unit)

	return nil
}

// Target implements store.Store.
func (s *Store) Target(_ context.Context, unitID int64, locale string) (*catalog.TranslationTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[targetKey{unitID: unitID, locale: locale}]
	if !ok {
		return nil, store.ErrNotFound
	}

	return target.Snapshot(), nil
}

// PersistTarget implements store.Store. The version check and the write are
// atomic under the store lock.
func (s *Store) PersistTarget(_ context.Context, target *catalog.TranslationTarget, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := targetKey{unitID: target.UnitID, locale: target.Locale}

	current, ok := s.targets[key]
	if !ok {
		if expectedVersion != 0 {
			return store.ErrVersionMismatch
		}
	} else if current.Version != expectedVersion {
		return store.ErrVersionMismatch
	}

	s.targets[key] = target.Snapshot()

	return nil
}

// CandidatesByHash implements store.Store.
func (s *Store) CandidatesByHash(_ context.Context, hash, locale string) ([]store.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []store.Candidate

	for _, unit := range s.units {
		if unit.ContentHash != hash || unit.Obsolete {
			continue
		}

		target, ok := s.targets[targetKey{unitID: unit.ID, locale: locale}]
		if !ok {
			continue
		}

		doc, ok := s.documents[unit.DocumentID]
		if !ok || doc.Obsolete {
			continue
		}

		docCopy := *doc

		candidates = append(candidates, store.Candidate{
			Unit:     copyUnit(unit),
			Document: &docCopy,
			Target:   target.Snapshot(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Unit.ID < candidates[j].Unit.ID
	})

	return candidates, nil
}

func copyUnit(unit *catalog.TranslationUnit) *catalog.TranslationUnit {
	copied := *unit
	copied.Content = make([]string, len(unit.Content))
	copy(copied.Content, unit.Content)

	return &copied
}
