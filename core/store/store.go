// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package store defines the persistence boundary of the translation engines.

The engines never talk to a database directly; they depend on the Store
interface, which exposes identity lookups plus one compare-and-swap style
write, PersistTarget. Everything the optimistic concurrency protocol needs
is expressed through that single write: callers present the version their
edit was based on, and the store refuses the write with ErrVersionMismatch
when the target has moved on.

Two implementations ship with the server: memstore (in-memory, used by unit
tests and small deployments) and sqlitestore (SQLite via squirrel builders).
*/
package store

import (
	"context"
	"errors"

	"github.com/zanata/zanata-sub001/core/catalog"
)

var (
	// ErrNotFound reports a missing document, unit or target.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionMismatch reports a failed compare-and-swap: the target's
	// current version differs from the version the caller based its write
	// on. Callers re-fetch and retry; the store never retries internally.
	ErrVersionMismatch = errors.New("store: version mismatch")
)

// Candidate is a match candidate row: a unit with identical content hash,
// its owning document, and its translation target in the queried locale.
type Candidate struct {
	Unit     *catalog.TranslationUnit
	Document *catalog.Document
	Target   *catalog.TranslationTarget
}

// Store is the persistence collaborator of the translation engines.
//
// All methods honor context cancellation. Read methods return snapshots;
// mutating a returned value never changes stored state.
type Store interface {
	// Document returns the document with the given id, or ErrNotFound.
	Document(ctx context.Context, id int64) (*catalog.Document, error)

	// DocumentsForVersion lists non-obsolete documents of a project version.
	DocumentsForVersion(ctx context.Context, projectSlug, versionSlug string) ([]*catalog.Document, error)

	// SaveDocument inserts or updates a document, assigning an id on insert.
	SaveDocument(ctx context.Context, doc *catalog.Document) error

	// Unit returns the unit with the given id, or ErrNotFound.
	Unit(ctx context.Context, id int64) (*catalog.TranslationUnit, error)

	// UnitsForDocument lists the non-obsolete units of a document in
	// position order.
	UnitsForDocument(ctx context.Context, documentID int64) ([]*catalog.TranslationUnit, error)

	// SaveUnit inserts or updates a unit, assigning an id on insert. The
	// content hash is computed from the unit content when left empty.
	SaveUnit(ctx context.Context, unit *catalog.TranslationUnit) error

	// Target returns the translation target for (unit, locale), or
	// ErrNotFound when the unit has never been translated in that locale.
	Target(ctx context.Context, unitID int64, locale string) (*catalog.TranslationTarget, error)

	// PersistTarget writes a target if and only if the stored version still
	// equals expectedVersion. A target that was never persisted has version
	// zero; persisting with expectedVersion zero creates it. On conflict the
	// write is discarded and ErrVersionMismatch returned.
	PersistTarget(ctx context.Context, target *catalog.TranslationTarget, expectedVersion int) error

	// CandidatesByHash returns reuse candidates: every unit whose content
	// hash equals hash and that has a target in the given locale. Obsolete
	// units and units of obsolete documents are excluded.
	CandidatesByHash(ctx context.Context, hash, locale string) ([]Candidate, error)
}
