// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package sqlitestore is the SQLite-backed store.Store implementation.

Plural content is persisted as a JSON array column. The compare-and-swap in
PersistTarget is a single UPDATE guarded by "WHERE version = ?"; a zero
RowsAffected result means another writer got there first and surfaces as
store.ErrVersionMismatch.
*/
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration
	"github.com/rs/zerolog/log"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	project_slug  TEXT NOT NULL,
	version_slug  TEXT NOT NULL,
	name          TEXT NOT NULL,
	obsolete      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(project_slug, version_slug, name)
);
CREATE TABLE IF NOT EXISTS units (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id   INTEGER NOT NULL REFERENCES documents(id),
	content       TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	position      INTEGER NOT NULL,
	context       TEXT NOT NULL DEFAULT '',
	obsolete      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_units_hash ON units(content_hash);
CREATE INDEX IF NOT EXISTS idx_units_document ON units(document_id);
CREATE TABLE IF NOT EXISTS targets (
	unit_id          INTEGER NOT NULL REFERENCES units(id),
	locale           TEXT NOT NULL,
	content          TEXT NOT NULL,
	state            TEXT NOT NULL,
	version          INTEGER NOT NULL,
	source_type      TEXT NOT NULL,
	last_modified    TEXT NOT NULL,
	last_modified_by TEXT NOT NULL,
	PRIMARY KEY(unit_id, locale)
);
`

// Store is a SQLite-backed store.Store. Construct instances with Open.
type Store struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened sqlite catalog store")

	return &Store{db: db, sq: sq.StatementBuilder}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Document implements store.Store.
func (s *Store) Document(ctx context.Context, id int64) (*catalog.Document, error) {
	query, args, err := s.sq.
		Select("id", "project_slug", "version_slug", "name", "obsolete").
		From("documents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanDocument(s.db.QueryRowContext(ctx, query, args...))
}

// DocumentsForVersion implements store.Store.
func (s *Store) DocumentsForVersion(ctx context.Context, projectSlug, versionSlug string) ([]*catalog.Document, error) {
	query, args, err := s.sq.
		Select("id", "project_slug", "version_slug", "name", "obsolete").
		From("documents").
		Where(sq.Eq{"project_slug": projectSlug, "version_slug": versionSlug, "obsolete": false}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*catalog.Document

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// SaveDocument implements store.Store.
func (s *Store) SaveDocument(ctx context.Context, doc *catalog.Document) error {
	if doc.ID == 0 {
		query, args, err := s.sq.
			Insert("documents").
			Columns("project_slug", "version_slug", "name", "obsolete").
			Values(doc.ProjectSlug, doc.VersionSlug, doc.Name, doc.Obsolete).
			ToSql()
		if err != nil {
			return err
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		doc.ID, err = result.LastInsertId()

		return err
	}

	query, args, err := s.sq.
		Update("documents").
		Set("project_slug", doc.ProjectSlug).
		Set("version_slug", doc.VersionSlug).
		Set("name", doc.Name).
		Set("obsolete", doc.Obsolete).
		Where(sq.Eq{"id": doc.ID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	return err
}

// Unit implements store.Store.
func (s *Store) Unit(ctx context.Context, id int64) (*catalog.TranslationUnit, error) {
	query, args, err := s.sq.
		Select("id", "document_id", "content", "content_hash", "position", "context", "obsolete").
		From("units").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanUnit(s.db.QueryRowContext(ctx, query, args...))
}

// UnitsForDocument implements store.Store.
func (s *Store) UnitsForDocument(ctx context.Context, documentID int64) ([]*catalog.TranslationUnit, error) {
	query, args, err := s.sq.
		Select("id", "document_id", "content", "content_hash", "position", "context", "obsolete").
		From("units").
		Where(sq.Eq{"document_id": documentID, "obsolete": false}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []*catalog.TranslationUnit

	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}

		units = append(units, unit)
	}

	return units, rows.Err()
}

// SaveUnit implements store.Store.
func (s *Store) SaveUnit(ctx context.Context, unit *catalog.TranslationUnit) error {
	if unit.ContentHash == "" {
		unit.ContentHash = catalog.HashContent(unit.Content)
	}

	content, err := json.Marshal(unit.Content)
	if err != nil {
		return err
	}

	if unit.ID == 0 {
		query, args, err := s.sq.
			Insert("units").
			Columns("document_id", "content", "content_hash", "position", "context", "obsolete").
			Values(unit.DocumentID, string(content), unit.ContentHash, unit.Position, unit.Context, unit.Obsolete).
			ToSql()
		if err != nil {
			return err
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		unit.ID, err = result.LastInsertId()

		return err
	}

	query, args, err := s.sq.
		Update("units").
		Set("content", string(content)).
		Set("content_hash", unit.ContentHash).
		Set("position", unit.Position).
		Set("context", unit.Context).
		Set("obsolete", unit.Obsolete).
		Where(sq.Eq{"id": unit.ID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	return err
}

// Target implements store.Store.
func (s *Store) Target(ctx context.Context, unitID int64, locale string) (*catalog.TranslationTarget, error) {
	query, args, err := s.sq.
		Select("unit_id", "locale", "content", "state", "version", "source_type", "last_modified", "last_modified_by").
		From("targets").
		Where(sq.Eq{"unit_id": unitID, "locale": locale}).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanTarget(s.db.QueryRowContext(ctx, query, args...))
}

// PersistTarget implements store.Store.
//
// The create path relies on the primary key: a concurrent create loses with
// a constraint violation, which is reported as a version mismatch since the
// competing writer already moved the target past version zero.
func (s *Store) PersistTarget(ctx context.Context, target *catalog.TranslationTarget, expectedVersion int) error {
	content, err := json.Marshal(target.Content)
	if err != nil {
		return err
	}

	lastModified := target.LastModified.UTC().Format(time.RFC3339Nano)

	if expectedVersion == 0 {
		// Does the row exist at all? A stored row at version zero is still
		// updated through the CAS path below.
		if _, err := s.Target(ctx, target.UnitID, target.Locale); errors.Is(err, store.ErrNotFound) {
			query, args, err := s.sq.
				Insert("targets").
				Columns("unit_id", "locale", "content", "state", "version", "source_type", "last_modified", "last_modified_by").
				Values(target.UnitID, target.Locale, string(content), string(target.State),
					target.Version, string(target.SourceType), lastModified, target.LastModifiedBy).
				ToSql()
			if err != nil {
				return err
			}

			if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
				return store.ErrVersionMismatch
			}

			return nil
		}
	}

	query, args, err := s.sq.
		Update("targets").
		Set("content", string(content)).
		Set("state", string(target.State)).
		Set("version", target.Version).
		Set("source_type", string(target.SourceType)).
		Set("last_modified", lastModified).
		Set("last_modified_by", target.LastModifiedBy).
		Where(sq.Eq{"unit_id": target.UnitID, "locale": target.Locale, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return store.ErrVersionMismatch
	}

	return nil
}

// CandidatesByHash implements store.Store.
func (s *Store) CandidatesByHash(ctx context.Context, hash, locale string) ([]store.Candidate, error) {
	query, args, err := s.sq.
		Select(
			"u.id", "u.document_id", "u.content", "u.content_hash", "u.position", "u.context", "u.obsolete",
			"d.id", "d.project_slug", "d.version_slug", "d.name", "d.obsolete",
			"t.unit_id", "t.locale", "t.content", "t.state", "t.version", "t.source_type", "t.last_modified", "t.last_modified_by",
		).
		From("units u").
		Join("documents d ON d.id = u.document_id").
		Join("targets t ON t.unit_id = u.id").
		Where(sq.Eq{"u.content_hash": hash, "u.obsolete": false, "d.obsolete": false, "t.locale": locale}).
		OrderBy("u.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []store.Candidate

	for rows.Next() {
		var (
			unit          catalog.TranslationUnit
			doc           catalog.Document
			target        catalog.TranslationTarget
			unitContent   string
			targetContent string
			modified      string
		)

		if err := rows.Scan(
			&unit.ID, &unit.DocumentID, &unitContent, &unit.ContentHash, &unit.Position, &unit.Context, &unit.Obsolete,
			&doc.ID, &doc.ProjectSlug, &doc.VersionSlug, &doc.Name, &doc.Obsolete,
			&target.UnitID, &target.Locale, &targetContent, &target.State, &target.Version,
			&target.SourceType, &modified, &target.LastModifiedBy,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(unitContent), &unit.Content); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(targetContent), &target.Content); err != nil {
			return nil, err
		}

		target.LastModified, _ = time.Parse(time.RFC3339Nano, modified)

		candidates = append(candidates, store.Candidate{Unit: &unit, Document: &doc, Target: &target})
	}

	return candidates, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*catalog.Document, error) {
	var doc catalog.Document

	if err := row.Scan(&doc.ID, &doc.ProjectSlug, &doc.VersionSlug, &doc.Name, &doc.Obsolete); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}

		return nil, err
	}

	return &doc, nil
}

func scanUnit(row scanner) (*catalog.TranslationUnit, error) {
	var (
		unit    catalog.TranslationUnit
		content string
	)

	if err := row.Scan(&unit.ID, &unit.DocumentID, &content, &unit.ContentHash,
		&unit.Position, &unit.Context, &unit.Obsolete); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}

		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &unit.Content); err != nil {
		return nil, err
	}

	return &unit, nil
}

func scanTarget(row scanner) (*catalog.TranslationTarget, error) {
	var (
		target   catalog.TranslationTarget
		content  string
		modified string
	)

	if err := row.Scan(&target.UnitID, &target.Locale, &content, &target.State,
		&target.Version, &target.SourceType, &modified, &target.LastModifiedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}

		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &target.Content); err != nil {
		return nil, err
	}

	target.LastModified, _ = time.Parse(time.RFC3339Nano, modified)

	return &target, nil
}
