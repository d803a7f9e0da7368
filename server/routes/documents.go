// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/server/utils"
)

var errBadDocumentID = errors.New("document id must be an integer")

// ListDocuments returns the non-obsolete documents of a project version.
func ListDocuments(w http.ResponseWriter, r *http.Request) error {
	project := utils.GetPathVar(r, "project")
	version := utils.GetPathVar(r, "version")

	docs, err := catalogStore.DocumentsForVersion(r.Context(), project, version)
	if err != nil {
		return err
	}

	visible := make([]*catalog.Document, 0, len(docs))

	for _, doc := range docs {
		if !doc.Obsolete {
			visible = append(visible, doc)
		}
	}

	return writeJSON(w, http.StatusOK, visible)
}

// unitWithTarget pairs a source unit with its target in the requested
// locale. Target is null for units never translated in that locale.
type unitWithTarget struct {
	Unit   *catalog.TranslationUnit   `json:"unit"`
	Target *catalog.TranslationTarget `json:"target"`
}

// GetTranslations returns the units of a document together with their
// targets for one locale. Editors load this once per document and then keep
// it current from workspace events.
func GetTranslations(w http.ResponseWriter, r *http.Request) error {
	locale, err := requestedLocale(r)
	if err != nil {
		return err
	}

	docID, err := strconv.ParseInt(utils.GetPathVar(r, "id"), 10, 64)
	if err != nil {
		return NewStatusError(http.StatusBadRequest, errBadDocumentID)
	}

	if _, err := catalogStore.Document(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewStatusError(http.StatusNotFound, err)
		}

		return err
	}

	units, err := catalogStore.UnitsForDocument(r.Context(), docID)
	if err != nil {
		return err
	}

	rows := make([]unitWithTarget, 0, len(units))

	for _, unit := range units {
		if unit.Obsolete {
			continue
		}

		row := unitWithTarget{Unit: unit}

		target, err := catalogStore.Target(r.Context(), unit.ID, locale)
		switch {
		case err == nil:
			row.Target = target
		case errors.Is(err, store.ErrNotFound):
			// Never translated in this locale.
		default:
			return err
		}

		rows = append(rows, row)
	}

	return writeJSON(w, http.StatusOK, rows)
}
