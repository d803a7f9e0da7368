// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package routes

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	config "github.com/zanata/zanata-sub001/configs"
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/server/request_context"
	"github.com/zanata/zanata-sub001/server/utils"
)

var (
	errUnsupportedLocale = errors.New("unsupported locale")
	errEmptyBatch        = errors.New("batch contains no items")
)

type updateRequest struct {
	Items []editor.ItemRequest `json:"items"`
}

type revertRequest struct {
	Items []editor.RevertItem `json:"items"`
}

type batchResponse struct {
	Results []editor.ItemResult `json:"results"`
}

// UpdateTranslations applies a batch of target updates for one locale.
//
// The response always carries one result per submitted item, in order; a
// rejected item reports its error kind while the rest of the batch stands.
func UpdateTranslations(w http.ResponseWriter, r *http.Request) error {
	locale, err := requestedLocale(r)
	if err != nil {
		return err
	}

	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return NewStatusError(http.StatusBadRequest, errEmptyBatch)
	}

	actor := request_context.FromRequest(r).Actor

	start := time.Now()
	results := engine.Apply(r.Context(), locale, actor, req.Items)
	utils.AddServerTimingHeader(w, "apply", time.Since(start), "translation update")

	return writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// RevertTranslations compensates a batch of earlier updates. Each item is
// restored only while its version still equals the version that update
// produced, so edits made in the meantime win.
func RevertTranslations(w http.ResponseWriter, r *http.Request) error {
	locale, err := requestedLocale(r)
	if err != nil {
		return err
	}

	var req revertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return NewStatusError(http.StatusBadRequest, errEmptyBatch)
	}

	actor := request_context.FromRequest(r).Actor

	results := engine.Revert(r.Context(), locale, actor, req.Items)

	return writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// requestedLocale extracts the {locale} path variable and checks it against
// the configured locales.
func requestedLocale(r *http.Request) (string, error) {
	locale := utils.GetPathVar(r, "locale")

	if !slices.Contains(config.Global.Translation.Locales, locale) {
		return "", NewStatusError(http.StatusBadRequest,
			fmt.Errorf("%w: %s", errUnsupportedLocale, locale))
	}

	return locale, nil
}
