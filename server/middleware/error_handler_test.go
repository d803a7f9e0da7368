// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanata/zanata-sub001/server/routes"
)

func TestCatchErrorPassesThroughSuccess(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("X-Test", "ok")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"jobId":1}`))

		return nil
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/x", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ok", w.Header().Get("X-Test"))
	assert.JSONEq(t, `{"jobId":1}`, w.Body.String())
}

func TestCatchErrorMapsStatusError(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, r *http.Request) error {
		return routes.NewStatusError(http.StatusConflict, errors.New("already running"))
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/x", nil))

	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "already running", body["error"])
}

func TestCatchErrorDefaultsToInternalError(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, r *http.Request) error {
		// Buffered output must be discarded when the handler fails.
		_, _ = w.Write([]byte("partial"))

		return errors.New("boom")
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "partial")
}

func TestCatchErrorKeepsHandlerWrittenErrorStatus(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"gone"}`))

		return errors.New("gone")
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"gone"}`, w.Body.String())
}
