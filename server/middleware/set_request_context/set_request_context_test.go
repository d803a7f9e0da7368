// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/server/request_context"
)

func TestWithRequestContext(t *testing.T) {
	t.Parallel()

	var captured *request_context.RequestContext

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = request_context.FromRequest(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-User", "tran")
	req.Header.Set("X-Auth-Permissions", "translation-review, import")
	req.Header.Set("X-Session-Id", "session-1")

	WithRequestContext(httptest.NewRecorder(), req, next)

	require.NotNil(t, captured)
	assert.NotEmpty(t, captured.RequestID)
	assert.Equal(t, http.StatusOK, captured.StatusCode)
	assert.Equal(t, "tran", captured.Actor.Username)
	assert.Equal(t, "session-1", captured.Actor.SessionID)
	assert.True(t, captured.Actor.Can(editor.PermissionTranslationReview))
	assert.True(t, captured.Actor.Can("import"))
	assert.False(t, captured.Actor.Can("admin"))
}

func TestWithRequestContextAnonymous(t *testing.T) {
	t.Parallel()

	var captured *request_context.RequestContext

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = request_context.FromRequest(r)
	})

	WithRequestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), next)

	require.NotNil(t, captured)
	assert.Equal(t, "anonymous", captured.Actor.Username)
	assert.False(t, captured.Actor.Can(editor.PermissionTranslationReview))
}
