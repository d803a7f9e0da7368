// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package limiter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doAdmitted(t *testing.T, registry *Registry, credential string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/1", nil)
	if credential != "" {
		req.Header.Set("X-Auth-User", credential)
	}

	recorder := httptest.NewRecorder()

	registry.Admission(recorder, req, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	return recorder
}

func rejectionKind(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	return body["error"]
}

func TestAdmissionPassesUnderCeilings(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{MaxConcurrent: 2, MaxActive: 5}, time.Minute)

	recorder := doAdmitted(t, registry, "alice")
	assert.Equal(t, http.StatusOK, recorder.Code)

	// The in-flight slot was released when the handler returned.
	assert.Equal(t, 0, registry.Get("alice").InFlight())
}

func TestAdmissionRejectsActiveCeiling(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{MaxConcurrent: 10, MaxActive: 2}, time.Minute)

	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "alice").Code)
	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "alice").Code)

	recorder := doAdmitted(t, registry, "alice")
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "TooManyActiveRequests", rejectionKind(t, recorder))
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))

	// Other credentials are unaffected.
	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "bob").Code)
}

func TestAdmissionRejectsConcurrentCeiling(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{MaxConcurrent: 1}, time.Minute)

	// Hold the only slot so the next request hits the ceiling.
	lim := registry.Get("alice")
	require.NoError(t, lim.AcquireConcurrent())

	recorder := doAdmitted(t, registry, "alice")
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "TooManyConcurrentRequests", rejectionKind(t, recorder))

	lim.Release()
	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "alice").Code)
}

func TestAdmissionAnonymousFallback(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{MaxConcurrent: 10, MaxActive: 1}, time.Minute)

	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "").Code)

	// Unauthenticated calls share one bucket.
	recorder := doAdmitted(t, registry, "")
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, 0, registry.Get("anonymous").InFlight())
}

func TestAdmissionDisabledShortCircuits(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{}, time.Minute)

	for range 50 {
		assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "alice").Code)
	}
}

func TestAdmissionReleasesSlotOnPanic(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Ceilings{MaxConcurrent: 1}, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/1", nil)
	req.Header.Set("X-Auth-User", "alice")

	assert.Panics(t, func() {
		registry.Admission(httptest.NewRecorder(), req, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("handler blew up")
		}))
	})

	assert.Equal(t, 0, registry.Get("alice").InFlight())
	assert.Equal(t, http.StatusOK, doAdmitted(t, registry, "alice").Code)
}
