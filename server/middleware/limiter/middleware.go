// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package limiter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// credentialHeader identifies the API credential of a call. Anonymous
// calls (no header) share the "anonymous" credential bucket.
const (
	credentialHeader     = "X-Auth-User"
	anonymousCredential  = "anonymous"
	rejectionContentType = "application/json; charset=utf-8"
)

// Admission is the middleware enforcing per-credential ceilings. A blocked
// call is answered with 429 and a body distinguishing the two rejections so
// clients can tell "try later" from "request invalid".
func (r *Registry) Admission(w http.ResponseWriter, req *http.Request, next http.Handler) {
	lim := r.Get(credentialFrom(req))
	if lim == nil {
		// Ceilings (0,0): limiting disabled, no bookkeeping.
		next.ServeHTTP(w, req)

		return
	}

	if err := lim.AcquireConcurrent(); err != nil {
		writeRejection(w, err)

		return
	}
	// Deferred so a handler panic or an abandoned caller still frees the
	// slot; concurrency slots must never leak.
	defer lim.Release()

	if err := lim.AcquireActive(); err != nil {
		writeRejection(w, err)

		return
	}

	next.ServeHTTP(w, req)
}

func credentialFrom(req *http.Request) string {
	if user := req.Header.Get(credentialHeader); user != "" {
		return user
	}

	return anonymousCredential
}

func writeRejection(w http.ResponseWriter, err error) {
	kind := RejectActive

	var rejection *RejectionError
	if errors.As(err, &rejection) {
		kind = rejection.Kind
	}

	w.Header().Set("Content-Type", rejectionContentType)
	w.WriteHeader(http.StatusTooManyRequests)

	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"error": string(kind)}); encodeErr != nil {
		log.Err(encodeErr).Msg("Failed to encode rejection response")
	}
}
