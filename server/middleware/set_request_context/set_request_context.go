// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

// Package set_request_context attaches the per-request context early in the
// middleware chain. It lives in its own package to keep the import graph
// acyclic.
package set_request_context

import (
	"net/http"

	"github.com/zanata/zanata-sub001/server/request_context"
)

// WithRequestContext initializes the request context for every request.
func WithRequestContext(w http.ResponseWriter, r *http.Request, next http.Handler) {
	next.ServeHTTP(w, r.WithContext(request_context.WithRequestContext(r.Context(), r)))
}
