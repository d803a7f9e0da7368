// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package middleware

import (
	"maps"
	"net/http"

	config "github.com/zanata/zanata-sub001/configs"
)

// baseHeaders defines the default headers to be set in responses.
//
// Zanata-Version is added dynamically in SetResponseHeaders.
var baseHeaders = http.Header{
	"Referrer-Policy":        {"no-referrer"},
	"X-Frame-Options":        {"DENY"},
	"X-Content-Type-Options": {"nosniff"},
	// Editor state is always fresh; intermediaries must not cache it.
	"Cache-Control": {"no-store"},
}

// SetResponseHeaders adds default headers to HTTP responses.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	headers.Set("Zanata-Version", config.BuildVersion)

	next.ServeHTTP(w, r)
}
