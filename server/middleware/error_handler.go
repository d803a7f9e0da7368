// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package middleware

import (
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"github.com/zanata/zanata-sub001/core/audit"
	"github.com/zanata/zanata-sub001/server/request_context"
	"github.com/zanata/zanata-sub001/server/routes"
)

// CatchError wraps HTTP handlers that return an error, providing centralized
// error handling, response buffering, and request logging.
//
// It operates as follows:
//  1. It times the request for logging purposes.
//  2. It wraps the execution of the given handler, which has the signature
//     `func(w http.ResponseWriter, r *http.Request) error`. The handler's
//     output is buffered using an httptest.ResponseRecorder.
//  3. Any error returned by the handler is stored in the request context.
//
// After the handler runs, it decides on the final response:
//   - If the handler returns an error without writing an HTTP error status
//     code itself (i.e., status < 400), the buffered response is discarded
//     and a JSON error body is sent. A *routes.StatusError selects the
//     status code; anything else is a 500 Internal Server Error.
//   - In all other cases the buffered response is written to the client.
//
// Finally, it logs the completed request details (status, duration, error)
// via the audit package.
func CatchError(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		_ = span.Begin(r.Context())
		defer span.End()

		recorder := httptest.NewRecorder()

		// Execute the handler, capturing its output and any returned error.
		err := handler(recorder, r)

		ctx.RequestError = err

		switch {
		case err != nil && recorder.Code < http.StatusBadRequest:
			// The handler failed without committing an error status itself.
			// Discard the recorder's contents and send a JSON error.
			status := http.StatusInternalServerError

			var statusErr *routes.StatusError
			if errors.As(err, &statusErr) {
				status = statusErr.Code
			}

			ctx.StatusCode = status
			routes.WriteError(w, status, err)

		default:
			// This is a successful response or a handled error. We trust the
			// recorder's output.
			if recorder.Code == 0 {
				recorder.Code = http.StatusOK
			}

			ctx.StatusCode = recorder.Code // Ensure ctx.StatusCode reflects the actual code for logging.
			maps.Copy(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		span.Log()
	}
}
