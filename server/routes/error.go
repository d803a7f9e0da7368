// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package routes

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// StatusError couples an error with the HTTP status code it should be
// reported as. Handlers return it; middleware.CatchError maps it onto the
// response.
type StatusError struct {
	Code int
	Err  error
}

// NewStatusError wraps err with an HTTP status code.
func NewStatusError(code int, err error) *StatusError {
	return &StatusError{Code: code, Err: err}
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// errorResponse is the JSON body of every error response.
type errorResponse struct {
	Error string `json:"error"`
}

// WriteError sends a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if encodeErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encodeErr != nil {
		log.Err(encodeErr).Msg("Failed to write error response")
	}
}
