// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package request_context provides per-request state management for HTTP handlers.

This package is separate because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"
	"strings"

	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/idgen"
)

// Authentication headers set by the fronting auth proxy.
const (
	userHeader        = "X-Auth-User"
	permissionsHeader = "X-Auth-Permissions"
	sessionHeader     = "X-Session-Id"

	anonymousUsername = "anonymous"
)

// RequestContext carries request-scoped data through the middleware chain.
//
// This data survives the entire lifetime of a single HTTP request and is safe
// for concurrent access from multiple goroutines handling the same request.
type RequestContext struct {
	// RequestID is an identifier for tracing requests.
	RequestID string

	// Holds any critical error encountered during request processing.
	//
	// Automatically populated by middleware.CatchError when handlers return
	// errors, which interrupts normal response handling and sends an error
	// response instead.
	RequestError error

	// HTTP status code to be sent in the response. Defaults to 200 OK.
	StatusCode int

	// Actor is the authenticated identity performing this request.
	Actor editor.Actor
}

// requestContextKeyType defines a unique type for a RequestContext key.
type requestContextKeyType struct{}

// requestContextKey is a unique key used to access RequestContext
// values from a context.Context.
var requestContextKey = requestContextKeyType{}

// WithRequestContext initializes a new request context and attaches it to
// the parent context.
//
// This is called once per request, early in the middleware chain.
func WithRequestContext(ctx context.Context, r *http.Request) context.Context {
	rc := RequestContext{
		RequestID:  idgen.Make(),
		StatusCode: http.StatusOK,
		Actor:      actorFromHeaders(r),
	}

	return context.WithValue(ctx, requestContextKey, &rc)
}

// actorFromHeaders builds the acting identity from the auth proxy headers.
// Requests without credentials act as the anonymous user with no
// permissions.
func actorFromHeaders(r *http.Request) editor.Actor {
	username := r.Header.Get(userHeader)
	if username == "" {
		username = anonymousUsername
	}

	permissions := make(map[string]bool)

	for _, permission := range strings.Split(r.Header.Get(permissionsHeader), ",") {
		permission = strings.TrimSpace(permission)
		if permission != "" {
			permissions[permission] = true
		}
	}

	return editor.Actor{
		Username:    username,
		SessionID:   r.Header.Get(sessionHeader),
		Permissions: permissions,
	}
}

// FromContext extracts the RequestContext from a context, always returning
// a valid pointer.
//
// If no context is found, returns a zero-value instance.
func FromContext(ctx context.Context) *RequestContext {
	if v := ctx.Value(requestContextKey); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{}
}

// FromRequest is a convenience wrapper for extracting RequestContext
// directly from HTTP requests.
//
// Prefer this in handlers that have access to the *http.Request object.
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
