// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package router

import (
	"github.com/zanata/zanata-sub001/server/middleware"
	"github.com/zanata/zanata-sub001/server/middleware/limiter"
	"github.com/zanata/zanata-sub001/server/middleware/set_request_context"
)

// RegisterMiddleware installs the middleware chain. Admission control sits
// last so rejected requests are still logged and carry a request context.
func (router *Router) RegisterMiddleware(admission *limiter.Registry) {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(middleware.NormalizeURL)                // handle trailing slashes
	router.Use(set_request_context.WithRequestContext) // needed for everything else
	router.Use(middleware.SetResponseHeaders)          // all responses need this

	if admission != nil {
		router.Use(admission.Admission)
	}
}
