// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package router

import (
	"github.com/zanata/zanata-sub001/server/middleware"
	"github.com/zanata/zanata-sub001/server/routes"
)

// DefineRoutes sets up all the routes for the application using our custom
// Router.
//
// It returns a *Router without middleware.
func (router *Router) DefineRoutes() {
	// Document and translation retrieval
	router.HandleFunc("GET /api/projects/{project}/versions/{version}/documents",
		middleware.CatchError(routes.ListDocuments))
	router.HandleFunc("GET /api/documents/{id}/translations/{locale}",
		middleware.CatchError(routes.GetTranslations))

	// Translation updates
	router.HandleFunc("PUT /api/projects/{project}/versions/{version}/translations/{locale}",
		middleware.CatchError(routes.UpdateTranslations))
	router.HandleFunc("POST /api/projects/{project}/versions/{version}/translations/{locale}/revert",
		middleware.CatchError(routes.RevertTranslations))

	// Copy translation jobs
	router.HandleFunc("POST /api/projects/{project}/versions/{version}/copy-translations",
		middleware.CatchError(routes.StartCopyTranslations))
	router.HandleFunc("GET /api/jobs/{id}", middleware.CatchError(routes.JobProgress))
	router.HandleFunc("POST /api/jobs/{id}/cancel", middleware.CatchError(routes.CancelJob))

	// Workspace event stream. Registered without CatchError: the websocket
	// upgrade needs the raw connection, not a buffering recorder.
	router.HandleFunc("GET /api/workspaces/{project}/{version}/{locale}/events",
		routes.WorkspaceEvents)
}
