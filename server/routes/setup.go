// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package routes implements the REST and websocket handlers of the
translation server.

Handlers return errors instead of writing error responses themselves; the
middleware.CatchError wrapper turns those into JSON error bodies. The
websocket handler is the exception, it owns the raw connection.
*/
package routes

import (
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/reuse"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/core/workspace"
)

// Package-level dependencies, wired once at startup.
var (
	catalogStore store.Store
	engine       *editor.Engine
	jobs         *reuse.Runner
	workspaces   *workspace.Registry
)

// Setup wires the handlers to their dependencies. Must be called before the
// router starts serving.
func Setup(st store.Store, eng *editor.Engine, runner *reuse.Runner, registry *workspace.Registry) {
	catalogStore = st
	engine = eng
	jobs = runner
	workspaces = registry
}
