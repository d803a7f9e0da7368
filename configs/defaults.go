// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

import "time"

const (
	// Default grace before an empty workspace is torn down.
	defaultWorkspaceGraceSeconds = 30
	// Default interval between workspace janitor sweeps.
	defaultJanitorIntervalSeconds = 10
	// Default trailing window for the active-call ceiling.
	defaultActiveWindowSeconds = 1
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8080"

	cfg.Storage.Backend = "memory"
	cfg.Storage.SQLitePath = "./data/catalog.db"

	cfg.Translation.Locales = []string{"fr", "de", "ja"}
	cfg.Translation.RequireReview = false

	cfg.CopyTrans.SameContext = false
	cfg.CopyTrans.SameDocument = false
	cfg.CopyTrans.SameProject = false

	cfg.Workspace.GracePeriod = defaultWorkspaceGraceSeconds * time.Second
	cfg.Workspace.JanitorInterval = defaultJanitorIntervalSeconds * time.Second

	cfg.Limiter.MaxConcurrent = 0
	cfg.Limiter.MaxActive = 0
	cfg.Limiter.ActiveWindow = defaultActiveWindowSeconds * time.Second

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
