// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// validation errors.
var (
	errUnknownStorageBackend = errors.New("unknown storage backend (want \"memory\" or \"sqlite\")")
	errEmptySQLitePath       = errors.New("sqlitePath cannot be empty when backend is \"sqlite\"")
	errNoLocales             = errors.New("at least one translation locale is required")
	errNegativeCeiling       = errors.New("limiter ceilings cannot be negative")
	errNonPositiveWindow     = errors.New("limiter activeWindow must be positive")
	errNonPositiveGrace      = errors.New("workspace gracePeriod and janitorInterval must be positive")
)

// validate checks the configuration and canonicalizes locale tags.
func (cfg *ServerConfig) validate() error {
	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return errEmptySQLitePath
		}
	default:
		return errUnknownStorageBackend
	}

	if len(cfg.Translation.Locales) == 0 {
		return errNoLocales
	}

	// Canonicalize locale tags; a malformed tag is a configuration error.
	for i, locale := range cfg.Translation.Locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("invalid locale %q: %w", locale, err)
		}

		canonical := tag.String()
		if canonical != locale {
			log.Debug().
				Str("configured", locale).
				Str("canonical", canonical).
				Msg("Canonicalized locale tag")

			cfg.Translation.Locales[i] = canonical
		}
	}

	if cfg.Limiter.MaxConcurrent < 0 || cfg.Limiter.MaxActive < 0 {
		return errNegativeCeiling
	}

	if cfg.Limiter.ActiveWindow <= 0 {
		return errNonPositiveWindow
	}

	if cfg.Workspace.GracePeriod <= 0 || cfg.Workspace.JanitorInterval <= 0 {
		return errNonPositiveGrace
	}

	return nil
}
