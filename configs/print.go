// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

import (
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

// print logs the effective configuration at startup.
func (cfg *ServerConfig) print() {
	rendered, err := yaml.MarshalWithOptions(cfg, GetDurationEncoderOption())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to render configuration for printing")

		return
	}

	log.Info().Msgf("Effective configuration:\n%s", rendered)
}
