// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Global exposes the server configuration loaded at startup.
//
// Live reload does not mutate Global; reload consumers subscribe through
// Watch and receive fresh ServerConfig values instead.
var Global ServerConfig

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Basic struct {
		Host       string `env:"ZANATA_HOST,overwrite" yaml:"host"`
		Port       string `env:"ZANATA_PORT,overwrite" yaml:"port"`
		UnixSocket string `env:"ZANATA_UNIXSOCKET" yaml:"unixSocket"`
	} `yaml:"basic"`

	Storage struct {
		// Backend selects the catalog store: "memory" or "sqlite".
		Backend    string `env:"ZANATA_STORAGE_BACKEND,overwrite" yaml:"backend"`
		SQLitePath string `env:"ZANATA_STORAGE_SQLITE_PATH,overwrite" yaml:"sqlitePath"`
	} `yaml:"storage"`

	Translation struct {
		// Locales supported for translation, as BCP 47 tags.
		Locales []string `env:"ZANATA_LOCALES,overwrite" yaml:"locales"`

		// RequireReview demands Approved-quality sources for copy
		// translation and writes matches as Approved.
		RequireReview bool `env:"ZANATA_REQUIRE_REVIEW,overwrite" yaml:"requireReview"`
	} `yaml:"translation"`

	CopyTrans struct {
		SameContext  bool `env:"ZANATA_COPYTRANS_SAME_CONTEXT,overwrite" yaml:"sameContext"`
		SameDocument bool `env:"ZANATA_COPYTRANS_SAME_DOCUMENT,overwrite" yaml:"sameDocument"`
		SameProject  bool `env:"ZANATA_COPYTRANS_SAME_PROJECT,overwrite" yaml:"sameProject"`
	} `yaml:"copyTrans"`

	Workspace struct {
		GracePeriod     time.Duration `env:"ZANATA_WORKSPACE_GRACE_PERIOD,overwrite" yaml:"gracePeriod"`
		JanitorInterval time.Duration `env:"ZANATA_WORKSPACE_JANITOR_INTERVAL,overwrite" yaml:"janitorInterval"`
	} `yaml:"workspace"`

	Limiter struct {
		// MaxConcurrent and MaxActive are the per-credential ceilings.
		// Both zero disables admission control.
		MaxConcurrent int           `env:"ZANATA_LIMITER_MAX_CONCURRENT,overwrite" yaml:"maxConcurrent"`
		MaxActive     int           `env:"ZANATA_LIMITER_MAX_ACTIVE,overwrite" yaml:"maxActive"`
		ActiveWindow  time.Duration `env:"ZANATA_LIMITER_ACTIVE_WINDOW,overwrite" yaml:"activeWindow"`
	} `yaml:"limiter"`

	Log struct {
		Level   string   `env:"ZANATA_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"ZANATA_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"ZANATA_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	// configFilePath remembers where the configuration was loaded from so
	// Watch can observe the same file.
	configFilePath string
}

// LoadConfig loads the configuration from defaults, YAML file and
// environment variables, in increasing precedence.
func (cfg *ServerConfig) LoadConfig() error {
	configFilePath := resolveConfigFilePath()

	return cfg.loadFrom(configFilePath, true)
}

// loadFrom performs one full configuration read. setupLog is false during
// live reloads, which must not reopen log outputs.
func (cfg *ServerConfig) loadFrom(configFilePath string, setupLog bool) error {
	cfg.SetDefaults()
	cfg.configFilePath = configFilePath

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if setupLog {
		cfg.setupLogging()
		cfg.print()
	}

	return nil
}

// resolveConfigFilePath determines the config file path with the
// precedence: -config flag, ZANATA_CONFIGFILE, ./config.yaml (falling back
// to ./config.yml).
func resolveConfigFilePath() string {
	parsedConfigFlagValue := parseCommandLineArgs()

	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	if configFlagUserSet {
		return parsedConfigFlagValue
	}

	if envVar := os.Getenv("ZANATA_CONFIGFILE"); envVar != "" {
		return envVar
	}

	configFilePath := parsedConfigFlagValue
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		ymlPath := "./config.yml"
		if _, statErr := os.Stat(ymlPath); statErr == nil {
			configFilePath = ymlPath
		}
	}

	return configFilePath
}

var configFlagValue string

// parseCommandLineArgs registers and parses the -config flag exactly once.
func parseCommandLineArgs() string {
	if flag.Lookup("config") == nil {
		flag.StringVar(&configFlagValue, "config", "./config.yaml", "Path to the configuration file")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	return configFlagValue
}
