// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceDelay coalesces the burst of filesystem events editors produce
// when saving a file.
const debounceDelay = 250 * time.Millisecond

// Watch observes the configuration file and invokes onChange with a fully
// re-read and validated ServerConfig whenever it changes. Invalid reloads
// are logged and dropped; the running configuration stays in effect.
//
// The returned stop function terminates the watcher.
func (cfg *ServerConfig) Watch(onChange func(ServerConfig)) (func(), error) {
	if cfg.configFilePath == "" {
		// Nothing to watch; hot reload is simply unavailable.
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	// Watch the directory rather than the file: editors and config
	// management tools typically replace the file via rename, which would
	// otherwise drop the watch.
	dir := filepath.Dir(cfg.configFilePath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	configFilePath := cfg.configFilePath
	done := make(chan struct{})

	go func() {
		var debounce *time.Timer

		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != filepath.Clean(configFilePath) {
					continue
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				if debounce != nil {
					debounce.Stop()
				}

				debounce = time.AfterFunc(debounceDelay, func() {
					reload(configFilePath, onChange)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				log.Warn().Err(err).Msg("Config watcher error")

			case <-done:
				return
			}
		}
	}()

	log.Info().Str("path", configFilePath).Msg("Watching configuration file for changes")

	stop := func() {
		close(done)
		_ = watcher.Close()
	}

	return stop, nil
}

func reload(configFilePath string, onChange func(ServerConfig)) {
	var fresh ServerConfig

	if err := fresh.loadFrom(configFilePath, false); err != nil {
		log.Warn().Err(err).Str("path", configFilePath).
			Msg("Ignoring invalid configuration reload")

		return
	}

	log.Info().Str("path", configFilePath).Msg("Configuration reloaded")

	onChange(fresh)
}
