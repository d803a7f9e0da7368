// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Zanata is a collaborative translation state engine: version-checked
translation updates, content-hash match-and-reuse, workspace broadcast and
per-credential admission control behind a REST and websocket API.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/zanata/zanata-sub001/configs"
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/reuse"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/core/store/memstore"
	"github.com/zanata/zanata-sub001/core/store/sqlitestore"
	"github.com/zanata/zanata-sub001/core/workspace"
	"github.com/zanata/zanata-sub001/server/middleware/limiter"
	"github.com/zanata/zanata-sub001/server/router"
	"github.com/zanata/zanata-sub001/server/routes"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

// main is the entry point of the application.
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run orchestrates the application startup and graceful shutdown.
func run() error {
	config.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	catalogStore, closeStore, err := chooseStore()
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}

	defer closeStore()

	workspaces := workspace.NewRegistry(config.Global.Workspace.GracePeriod)
	workspaces.StartJanitor(config.Global.Workspace.JanitorInterval)

	defer workspaces.Stop()

	engine := editor.New(catalogStore, workspaces)
	runner := reuse.NewRunner(catalogStore, engine)

	routes.Setup(catalogStore, engine, runner, workspaces)

	admission := limiter.NewRegistry(limiter.Ceilings{
		MaxConcurrent: config.Global.Limiter.MaxConcurrent,
		MaxActive:     config.Global.Limiter.MaxActive,
	}, config.Global.Limiter.ActiveWindow)

	// Admission ceilings follow the configuration file without a restart.
	stopWatch, err := config.Global.Watch(func(fresh config.ServerConfig) {
		admission.Reconfigure(limiter.Ceilings{
			MaxConcurrent: fresh.Limiter.MaxConcurrent,
			MaxActive:     fresh.Limiter.MaxActive,
		})
	})
	if err != nil {
		log.Warn().Err(err).Msg("Configuration hot reload unavailable")
	} else {
		defer stopWatch()
	}

	router := router.NewRouter()
	router.DefineRoutes()
	router.RegisterMiddleware(admission)

	// Create http.Server instance. No WriteTimeout: workspace websocket
	// connections are long-lived.
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Channel to listen for server errors
	serverErrors := make(chan error, 1)

	// Start main server in a goroutine
	go func() {
		listener, err := chooseListener()
		if err != nil {
			serverErrors <- fmt.Errorf("failed to create listener: %w", err)

			return
		}

		serverErrors <- server.Serve(listener)
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until a shutdown signal or a server error is received
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case s := <-quit:
		log.Info().Str("signal", s.String()).Msg("Shutdown signal received")
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)

		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
	}

	log.Info().Msg("Server exited gracefully")

	return nil
}

// chooseStore opens the configured storage backend and returns it together
// with its cleanup function.
func chooseStore() (store.Store, func(), error) {
	switch config.Global.Storage.Backend {
	case "sqlite":
		s, err := sqlitestore.Open(config.Global.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		log.Info().Str("path", config.Global.Storage.SQLitePath).Msg("Using SQLite storage")

		cleanup := func() {
			if err := s.Close(); err != nil {
				log.Err(err).Msg("Failed to close SQLite store")
			}
		}

		return s, cleanup, nil

	default:
		log.Info().Msg("Using in-memory storage")

		return memstore.New(), func() {}, nil
	}
}

func chooseListener() (net.Listener, error) {
	// Check if we should use a Unix domain socket
	if config.Global.Basic.UnixSocket != "" {
		unixAddr := config.Global.Basic.UnixSocket

		unixListener, err := (&net.ListenConfig{}).Listen(context.Background(), "unix", unixAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start Unix socket listener on %v: %w", unixAddr, err)
		}

		// Assign the listener and log where we are listening
		log.Info().
			Str("address", unixAddr).
			Msg("Listening on Unix domain socket")

		return unixListener, nil
	}

	// Otherwise, fall back to TCP listener
	addr := net.JoinHostPort(config.Global.Basic.Host, config.Global.Basic.Port)

	tcpListener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start TCP listener on %v: %w", addr, err)
	}

	addr = tcpListener.Addr().String()

	// Extract the port for logging
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		_ = tcpListener.Close()

		return nil, fmt.Errorf("failed to parse listener address %q: %w", addr, err)
	}

	// Log the address and convenient URL for local development
	log.Info().
		Str("address", addr).
		Str("port", port).
		Str("url", fmt.Sprintf("http://localhost:%v/", port)).
		Msg("Listening on address")

	return tcpListener, nil
}
