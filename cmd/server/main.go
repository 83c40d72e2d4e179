// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

// Package main is the entry point for the Sprintlens server application.
//
// Sprintlens mirrors a Jira Cloud instance into a local DuckDB warehouse so
// sprint analytics can run against SQL instead of the rate-limited REST API.
// A full sync pulls users, projects and boards, custom field definitions,
// sprints, and issues (with changelogs) in that order.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Initialize DuckDB, create sequences, tables and indexes
//  3. Jira Client: Authenticated REST client for the Jira Cloud and Agile APIs
//  4. Sync Manager: Five-task orchestrator guarded against concurrent runs
//  5. HTTP Server: Sync trigger, health probes and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (e.g. JIRA_API_TOKEN, SERVER_PORT)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Required settings:
//   - JIRA_BASE_URL: Jira Cloud base URL (e.g. https://acme.atlassian.net)
//   - JIRA_EMAIL: account email for Basic auth
//   - JIRA_API_TOKEN: API token paired with the email
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the database connection
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprintlens/sprintlens/internal/api"
	"github.com/sprintlens/sprintlens/internal/config"
	"github.com/sprintlens/sprintlens/internal/database"
	"github.com/sprintlens/sprintlens/internal/logging"
	"github.com/sprintlens/sprintlens/internal/sync"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("jira_url", cfg.Jira.BaseURL).
		Str("db_path", cfg.Database.Path).
		Strs("project_keys", cfg.Jira.ProjectKeys).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	client := sync.NewClient(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.Timeout)
	if err := client.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to reach Jira API (sync will retry on trigger)")
	} else {
		logging.Info().Msg("Connected to Jira successfully")
	}

	manager := sync.NewManager(db, client, &cfg.Jira)
	router := api.NewRouter(api.NewHandler(manager, db, client))

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router.Setup(),
		ReadTimeout: cfg.Server.Timeout,
		// No write deadline: a triggered sync run responds only after all
		// five tasks finish, which can take minutes on large projects.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP server shutdown error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
