// Package main is the entry point for the CheckList API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (defaults, optional YAML file, env vars)
//  2. Create the logger
//  3. Hand both to internal/server and start it
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, internal/service, ...).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Gur1a/CheckList/internal/config"
	"github.com/Gur1a/CheckList/internal/logger"
	"github.com/Gur1a/CheckList/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Until the config is loaded we do not know the log level or format,
	// so early failures go through a plain text logger.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	log := logger.New(os.Stdout, logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slog.SetDefault(log)

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; SQLite creates the file but not its parent.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			log.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
