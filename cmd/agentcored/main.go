// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// agentcored is the sandbox-resident daemon exposing a uniform HTTP
// surface for driving Claude, Codex, OpenCode, and Amp coding-agent
// backends. It owns the agent registry, per-session event logs, and
// the session manager; the HTTP layer is a thin boundary in front of
// them. See lib/config for how it is configured.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentcore/agentregistry"
	"github.com/bureau-foundation/agentcore/eventlog"
	"github.com/bureau-foundation/agentcore/httpapi"
	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/lib/config"
	"github.com/bureau-foundation/agentcore/lib/persist"
	"github.com/bureau-foundation/agentcore/lib/process"
	"github.com/bureau-foundation/agentcore/lib/telemetry"
	"github.com/bureau-foundation/agentcore/lib/version"
	"github.com/bureau-foundation/agentcore/sessionmanager"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var showVersion bool

	flagSet := pflag.NewFlagSet("agentcored", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to agentcore.yaml (overrides AGENTCORE_CONFIG)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Println("agentcored " + version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	metrics := telemetry.NewRegistry(clk, logger)
	defer metrics.Stop()

	var store *persist.Store
	if cfg.Persist.Enabled {
		store, err = persist.Open(cfg.Persist.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening persistence store: %w", err)
		}
		defer store.Close()
	}

	registry := agentregistry.New(cfg.Paths.Bin, clk)

	builders, serverManager := buildDriverBuilders(registry, cfg, clk, logger)
	if cfg.Server.EagerStart {
		if err := serverManager.EnsureStarted(ctx); err != nil {
			logger.Warn("eager opencode server start failed", "error", err)
		}
	}

	eventCfg := eventlog.Config{Capacity: cfg.EventLog.Capacity, SubscriberBuffer: cfg.EventLog.SubscriberBuffer}
	manager := sessionmanager.New(registry, builders, eventCfg, clk, logger)
	if store != nil {
		var stopPersist func()
		manager, stopPersist = persist.Wrap(manager, store, clk, logger)
		defer stopPersist()
	}
	metrics.WatchSessions(manager)

	installer := &binaryInstaller{registry: registry, binDir: cfg.Paths.Bin}
	router := httpapi.NewRouter(registry, manager, installer, httpapi.AuthConfig{
		Token:          cfg.HTTP.Token,
		Disabled:       cfg.HTTP.AuthDisabled,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	}, logger)

	mux := metrics.Wrap(router)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Address:         cfg.HTTP.Address,
		Handler:         mux,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer cancel()
	manager.Shutdown(shutdownCtx, cfg.HTTP.ShutdownTimeout)

	return <-serveErr
}

func loadConfig(explicitPath string) (*config.Config, error) {
	if explicitPath != "" {
		return config.LoadFile(explicitPath)
	}
	return config.Load()
}
