// Package main is the entry point for the authgate service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/authgate/internal/auth"
	"github.com/avolkov/authgate/internal/config"
	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/server"
	"github.com/avolkov/authgate/internal/store"
	"github.com/avolkov/authgate/internal/token"
)

// shutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)

	st := initStore(cfg, logger)
	defer func() { _ = st.Close() }()

	metrics := observability.NewMetrics("authgate")

	users := auth.NewService(st,
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
	)

	tokens, err := token.NewService(&cfg.Token,
		token.WithLogger(logger),
		token.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("failed to initialize token service", observability.Error(err))
	}

	srv := server.New(cfg, users, tokens,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	)

	run(srv, logger)
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("authgate version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadConfig loads and validates the configuration.
func loadConfig(path string, logger observability.Logger) *config.Config {
	logger.Info("starting authgate",
		observability.String("version", version),
		observability.String("config", path),
	)

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}
	return cfg
}

// initStore creates the credential store backend.
func initStore(cfg *config.Config, logger observability.Logger) store.Store {
	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(cfg.Store.Redis, store.WithRedisStoreLogger(logger))
		if err != nil {
			logger.Fatal("failed to connect to redis", observability.Error(err))
		}
		logger.Info("using redis credential store")
		return st
	default:
		logger.Info("using in-memory credential store")
		return store.NewMemoryStore()
	}
}

// run starts the server and blocks until a shutdown signal arrives.
func run(srv *server.Server, logger observability.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(context.Background())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", observability.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received",
			observability.String("signal", sig.String()),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
