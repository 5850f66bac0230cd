package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/api"
	"github.com/kurihiro0119/issue-burndown/internal/burndown"
	"github.com/kurihiro0119/issue-burndown/internal/config"
	"github.com/kurihiro0119/issue-burndown/internal/logging"
	"github.com/kurihiro0119/issue-burndown/internal/metrics"
	"github.com/kurihiro0119/issue-burndown/internal/storage"
	"github.com/kurihiro0119/issue-burndown/internal/storage/file"
	"github.com/kurihiro0119/issue-burndown/internal/storage/postgres"
	"github.com/kurihiro0119/issue-burndown/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run serves the API until ctx is done and returns the process exit code
func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("burndown-api", flag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env-file", ".env", "environment file to load")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		boot := logging.NewWithWriter(stderr, "info", false)
		boot.Error().Err(err).Msg("failed to load configuration")
		return exitError
	}
	logger := logging.NewWithWriter(stderr, cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return exitError
	}

	// Initialize storage
	var store storage.SnapshotStore
	switch cfg.Storage {
	case config.StoragePostgres:
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
	case config.StorageSQLite:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
	default:
		store = file.NewFileStorage(cfg.CachePath)
	}
	if err != nil {
		logger.Error().Err(err).Str("storage", cfg.Storage).Msg("failed to initialize storage")
		return exitError
	}
	defer store.Close()

	m := metrics.New()
	svc := burndown.NewService(store, nil, logger)
	router := api.SetupRoutes(api.NewHandler(svc, cfg.Samples), m, logger)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("storage", cfg.Storage).Msg("starting API server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			return exitError
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return exitError
	}
	logger.Info().Msg("server stopped")
	return exitOK
}
