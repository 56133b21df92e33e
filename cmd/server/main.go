package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/athioak7/carly/internal/auth"
	"github.com/athioak7/carly/internal/config"
	"github.com/athioak7/carly/internal/detect"
	"github.com/athioak7/carly/internal/logging"
	"github.com/athioak7/carly/internal/store"
	"github.com/athioak7/carly/internal/web"
	"github.com/athioak7/carly/internal/workflow"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_path", cfg.Database.Path,
		"conflict_ttl", cfg.Workflow.ConflictTTL,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Open the database, creating the schema on first run
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	// Import the seed CSV when the vehicles table was just created
	if cfg.Database.SeedCSV != "" {
		if err := st.ImportSeed(ctx, cfg.Database.SeedCSV); err != nil {
			slog.Error("failed to import seed CSV", "path", cfg.Database.SeedCSV, "error", err)
			os.Exit(1)
		}
	}

	// Seed initial accounts when the users table is empty
	gateway := auth.NewSQLGateway(st.DB())
	creds, err := auth.ParseSeedUsers(cfg.Auth.SeedUsers)
	if err != nil {
		slog.Error("invalid AUTH_SEED_USERS", "error", err)
		os.Exit(1)
	}
	if len(creds) > 0 {
		if err := gateway.Seed(ctx, creds); err != nil {
			slog.Error("failed to seed users", "error", err)
			os.Exit(1)
		}
	}

	// Wire the duplicate detector and conflict workflow
	detector := detect.New(st)
	flow := workflow.New(st, detector, cfg.Workflow.ConflictTTL)

	// Create server with config
	server := web.NewServer(cfg, st, flow, gateway)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
