package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rickgao/polywhales/internal/app"
	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env vars are enough)")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	// Config is needed before the logger can be built from it.
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting tracker",
		"version", version.Version,
		"commit", version.Commit,
		"store", cfg.Store.Backend,
		"interval", cfg.Sweep.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start tracker", "error", err)
		return 1
	}

	runErr := a.RunService(ctx)

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Close(shutdownCtx)

	if runErr != nil {
		logger.Error("tracker stopped with error", "error", runErr)
		return 1
	}
	logger.Info("tracker stopped")
	return 0
}
