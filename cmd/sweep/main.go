// Command sweep runs a single sweep and prints the same JSON body the
// HTTP trigger returns. It exits non-zero when the sweep fails.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rickgao/polywhales/internal/app"
	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/scheduler"
	"github.com/rickgao/polywhales/internal/server"
)

type errorBody struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Stats   model.SweepStats `json:"stats"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one sweep and returns the process exit code. stdout carries
// the result; logs go to stderr.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (optional, env vars are enough)")
	timeout := fs.Duration("timeout", 10*time.Minute, "maximum sweep duration")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))
	out := json.NewEncoder(stdout)
	out.SetIndent("", "  ")
	emit := func(v any) {
		if err := out.Encode(v); err != nil {
			logger.Error("failed to write result", "error", err)
		}
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		emit(map[string]any{"error": errorBody{Code: server.CodeConfigError, Message: err.Error()}})
		return 1
	}

	logger = app.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build tracker", "error", err)
		emit(map[string]any{"error": errorBody{Code: server.CodeConfigError, Message: err.Error()}})
		return 1
	}

	stats, runErr := a.Scheduler.Run(ctx)

	// Let queued alerts go out before exiting.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	a.Close(drainCtx)

	if runErr != nil {
		code := server.CodeTrackWalletError
		var cfgErr *config.ConfigError
		switch {
		case errors.As(runErr, &cfgErr):
			code = server.CodeConfigError
		case errors.Is(runErr, scheduler.ErrSweepInProgress):
			code = server.CodeSweepInProgress
		}
		emit(map[string]any{"error": errorBody{Code: code, Message: runErr.Error(), Stats: stats}})
		return 1
	}

	message := server.MsgTrackingCompleted
	if stats.Wallets() == 0 {
		message = server.MsgNoWallets
	}
	emit(map[string]any{"data": map[string]any{"message": message, "stats": stats}})
	return 0
}
