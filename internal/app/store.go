package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/database"
	"github.com/rickgao/polywhales/internal/storage"
	"github.com/rickgao/polywhales/internal/storage/memory"
	"github.com/rickgao/polywhales/internal/storage/postgres"
	"github.com/rickgao/polywhales/internal/storage/rest"
	"github.com/rickgao/polywhales/internal/version"
)

// OpenStore connects the configured storage backend. The postgres backend
// applies pending migrations before returning.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendREST:
		logger.Info("using rest store", "url", cfg.Store.URL, "key", config.MaskSecret(cfg.Store.ServiceKey))
		return rest.New(cfg.Store.URL, cfg.Store.ServiceKey,
			rest.WithTimeout(cfg.Store.Timeout),
			rest.WithLogger(logger),
			rest.WithUserAgent(version.UserAgent()),
		), nil

	case config.BackendPostgres:
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.New(pool), nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil

	default:
		return nil, &config.ConfigError{Field: "store.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Store.Backend)}
	}
}
