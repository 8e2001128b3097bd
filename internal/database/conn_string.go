package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/polywhales/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
// An explicit URL wins over the discrete fields.
func BuildConnString(cfg config.DBConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	u.RawQuery = "sslmode=" + url.QueryEscape(sslMode)

	return u.String()
}
