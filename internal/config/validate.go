package config

import (
	"fmt"
	"time"
)

// ConfigError reports a missing or invalid setting. It is fatal for a sweep.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func required(field string) error {
	return &ConfigError{Field: field, Reason: "is required"}
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendREST:
		if c.Store.URL == "" {
			return required("store.url")
		}
		if c.Store.ServiceKey == "" {
			return required("store.service_key")
		}
	case BackendPostgres:
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	case BackendMemory:
	default:
		return &ConfigError{Field: "store.backend", Reason: fmt.Sprintf("must be one of rest, postgres, memory, got %q", c.Store.Backend)}
	}

	if c.Polymarket.TradeLimit < 1 {
		return &ConfigError{Field: "polymarket.trade_limit", Reason: "must be >= 1"}
	}
	if c.Sweep.BatchSize < 1 {
		return &ConfigError{Field: "sweep.batch_size", Reason: "must be >= 1"}
	}
	if c.Sweep.MaxAttempts < 1 {
		return &ConfigError{Field: "sweep.max_attempts", Reason: "must be >= 1"}
	}
	if c.Sweep.Interval < 0 {
		return &ConfigError{Field: "sweep.interval", Reason: "must be >= 0"}
	}
	if c.Sweep.Timeout < 0 {
		return &ConfigError{Field: "sweep.timeout", Reason: "must be >= 0"}
	}
	if c.Notify.Workers < 1 {
		return &ConfigError{Field: "notify.workers", Reason: "must be >= 1"}
	}
	if _, err := time.LoadLocation(c.Telegram.TimeZone); err != nil {
		return &ConfigError{Field: "telegram.time_zone", Reason: fmt.Sprintf("unknown location %q", c.Telegram.TimeZone)}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "log.format", Reason: fmt.Sprintf("must be text or json, got %q", c.Log.Format)}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL != "" {
		return nil
	}
	if db.Host == "" {
		return required(prefix + ".host")
	}
	if db.Name == "" {
		return required(prefix + ".name")
	}
	if db.User == "" {
		return required(prefix + ".user")
	}
	if db.Password == "" {
		return required(prefix + ".password")
	}
	if db.MaxConns < 1 {
		return &ConfigError{Field: prefix + ".max_conns", Reason: "must be >= 1"}
	}
	if db.MinConns < 0 {
		return &ConfigError{Field: prefix + ".min_conns", Reason: "must be >= 0"}
	}
	if db.MinConns > db.MaxConns {
		return &ConfigError{Field: prefix + ".min_conns", Reason: fmt.Sprintf("(%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns)}
	}
	return nil
}
