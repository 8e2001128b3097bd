package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultStoreBackend     = BackendREST
	DefaultStoreTimeout     = 10 * time.Second
	DefaultDataAPIURL       = "https://data-api.polymarket.com"
	DefaultAPITimeout       = 10 * time.Second
	DefaultTradeLimit       = 10
	DefaultBatchSize        = 5
	DefaultMaxAttempts      = 3
	DefaultBaseDelay        = 1 * time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultTelegramAPIURL   = "https://api.telegram.org"
	DefaultTimeZone         = "UTC"
	DefaultNotifyWorkers    = 4
	DefaultNotifyBufferSize = 64
	DefaultNotifyTimeout    = 10 * time.Second
	DefaultRedisLockKey     = "polywhales:sweep-lock"
	DefaultRedisLockTTL     = 5 * time.Minute
	DefaultKafkaTopic       = "polywhales.activities"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultServerAddr       = ":8080"
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultAllowedOrigin    = "*"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

func (c *Config) applyDefaults() {
	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = DefaultStoreTimeout
	}
	applyDBDefaults(&c.Database)

	// Trade source defaults
	if c.Polymarket.DataAPIURL == "" {
		c.Polymarket.DataAPIURL = DefaultDataAPIURL
	}
	if c.Polymarket.Timeout == 0 {
		c.Polymarket.Timeout = DefaultAPITimeout
	}
	if c.Polymarket.TradeLimit == 0 {
		c.Polymarket.TradeLimit = DefaultTradeLimit
	}

	// Sweep defaults
	if c.Sweep.BatchSize == 0 {
		c.Sweep.BatchSize = DefaultBatchSize
	}
	if c.Sweep.MaxAttempts == 0 {
		c.Sweep.MaxAttempts = DefaultMaxAttempts
	}
	if c.Sweep.BaseDelay == 0 {
		c.Sweep.BaseDelay = DefaultBaseDelay
	}
	if c.Sweep.MaxDelay == 0 {
		c.Sweep.MaxDelay = DefaultMaxDelay
	}

	// Notification defaults
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = DefaultTelegramAPIURL
	}
	if c.Telegram.TimeZone == "" {
		c.Telegram.TimeZone = DefaultTimeZone
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = DefaultNotifyWorkers
	}
	if c.Notify.BufferSize == 0 {
		c.Notify.BufferSize = DefaultNotifyBufferSize
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = DefaultNotifyTimeout
	}

	// Optional integrations
	if c.Redis.LockKey == "" {
		c.Redis.LockKey = DefaultRedisLockKey
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = DefaultRedisLockTTL
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = DefaultAllowedOrigin
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
