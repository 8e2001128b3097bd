package config

import "time"

// Config is the root configuration for the tracker service and the sweep CLI.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Database   DBConfig         `yaml:"database"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Notify     NotifyConfig     `yaml:"notify"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Store backends.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StoreConfig selects where tracked wallets and activities live.
// The rest backend talks to a PostgREST (Supabase) endpoint.
type StoreConfig struct {
	Backend    string        `yaml:"backend"`
	URL        string        `yaml:"url"`
	ServiceKey string        `yaml:"service_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DBConfig holds PostgreSQL connection settings for the postgres backend.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`

	// URL overrides the discrete fields when set.
	URL string `yaml:"url"`
}

// PolymarketConfig configures the trade source client.
type PolymarketConfig struct {
	DataAPIURL string        `yaml:"data_api_url"`
	Timeout    time.Duration `yaml:"timeout"`
	TradeLimit int           `yaml:"trade_limit"`
}

// SweepConfig controls batching and retry of a wallet sweep.
type SweepConfig struct {
	BatchSize   int           `yaml:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`

	// Interval triggers sweeps in-process when > 0. Zero leaves scheduling
	// to an external caller of the HTTP trigger or the sweep binary.
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single sweep when > 0. A caller disconnecting from
	// the HTTP trigger does not end the sweep.
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig configures the bot used for alerts and webhook replies.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	APIURL        string `yaml:"api_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	TimeZone      string `yaml:"time_zone"`
}

// NotifyConfig sizes the in-process notification queue.
type NotifyConfig struct {
	Workers    int           `yaml:"workers"`
	BufferSize int           `yaml:"buffer_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RedisConfig enables the distributed sweep lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// KafkaConfig enables the activity event publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
}

// LogConfig configures the slog handler built by the binaries.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotificationsEnabled reports whether alerts can be delivered.
func (c *Config) NotificationsEnabled() bool {
	return c.Telegram.BotToken != ""
}
