// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is built once at
// process start and passed into components by parameter; nothing reads the
// environment after Load returns.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Producer ProducerConfig `mapstructure:"producer"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the trigger endpoint settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// TriggerSecret is the shared secret the external scheduler presents as a
	// bearer token on POST /internal/dispatch/run.
	TriggerSecret string `mapstructure:"trigger_secret"`
	// SchedulerUserAgent is an alternative caller credential: requests whose
	// User-Agent carries this prefix are accepted without a bearer token.
	SchedulerUserAgent string `mapstructure:"scheduler_user_agent"`
	ReadTimeout        int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout       int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
}

// DispatchConfig holds the batch selector and per-item processor settings.
type DispatchConfig struct {
	// BatchSize caps how many due rows one cycle selects.
	BatchSize int `mapstructure:"batch_size"`
	// MaxAttempts is the retry cutoff; a row claimed this many times that
	// still fails transiently goes terminally failed.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the first retry delay in milliseconds; each further
	// attempt doubles it, capped at BackoffMax.
	BackoffBase int `mapstructure:"backoff_base"`
	BackoffMax  int `mapstructure:"backoff_max"`
	// ItemTimeout bounds one item's processing, gateway call included.
	ItemTimeout int `mapstructure:"item_timeout"` // milliseconds
	// CycleLockTTL bounds how long one cycle may hold the Redis cycle lock.
	CycleLockTTL int `mapstructure:"cycle_lock_ttl"` // milliseconds
	// ReactivateFailed enables the sweep that moves old failed rows back to
	// pending. Off by default; the portal historically required a human reset.
	ReactivateFailed   bool `mapstructure:"reactivate_failed"`
	ReactivateAfterMin int  `mapstructure:"reactivate_after_min"` // minutes
	// Schedule is a cron expression for built-in timer mode; empty means the
	// service only dispatches when the external scheduler hits the endpoint.
	Schedule string `mapstructure:"schedule"`
}

// GatewayConfig holds settings for the outbound delivery channels.
type GatewayConfig struct {
	WhatsApp struct {
		Enabled bool   `mapstructure:"enabled"`
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"whatsapp"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// ProducerConfig holds settings for the overdue-task reminder scan.
type ProducerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Schedule is a cron expression for the built-in scan; empty disables the
	// timer while the scan endpoint stays available.
	Schedule string `mapstructure:"schedule"`
	// ScanLimit caps how many overdue tasks one scan turns into notifications.
	ScanLimit int `mapstructure:"scan_limit"`
}

// AuditConfig controls the Elasticsearch audit trail of delivery attempts.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
