// Package config provides configuration management for pmsched.
package config

import (
	"time"
)

// Config is the root configuration structure for pmsched.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Priority   PriorityConfig   `mapstructure:"priority"`
	Filters    FiltersConfig    `mapstructure:"filters"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind the server to
	Host string `mapstructure:"host"`

	// Port to listen on
	Port int `mapstructure:"port"`

	// Enable CORS
	CORS CORSConfig `mapstructure:"cors"`

	// Request timeouts
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Maximum request body size in bytes
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

// CORSConfig holds CORS settings for the dashboard API.
type CORSConfig struct {
	// Enable CORS
	Enabled bool `mapstructure:"enabled"`

	// Allowed origins (use ["*"] for all)
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Max age for preflight cache
	MaxAge time.Duration `mapstructure:"max_age"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string `mapstructure:"path"`

	// Enable WAL mode (recommended)
	WALMode bool `mapstructure:"wal_mode"`

	// Cache size in KB (negative for KB, positive for pages)
	CacheSize int `mapstructure:"cache_size"`

	// Busy timeout
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// Enable foreign keys
	ForeignKeys bool `mapstructure:"foreign_keys"`

	// Maximum open connections
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Maximum idle connections
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// Connection max lifetime
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulingConfig holds the knobs of the weekly generation engine.
type SchedulingConfig struct {
	// Target number of schedule entries per week
	WeeklyTarget int `mapstructure:"weekly_target"`

	// How far past the week start an item may come due and still count
	LookaheadDays int `mapstructure:"lookahead_days"`

	// Days past the cycle minimum before a completion stops blocking
	GraceDays int `mapstructure:"grace_days"`

	// Completion history horizon for the candidate pool
	HistoryDays int `mapstructure:"history_days"`

	// Days of run history kept by serve mode; 0 keeps runs forever
	RunRetentionDays int `mapstructure:"run_retention_days"`

	// Automatic weekly generation
	AutoGenerate AutoGenerateConfig `mapstructure:"auto_generate"`
}

// AutoGenerateConfig holds the cron-driven generation settings.
type AutoGenerateConfig struct {
	// Enable scheduled generation
	Enabled bool `mapstructure:"enabled"`

	// Cron spec for when to generate the next week
	Cron string `mapstructure:"cron"`

	// Regenerate even when the week already has pending entries
	Regenerate bool `mapstructure:"regenerate"`
}

// PriorityConfig holds the priority tier file settings.
type PriorityConfig struct {
	// Directory holding tier CSV exports
	Dir string `mapstructure:"dir"`

	// Glob pattern matching tier files; trailing digits give the tier
	Pattern string `mapstructure:"pattern"`

	// Reload tiers when files change
	Watch bool `mapstructure:"watch"`

	// Quiet period after a file event before reloading
	Debounce time.Duration `mapstructure:"debounce"`
}

// FiltersConfig holds operator-supplied candidate filters.
type FiltersConfig struct {
	// CEL expressions; a candidate matching any expression is skipped
	Expressions []string `mapstructure:"expressions"`
}

// ArchiveConfig holds schedule snapshot settings.
type ArchiveConfig struct {
	// Enable snapshot archiving after each run
	Enabled bool `mapstructure:"enabled"`

	// Backend type ("filesystem" or "s3")
	Backend string `mapstructure:"backend"`

	// Compression ("none", "gzip" or "zstd")
	Compression string `mapstructure:"compression"`

	// Filesystem backend settings
	Filesystem *FilesystemArchiveConfig `mapstructure:"filesystem"`

	// S3 backend settings
	S3 *S3ArchiveConfig `mapstructure:"s3"`
}

// FilesystemArchiveConfig holds local archive settings.
type FilesystemArchiveConfig struct {
	// Base directory for snapshots
	Path string `mapstructure:"path"`
}

// S3ArchiveConfig holds S3-compatible archive settings.
type S3ArchiveConfig struct {
	// Bucket name
	Bucket string `mapstructure:"bucket"`

	// AWS region (e.g., us-east-1)
	Region string `mapstructure:"region"`

	// Custom endpoint for S3-compatible services (MinIO, R2, etc.)
	Endpoint string `mapstructure:"endpoint"`

	// Access key ID
	AccessKeyID string `mapstructure:"access_key_id"`

	// Secret access key
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Force path-style addressing (required for MinIO)
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// NotifyConfig holds webhook notification settings.
type NotifyConfig struct {
	// Enable webhook notifications
	Enabled bool `mapstructure:"enabled"`

	// Webhook endpoints notified after each run
	URLs []string `mapstructure:"urls"`

	// Delivery attempts before giving up
	MaxAttempts int `mapstructure:"max_attempts"`

	// Base delay between attempts (doubles each retry)
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// Per-request timeout
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`

	// Include caller info
	Caller bool `mapstructure:"caller"`

	// Include timestamp
	Timestamp bool `mapstructure:"timestamp"`

	// Output file (empty for stdout)
	Output string `mapstructure:"output"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return s.Host + ":" + itoa(s.Port)
}

// itoa converts int to string without importing strconv.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	negative := i < 0
	if negative {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
