package config

import "time"

// Default configuration values.
const (
	// Server defaults.
	DefaultHost         = "localhost"
	DefaultPort         = 8090
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultMaxBodySize  = 1 * 1024 * 1024 // 1MB

	// Database defaults.
	DefaultDBPath       = "pmsched.db"
	DefaultCacheSize    = -64000 // 64MB
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // SQLite works best with single writer
	DefaultMaxIdleConns = 1

	// Scheduling defaults.
	DefaultWeeklyTarget     = 130
	DefaultLookaheadDays    = 7
	DefaultGraceDays        = 7
	DefaultHistoryDays      = 400
	DefaultRunRetentionDays = 365
	DefaultCronSpec         = "0 15 * * FRI" // Friday 15:00, plan the coming week

	// Priority defaults.
	DefaultPriorityPattern  = "PM_LIST_*.csv"
	DefaultPriorityDebounce = 500 * time.Millisecond

	// Notify defaults.
	DefaultNotifyAttempts = 5
	DefaultNotifyDelay    = 2 * time.Second
	DefaultNotifyTimeout  = 10 * time.Second

	// Archive defaults.
	DefaultArchivePath = "archive"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxBodySize:  DefaultMaxBodySize,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				MaxAge:         12 * time.Hour,
			},
		},
		Database: DatabaseConfig{
			Path:            DefaultDBPath,
			WALMode:         true,
			CacheSize:       DefaultCacheSize,
			BusyTimeout:     DefaultBusyTimeout,
			ForeignKeys:     true,
			MaxOpenConns:    DefaultMaxOpenConns,
			MaxIdleConns:    DefaultMaxIdleConns,
			ConnMaxLifetime: 0, // No limit
		},
		Scheduling: SchedulingConfig{
			WeeklyTarget:     DefaultWeeklyTarget,
			LookaheadDays:    DefaultLookaheadDays,
			GraceDays:        DefaultGraceDays,
			HistoryDays:      DefaultHistoryDays,
			RunRetentionDays: DefaultRunRetentionDays,
			AutoGenerate: AutoGenerateConfig{
				Enabled:    false,
				Cron:       DefaultCronSpec,
				Regenerate: false,
			},
		},
		Priority: PriorityConfig{
			Dir:      "",
			Pattern:  DefaultPriorityPattern,
			Watch:    false,
			Debounce: DefaultPriorityDebounce,
		},
		Filters: FiltersConfig{
			Expressions: nil,
		},
		Archive: ArchiveConfig{
			Enabled:     false,
			Backend:     "filesystem",
			Compression: "gzip",
			Filesystem: &FilesystemArchiveConfig{
				Path: DefaultArchivePath,
			},
		},
		Notify: NotifyConfig{
			Enabled:     false,
			MaxAttempts: DefaultNotifyAttempts,
			RetryDelay:  DefaultNotifyDelay,
			Timeout:     DefaultNotifyTimeout,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
	}
}
