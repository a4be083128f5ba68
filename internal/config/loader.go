package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "PMSCHED"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("pmsched")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pmsched")
		v.AddConfigPath("/etc/pmsched")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	expandEnvInConfig(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	return Load(LoadOptions{ConfigFile: path})
}

func LoadWithDefaults() (*Config, error) {
	return Load(LoadOptions{})
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", cfg.Server.MaxBodySize)

	v.SetDefault("server.cors.enabled", cfg.Server.CORS.Enabled)
	v.SetDefault("server.cors.allowed_origins", cfg.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.max_age", cfg.Server.CORS.MaxAge)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.wal_mode", cfg.Database.WALMode)
	v.SetDefault("database.cache_size", cfg.Database.CacheSize)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("database.foreign_keys", cfg.Database.ForeignKeys)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", cfg.Database.ConnMaxLifetime)

	v.SetDefault("scheduling.weekly_target", cfg.Scheduling.WeeklyTarget)
	v.SetDefault("scheduling.lookahead_days", cfg.Scheduling.LookaheadDays)
	v.SetDefault("scheduling.grace_days", cfg.Scheduling.GraceDays)
	v.SetDefault("scheduling.history_days", cfg.Scheduling.HistoryDays)
	v.SetDefault("scheduling.run_retention_days", cfg.Scheduling.RunRetentionDays)
	v.SetDefault("scheduling.auto_generate.enabled", cfg.Scheduling.AutoGenerate.Enabled)
	v.SetDefault("scheduling.auto_generate.cron", cfg.Scheduling.AutoGenerate.Cron)
	v.SetDefault("scheduling.auto_generate.regenerate", cfg.Scheduling.AutoGenerate.Regenerate)

	v.SetDefault("priority.dir", cfg.Priority.Dir)
	v.SetDefault("priority.pattern", cfg.Priority.Pattern)
	v.SetDefault("priority.watch", cfg.Priority.Watch)
	v.SetDefault("priority.debounce", cfg.Priority.Debounce)

	v.SetDefault("filters.expressions", cfg.Filters.Expressions)

	v.SetDefault("archive.enabled", cfg.Archive.Enabled)
	v.SetDefault("archive.backend", cfg.Archive.Backend)
	v.SetDefault("archive.compression", cfg.Archive.Compression)
	if cfg.Archive.Filesystem != nil {
		v.SetDefault("archive.filesystem.path", cfg.Archive.Filesystem.Path)
	}

	v.SetDefault("notify.enabled", cfg.Notify.Enabled)
	v.SetDefault("notify.urls", cfg.Notify.URLs)
	v.SetDefault("notify.max_attempts", cfg.Notify.MaxAttempts)
	v.SetDefault("notify.retry_delay", cfg.Notify.RetryDelay)
	v.SetDefault("notify.timeout", cfg.Notify.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.caller", cfg.Logging.Caller)
	v.SetDefault("logging.timestamp", cfg.Logging.Timestamp)
	v.SetDefault("logging.output", cfg.Logging.Output)
}

func expandEnvInConfig(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envVar := val[2 : len(val)-1]
			if envVal := os.Getenv(envVar); envVal != "" {
				v.Set(key, envVal)
			}
		}
	}
}

func ConfigFilePath(customPath string) (string, error) {
	if customPath != "" {
		absPath, err := filepath.Abs(customPath)
		if err != nil {
			return "", fmt.Errorf("resolving config path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", absPath)
		}
		return absPath, nil
	}

	searchPaths := []string{
		"pmsched.yaml",
		"pmsched.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "pmsched", "pmsched.yaml"),
		"/etc/pmsched/pmsched.yaml",
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", ErrConfigNotFound
}
