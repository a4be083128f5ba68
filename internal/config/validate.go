package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateScheduling(&cfg.Scheduling)...)
	errs = append(errs, validatePriority(&cfg.Priority)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateServer(cfg *ServerConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.read_timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.WriteTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.write_timeout",
			Message: "must be non-negative",
		})
	}

	if cfg.MaxBodySize < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_size",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "database.path",
			Message: "required",
		})
	}

	if cfg.MaxOpenConns < 1 {
		errs = append(errs, ValidationError{
			Field:   "database.max_open_conns",
			Message: "must be at least 1",
		})
	}

	if cfg.BusyTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "database.busy_timeout",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateScheduling(cfg *SchedulingConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.WeeklyTarget < 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduling.weekly_target",
			Message: "must be non-negative (0 disables the cap)",
		})
	}

	if cfg.LookaheadDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduling.lookahead_days",
			Message: "must be non-negative",
		})
	}

	if cfg.GraceDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduling.grace_days",
			Message: "must be non-negative",
		})
	}

	if cfg.HistoryDays < 1 {
		errs = append(errs, ValidationError{
			Field:   "scheduling.history_days",
			Message: "must be at least 1",
		})
	}

	if cfg.RunRetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduling.run_retention_days",
			Message: "must be non-negative (0 keeps runs forever)",
		})
	}

	if cfg.AutoGenerate.Enabled && cfg.AutoGenerate.Cron == "" {
		errs = append(errs, ValidationError{
			Field:   "scheduling.auto_generate.cron",
			Message: "required when auto generation is enabled",
		})
	}

	return errs
}

func validatePriority(cfg *PriorityConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Dir == "" {
		if cfg.Watch {
			errs = append(errs, ValidationError{
				Field:   "priority.dir",
				Message: "required when priority.watch is enabled",
			})
		}
		return errs
	}

	if strings.Contains(cfg.Dir, "..") {
		errs = append(errs, ValidationError{
			Field:   "priority.dir",
			Message: "path traversal (..) not allowed",
		})
	}

	if cfg.Pattern == "" {
		errs = append(errs, ValidationError{
			Field:   "priority.pattern",
			Message: "required when priority.dir is set",
		})
	}

	if cfg.Debounce < 0 {
		errs = append(errs, ValidationError{
			Field:   "priority.debounce",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateArchive(cfg *ArchiveConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return errs
	}

	validBackends := map[string]bool{"filesystem": true, "s3": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, ValidationError{
			Field:   "archive.backend",
			Message: "must be 'filesystem' or 's3'",
		})
	}

	validCompression := map[string]bool{"none": true, "gzip": true, "zstd": true}
	if !validCompression[cfg.Compression] {
		errs = append(errs, ValidationError{
			Field:   "archive.compression",
			Message: "must be one of: none, gzip, zstd",
		})
	}

	switch cfg.Backend {
	case "filesystem":
		if cfg.Filesystem == nil {
			errs = append(errs, ValidationError{
				Field:   "archive.filesystem",
				Message: "required when backend is 'filesystem'",
			})
			break
		}

		if cfg.Filesystem.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "archive.filesystem.path",
				Message: "required",
			})
		}

		if strings.Contains(cfg.Filesystem.Path, "..") {
			errs = append(errs, ValidationError{
				Field:   "archive.filesystem.path",
				Message: "path traversal (..) not allowed",
			})
		}

	case "s3":
		if cfg.S3 == nil {
			errs = append(errs, ValidationError{
				Field:   "archive.s3",
				Message: "required when backend is 's3'",
			})
			break
		}

		if cfg.S3.Bucket == "" {
			errs = append(errs, ValidationError{
				Field:   "archive.s3.bucket",
				Message: "required",
			})
		}

		if cfg.S3.Region == "" {
			errs = append(errs, ValidationError{
				Field:   "archive.s3.region",
				Message: "required",
			})
		}

		if cfg.S3.AccessKeyID == "" {
			errs = append(errs, ValidationError{
				Field:   "archive.s3.access_key_id",
				Message: "required",
			})
		}

		if cfg.S3.SecretAccessKey == "" {
			errs = append(errs, ValidationError{
				Field:   "archive.s3.secret_access_key",
				Message: "required",
			})
		}
	}

	return errs
}

func validateNotify(cfg *NotifyConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return errs
	}

	if len(cfg.URLs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "notify.urls",
			Message: "at least one URL required when notifications are enabled",
		})
	}

	for i, raw := range cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("notify.urls[%d]", i),
				Message: "must be a valid http or https URL",
			})
		}
	}

	if cfg.MaxAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   "notify.max_attempts",
			Message: "must be at least 1",
		})
	}

	if cfg.RetryDelay < 100*time.Millisecond {
		errs = append(errs, ValidationError{
			Field:   "notify.retry_delay",
			Message: "must be at least 100ms",
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, panic",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}
