package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantops/pmsched/internal/config"
)

var (
	cfgFile   string
	verbosity int
	logFormat string
)

const version = "0.1.0-dev"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pmsched",
	Short: "Weekly preventive-maintenance scheduling for plant equipment",
	Long: `pmsched turns an equipment registry, completion history, and a
technician roster into balanced weekly PM schedules:

  - Monthly, six-month, and annual cycles with recurrence suppression
  - Priority tiers from watched CSV exports
  - Deterministic ranking and even per-technician assignment
  - SQLite storage, single-binary deployment

Generate next week's schedule:
  pmsched generate --week 2026-08-31

Run the HTTP API with automatic Friday generation:
  pmsched serve`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pmsched.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.LoadWithDefaults()
	}
	if err != nil {
		return nil, err
	}

	applyLogging(&cfg.Logging)
	return cfg, nil
}

// setupLogging configures zerolog from flags alone, before any config file
// is read.
func setupLogging() {
	switch {
	case verbosity >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if logFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// applyLogging reconfigures the global logger from the config file. Flags
// passed on the command line win over file settings.
func applyLogging(cfg *config.LoggingConfig) {
	if verbosity == 0 {
		if lvl, err := zerolog.ParseLevel(cfg.Level); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	format := cfg.Format
	if logFormat != "" {
		format = logFormat
	}

	var out io.Writer = os.Stderr
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Output).Msg("Cannot open log file, keeping stderr")
		} else {
			out = f
		}
	}

	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out)
	lctx := logger.With()
	if cfg.Timestamp {
		lctx = lctx.Timestamp()
	}
	if cfg.Caller {
		lctx = lctx.Caller()
	}
	log.Logger = lctx.Logger()
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("pmsched version %s", version)
}
