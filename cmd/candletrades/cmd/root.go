package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/config"
	"github.com/rustyeddy/candletrades/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "candletrades",
	Short: "Per-minute candles with trade counts from the Gemini public API",
	Long: `candletrades pulls the most recent one-minute candles for a pair, walks the
trade history that covers them, counts trades per candle and writes the result
to a CSV file that is then uploaded to an S3 bucket.

Every run is recorded in a SQLite journal and exported as prometheus metrics.

Configuration comes from a YAML file (see "candletrades config init"), a .env
file and CANDLETRADES_* environment variables, in that order of precedence.`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// setup loads configuration and builds the logger shared by a command.
func setup() (*config.Config, *zap.Logger, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Log
	if logLevel != "" {
		lc.Level = logLevel
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}
