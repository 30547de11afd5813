package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/candletrades/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  candletrades config init -o candletrades.yaml
  candletrades config validate -f candletrades.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file loads, applying environment overrides
the same way "run" does.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "candletrades.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  candletrades run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	every, _ := cfg.ScheduleEvery()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Pair: %s (%s/%s), last %d candles\n", cfg.Pair, cfg.Base, cfg.Quote, cfg.Window)
	fmt.Fprintf(out, "  Candles: %s\n", cfg.Exchange.CandlesURL)
	fmt.Fprintf(out, "  Trades: %s (page %d, max %d pages)\n", cfg.Exchange.TradesURL, cfg.Trades.PageLimit, cfg.Trades.MaxPages)
	fmt.Fprintf(out, "  Output: %s\n", cfg.Output.File)
	if cfg.Upload.Enabled {
		fmt.Fprintf(out, "  Upload: s3://%s/%s\n", cfg.Upload.Bucket, cfg.Upload.Prefix)
	} else {
		fmt.Fprintln(out, "  Upload: disabled")
	}
	if cfg.Journal.Enabled {
		fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.DBPath)
	}
	fmt.Fprintf(out, "  Schedule: every %s\n", every)
	return nil
}
