package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/config"
	"github.com/rustyeddy/candletrades/metrics"
	"github.com/rustyeddy/candletrades/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch candles and trades once, write the CSV and upload it",
	Long: `Run one cycle: fetch the latest one-minute candles, collect the trades that
cover them, count trades per candle, write the CSV and upload it.

Flags override the config file for this run only.

Example:
  candletrades run -c candletrades.yaml --window 15 --no-upload`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runPair      string
	runWindow    int
	runOutput    string
	runNoUpload  bool
	runNoJournal bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	addRunFlags(runCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringVarP(&runPair, "pair", "p", "", "trading pair, e.g. BTCUSD")
	c.Flags().IntVarP(&runWindow, "window", "n", 0, "number of recent candles")
	c.Flags().StringVarP(&runOutput, "output", "o", "", "output CSV path")
	c.Flags().BoolVar(&runNoUpload, "no-upload", false, "skip the S3 upload")
	c.Flags().BoolVar(&runNoJournal, "no-journal", false, "skip the SQLite run journal")
}

// applyRunFlags layers explicitly set flags over cfg.
func applyRunFlags(c *cobra.Command, cfg *config.Config) error {
	f := c.Flags()
	if f.Changed("pair") {
		cfg.Pair = runPair
		cfg.Base, cfg.Quote = "", ""
		cfg.Exchange.CandlesURL, cfg.Exchange.TradesURL = "", ""
	}
	if f.Changed("window") {
		cfg.Window = runWindow
	}
	if f.Changed("output") {
		cfg.Output.File = runOutput
	}
	if runNoUpload {
		cfg.Upload.Enabled = false
	}
	if runNoJournal {
		cfg.Journal.Enabled = false
	}
	cfg.Resolve()
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := applyRunFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, closeFn, err := pipeline.FromConfig(ctx, cfg, metrics.New(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn("close journal", zap.Error(err))
		}
	}()

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func printReport(out io.Writer, rep *pipeline.Report) {
	fmt.Fprintf(out, "Run %s\n", rep.RunID)
	fmt.Fprintf(out, "  Window: %s (%d candles)\n", rep.Window, len(rep.Candles))
	fmt.Fprintf(out, "  Trades: %d unique, %d raw, %d pages (%s)\n", rep.Trades, rep.RawTrades, rep.Pages, rep.Stop)
	if rep.Stop.Partial() {
		fmt.Fprintln(out, "  Warning: trade collection stopped early, counts may be low")
	}
	fmt.Fprintf(out, "  Counted: %d in candles, %d outside\n", rep.Summary.Counted, rep.Summary.Outside)
	fmt.Fprintf(out, "  Output: %s (%d rows)\n", rep.CSVPath, rep.Rows)
	switch {
	case rep.Uploaded:
		fmt.Fprintf(out, "  Uploaded: %s\n", rep.UploadTarget)
	case rep.UploadErr != nil:
		fmt.Fprintf(out, "  Upload failed: %v\n", rep.UploadErr)
	}
}

// runOnce is shared with schedule so both commands report the same way.
func runOnce(ctx context.Context, runner *pipeline.Runner, out io.Writer, log *zap.Logger) {
	rep, err := runner.Run(ctx)
	if err != nil {
		log.Error("scheduled run failed", zap.Error(err))
		return
	}
	printReport(out, rep)
}
