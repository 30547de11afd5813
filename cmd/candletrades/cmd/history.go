package cmd

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/candletrades/journal"
	"github.com/rustyeddy/candletrades/pkg/id"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the run journal",
	Long: `List and inspect past runs recorded in the SQLite journal.

Examples:
  candletrades history --limit 5
  candletrades history show <run-id>
  candletrades history candles --from 2024-03-15T10:00:00Z --to 2024-03-15T11:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its candles as an Org block",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCandlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Write journaled candles opening in [from, to) as CSV",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCandles,
}

var (
	historyDBPath string
	historyLimit  int
	historyFrom   string
	historyTo     string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCandlesCmd)

	historyCmd.PersistentFlags().StringVarP(&historyDBPath, "db", "d", "", "path to SQLite journal (default from config)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of runs to list")
	historyCandlesCmd.Flags().StringVar(&historyFrom, "from", "", "start time, RFC3339 (required)")
	historyCandlesCmd.Flags().StringVar(&historyTo, "to", "", "end time, RFC3339 (default now)")
	_ = historyCandlesCmd.MarkFlagRequired("from")
}

func openJournal() (*journal.SQLite, string, string, error) {
	cfg, _, err := setup()
	if err != nil {
		return nil, "", "", err
	}
	path := historyDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("open db: %w", err)
	}
	return j, cfg.Base, cfg.Quote, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	j, _, _, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPAIR\tCANDLES\tTRADES\tPAGES\tSTOP\tUPLOADED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%t\n",
			r.RunID, r.StartedAt.UTC().Format(time.RFC3339), r.Pair,
			r.Candles, r.Trades, r.Pages, r.StopReason, r.Uploaded)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	stamped, err := id.Time(args[0])
	if err != nil {
		return err
	}

	j, _, _, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	candles, err := j.ListCandles(cmd.Context(), run.RunID)
	if err != nil {
		return fmt.Errorf("list candles: %w", err)
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = stamped
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatRunOrg(run, candles))
	return nil
}

func runHistoryCandles(cmd *cobra.Command, args []string) error {
	from, err := time.Parse(time.RFC3339, historyFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to := time.Now()
	if historyTo != "" {
		if to, err = time.Parse(time.RFC3339, historyTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	j, base, quote, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	candles, err := j.CandlesBetween(cmd.Context(), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return fmt.Errorf("query candles: %w", err)
	}

	// Newest first, matching the run output.
	slices.Reverse(candles)
	_, err = journal.WriteCandlesCSV(cmd.OutOrStdout(), base, quote, candles)
	return err
}
