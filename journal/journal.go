package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/candletrades/market"
)

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	RunID      string    `db:"run_id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Pair       string    `db:"pair"`

	WindowStart int64 `db:"window_start"`
	WindowEnd   int64 `db:"window_end"`

	Candles    int    `db:"candles"`
	Trades     int    `db:"trades"`
	RawTrades  int    `db:"raw_trades"`
	Pages      int    `db:"pages"`
	StopReason string `db:"stop_reason"`

	CSVPath      string `db:"csv_path"`
	Uploaded     bool   `db:"uploaded"`
	UploadTarget string `db:"upload_target"`
	UploadError  string `db:"upload_error"`
}

// Journal persists run history.
type Journal interface {
	RecordRun(ctx context.Context, run RunRecord, candles []market.Candle) error
	Close() error
}
