package journal

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/candletrades/market"
)

// candleRow is the candles table layout. Decimals are stored as text.
type candleRow struct {
	RunID       string          `db:"run_id"`
	Pair        string          `db:"pair"`
	OpenTime    int64           `db:"open_time"`
	CloseTime   int64           `db:"close_time"`
	Open        decimal.Decimal `db:"open"`
	High        decimal.Decimal `db:"high"`
	Low         decimal.Decimal `db:"low"`
	Close       decimal.Decimal `db:"close"`
	BaseVolume  decimal.Decimal `db:"base_volume"`
	QuoteVolume decimal.Decimal `db:"quote_volume"`
	TradeCount  int             `db:"trade_count"`
}

type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun stores the run summary and its candles in one transaction.
func (j *SQLite) RecordRun(ctx context.Context, run RunRecord, candles []market.Candle) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs
		(run_id, started_at, finished_at, pair, window_start, window_end, candles, trades, raw_trades,
		 pages, stop_reason, csv_path, uploaded, upload_target, upload_error)
		VALUES (:run_id, :started_at, :finished_at, :pair, :window_start, :window_end, :candles, :trades, :raw_trades,
		 :pages, :stop_reason, :csv_path, :uploaded, :upload_target, :upload_error)`, run)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range candles {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO candles
			(run_id, pair, open_time, close_time, open, high, low, close, base_volume, quote_volume, trade_count)
			VALUES (:run_id, :pair, :open_time, :close_time, :open, :high, :low, :close, :base_volume, :quote_volume, :trade_count)`,
			toRow(run.RunID, c))
		if err != nil {
			return fmt.Errorf("insert candle %d: %w", c.OpenTime, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func toRow(runID string, c market.Candle) candleRow {
	return candleRow{
		RunID:       runID,
		Pair:        c.Pair,
		OpenTime:    c.OpenTime,
		CloseTime:   c.CloseTime,
		Open:        c.Open,
		High:        c.High,
		Low:         c.Low,
		Close:       c.Close,
		BaseVolume:  c.BaseVolume,
		QuoteVolume: c.QuoteVolume,
		TradeCount:  c.TradeCount,
	}
}

func (r candleRow) candle() market.Candle {
	utc := market.MillisToTime(r.OpenTime)
	return market.Candle{
		Pair:        r.Pair,
		OpenTime:    r.OpenTime,
		CloseTime:   r.CloseTime,
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		BaseVolume:  r.BaseVolume,
		QuoteVolume: r.QuoteVolume,
		TradeCount:  r.TradeCount,
		Counted:     true,
		OpenUTC:     utc,
		OpenLocal:   utc,
	}
}
