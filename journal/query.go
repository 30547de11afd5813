package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/candletrades/market"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var rec RunRecord
	err := j.db.GetContext(ctx, &rec, `SELECT * FROM runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return rec, err
}

// ListRuns returns the most recent runs, newest first.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []RunRecord
	err := j.db.SelectContext(ctx, &out, `SELECT * FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	return out, err
}

// ListCandles returns a run's candles, newest first as they were written.
func (j *SQLite) ListCandles(ctx context.Context, runID string) ([]market.Candle, error) {
	var rows []candleRow
	err := j.db.SelectContext(ctx, &rows, `
		SELECT run_id, pair, open_time, close_time, open, high, low, close, base_volume, quote_volume, trade_count
		FROM candles
		WHERE run_id = ?
		ORDER BY open_time DESC`, runID)
	if err != nil {
		return nil, err
	}

	out := make([]market.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.candle())
	}
	return out, nil
}

// CandlesBetween returns candles from every run whose open time is within
// [start, end), keeping the most recent run's row when runs overlap.
func (j *SQLite) CandlesBetween(ctx context.Context, start, end int64) ([]market.Candle, error) {
	var rows []candleRow
	err := j.db.SelectContext(ctx, &rows, `
		SELECT c.run_id, c.pair, c.open_time, c.close_time, c.open, c.high, c.low, c.close,
		       c.base_volume, c.quote_volume, c.trade_count
		FROM candles c
		JOIN runs r ON r.run_id = c.run_id
		WHERE c.open_time >= ? AND c.open_time < ?
		ORDER BY c.open_time ASC, r.started_at DESC`, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]market.Candle, 0, len(rows))
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].OpenTime == r.OpenTime {
			continue
		}
		out = append(out, r.candle())
	}
	return out, nil
}
