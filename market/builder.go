package market

import (
	"errors"
	"time"
)

// ErrNoCandles is returned when there is no candle data to build a window from.
var ErrNoCandles = errors.New("no candle data")

// BuildOptions controls candle enrichment.
type BuildOptions struct {
	Pair     string
	Location *time.Location // display zone for OpenLocal; UTC when nil
}

// BuildCandles turns raw rows (newest first) into at most n enriched candles.
// Fewer than n rows is not an error. Rows whose open time is not strictly older
// than the last kept row are skipped (keep-first), so the output intervals
// never overlap.
func BuildCandles(rows []CandleRow, n int, opts BuildOptions) ([]Candle, error) {
	if len(rows) == 0 {
		return nil, ErrNoCandles
	}
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	out := make([]Candle, 0, n)
	for _, r := range rows {
		if len(out) == n {
			break
		}
		if len(out) > 0 && r.OpenTime >= out[len(out)-1].OpenTime {
			continue
		}

		utc := MillisToTime(r.OpenTime)
		out = append(out, Candle{
			Pair:        opts.Pair,
			OpenTime:    r.OpenTime,
			CloseTime:   r.OpenTime + Interval,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			BaseVolume:  r.BaseVolume,
			QuoteVolume: r.BaseVolume.Mul(r.Close),
			OpenUTC:     utc,
			OpenLocal:   utc.In(loc),
		})
	}
	return out, nil
}
