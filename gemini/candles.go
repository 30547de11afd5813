package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/candletrades/market"
)

// GetCandles fetches one-minute candle rows, newest first as the exchange
// returns them.
func (c *Client) GetCandles(ctx context.Context) ([]market.CandleRow, error) {
	body, err := c.Fetch(ctx, c.candlesURL, nil)
	if err != nil {
		return nil, err
	}
	return ParseCandles(body)
}

// ParseCandles decodes an array of [time_ms, open, high, low, close, volume]
// rows. Numbers are decoded without passing through float64.
func ParseCandles(body []byte) ([]market.CandleRow, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw [][]json.Number
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	rows := make([]market.CandleRow, 0, len(raw))
	for i, r := range raw {
		if len(r) < 6 {
			return nil, fmt.Errorf("candle row %d: want 6 fields, got %d", i, len(r))
		}
		ts, err := r[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("candle row %d: open time %q: %w", i, r[0], err)
		}

		var vals [5]decimal.Decimal
		for j := range vals {
			vals[j], err = decimal.NewFromString(r[j+1].String())
			if err != nil {
				return nil, fmt.Errorf("candle row %d: field %d: %w", i, j+1, err)
			}
		}

		rows = append(rows, market.CandleRow{
			OpenTime:   ts,
			Open:       vals[0],
			High:       vals[1],
			Low:        vals[2],
			Close:      vals[3],
			BaseVolume: vals[4],
		})
	}
	return rows, nil
}
