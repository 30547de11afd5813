package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interval is the fixed candle duration in milliseconds.
const Interval int64 = 60_000

// CandleRow is one raw candle as delivered by the exchange:
// [open_time_ms, open, high, low, close, base_volume].
type CandleRow struct {
	OpenTime   int64
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	BaseVolume decimal.Decimal
}

// Candle represents an enriched one-minute OHLC bar covering [OpenTime, CloseTime).
type Candle struct {
	Pair string

	OpenTime  int64 // ms since epoch
	CloseTime int64 // OpenTime + Interval

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	BaseVolume  decimal.Decimal
	QuoteVolume decimal.Decimal // BaseVolume * Close

	// TradeCount is only meaningful once Counted is set.
	TradeCount int
	Counted    bool

	OpenUTC   time.Time
	OpenLocal time.Time
}

// Contains reports whether ts falls inside the candle's half-open interval.
func (c Candle) Contains(ts int64) bool {
	return c.OpenTime <= ts && ts < c.CloseTime
}

// Overlaps reports whether two candle intervals share any instant.
func (c Candle) Overlaps(o Candle) bool {
	return c.OpenTime < o.CloseTime && o.OpenTime < c.CloseTime
}

// MillisToTime converts epoch milliseconds to a UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
