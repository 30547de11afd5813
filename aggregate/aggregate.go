// Package aggregate joins collected trades onto candle intervals.
package aggregate

import (
	"sort"

	"github.com/rustyeddy/candletrades/market"
)

// CountTrades returns a copy of candles with TradeCount set to the number of
// trades whose timestamp lies in [OpenTime, CloseTime). Neither input is
// modified and the result does not depend on the order of trades.
func CountTrades(candles []market.Candle, trades []market.Trade) []market.Candle {
	ts := sortedTimestamps(trades)

	out := make([]market.Candle, len(candles))
	for i, c := range candles {
		c.TradeCount = countIn(ts, c.OpenTime, c.CloseTime)
		c.Counted = true
		out[i] = c
	}
	return out
}

// Summary describes how trades were distributed over a candle set.
type Summary struct {
	Candles int
	Trades  int // distinct trades considered
	Counted int // trades that landed in some candle
	Outside int // trades outside every candle
	Empty   int // candles with no trades
}

// Summarize reports the distribution of trades over candles already passed
// through CountTrades.
func Summarize(counted []market.Candle, trades []market.Trade) Summary {
	s := Summary{Candles: len(counted), Trades: len(trades)}
	for _, c := range counted {
		s.Counted += c.TradeCount
		if c.TradeCount == 0 {
			s.Empty++
		}
	}
	s.Outside = s.Trades - s.Counted
	if s.Outside < 0 {
		// overlapping candles count a trade more than once
		s.Outside = 0
	}
	return s
}

func sortedTimestamps(trades []market.Trade) []int64 {
	ts := make([]int64, len(trades))
	for i, t := range trades {
		ts[i] = t.TimestampMS
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// countIn counts values of sorted ts in [lo, hi).
func countIn(ts []int64, lo, hi int64) int {
	if hi <= lo {
		return 0
	}
	first := sort.Search(len(ts), func(i int) bool { return ts[i] >= lo })
	last := sort.Search(len(ts), func(i int) bool { return ts[i] >= hi })
	return last - first
}
