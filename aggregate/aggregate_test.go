package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/candletrades/market"
)

// window returns n one-minute candles starting at start, newest first.
func window(start int64, n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := n - 1; i >= 0; i-- {
		open := start + int64(i)*market.Interval
		out = append(out, market.Candle{Pair: "BTCUSD", OpenTime: open, CloseTime: open + market.Interval})
	}
	return out
}

func trades(ts ...int64) []market.Trade {
	out := make([]market.Trade, 0, len(ts))
	for i, t := range ts {
		out = append(out, market.Trade{ID: int64(i + 1), TimestampMS: t})
	}
	return out
}

// bruteForce counts by linear scan, the definition CountTrades must match.
func bruteForce(c market.Candle, ts []market.Trade) int {
	n := 0
	for _, t := range ts {
		if c.Contains(t.TimestampMS) {
			n++
		}
	}
	return n
}

func TestCountTradesIntervalMembership(t *testing.T) {
	t.Parallel()

	candles := window(1_000, 10) // [1000, 1000+9*60000]
	got := CountTrades(candles, trades(1_000, 59_999, 600_000))
	require.Len(t, got, 10)

	byOpen := map[int64]market.Candle{}
	for _, c := range got {
		assert.True(t, c.Counted)
		byOpen[c.OpenTime] = c
	}

	assert.Equal(t, 2, byOpen[1_000].TradeCount, "1000 and 59999 fall in the first candle")
	// 600000 falls in the tenth interval [541000, 601000)
	assert.Equal(t, 1, byOpen[541_000].TradeCount)
	for open, c := range byOpen {
		if open != 1_000 && open != 541_000 {
			assert.Zero(t, c.TradeCount, "candle %d", open)
		}
	}
}

func TestCountTradesHalfOpenBoundaries(t *testing.T) {
	t.Parallel()

	candles := window(0, 2) // [60000,120000) then [0,60000)
	got := CountTrades(candles, trades(0, 59_999, 60_000, 119_999, 120_000))

	assert.Equal(t, 2, got[0].TradeCount) // 60000, 119999
	assert.Equal(t, 2, got[1].TradeCount) // 0, 59999
}

func TestCountTradesOrderIndependent(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	candles := window(1_000_000, 10)

	ts := make([]int64, 500)
	for i := range ts {
		ts[i] = 1_000_000 - 30_000 + rng.Int63n(11*60_000)
	}
	in := trades(ts...)
	want := CountTrades(candles, in)

	for round := 0; round < 5; round++ {
		shuffled := append([]market.Trade(nil), in...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := CountTrades(candles, shuffled)
		for i := range got {
			assert.Equal(t, want[i].TradeCount, got[i].TradeCount)
			assert.Equal(t, bruteForce(candles[i], shuffled), got[i].TradeCount)
		}
	}
}

func TestCountTradesIsPure(t *testing.T) {
	t.Parallel()

	candles := window(0, 3)
	in := trades(120_500, 10, 60_001)

	got := CountTrades(candles, in)

	for _, c := range candles {
		assert.False(t, c.Counted, "input candles untouched")
		assert.Zero(t, c.TradeCount)
	}
	assert.Equal(t, []int64{120_500, 10, 60_001}, []int64{in[0].TimestampMS, in[1].TimestampMS, in[2].TimestampMS})
	assert.Equal(t, []int{1, 1, 1}, []int{got[0].TradeCount, got[1].TradeCount, got[2].TradeCount})
}

func TestCountTradesNoTrades(t *testing.T) {
	t.Parallel()

	got := CountTrades(window(0, 4), nil)
	for _, c := range got {
		assert.True(t, c.Counted)
		assert.Zero(t, c.TradeCount)
	}
	assert.Empty(t, CountTrades(nil, trades(1, 2, 3)))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	in := trades(5, 70_000, 70_001, 999_999)
	got := CountTrades(window(0, 3), in)

	s := Summarize(got, in)
	assert.Equal(t, Summary{Candles: 3, Trades: 4, Counted: 3, Outside: 1, Empty: 1}, s)
}
