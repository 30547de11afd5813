package market

import (
	"fmt"
	"time"
)

// Window is the closed range [Start, End] spanned by the open times of a
// candle set. It bounds both the candle set and trade collection.
type Window struct {
	Start int64 // oldest candle open time, ms
	End   int64 // newest candle open time, ms
}

// WindowOf returns the window covered by candles. ok is false for an empty set.
func WindowOf(candles []Candle) (w Window, ok bool) {
	if len(candles) == 0 {
		return Window{}, false
	}
	w = Window{Start: candles[0].OpenTime, End: candles[0].OpenTime}
	for _, c := range candles[1:] {
		if c.OpenTime < w.Start {
			w.Start = c.OpenTime
		}
		if c.OpenTime > w.End {
			w.End = c.OpenTime
		}
	}
	return w, true
}

// CloseTime is the exclusive end of the newest candle in the window.
func (w Window) CloseTime() int64 {
	return w.End + Interval
}

// Minutes is the number of one-minute intervals from Start through End.
func (w Window) Minutes() int {
	return int((w.End-w.Start)/Interval) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]",
		MillisToTime(w.Start).Format(time.RFC3339),
		MillisToTime(w.End).Format(time.RFC3339))
}
