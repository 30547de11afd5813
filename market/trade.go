package market

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Trade is one executed transaction. ID is the exchange trade id (tid), which
// increases monotonically and is used as the pagination cursor because
// timestamps may repeat.
type Trade struct {
	ID          int64
	TimestampMS int64
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Exchange    string
	Side        string
}

// DedupeTrades returns a new slice holding one trade per ID, ordered by ID
// descending (newest first, the order the exchange delivers).
func DedupeTrades(trades []Trade) []Trade {
	seen := make(map[int64]struct{}, len(trades))
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
