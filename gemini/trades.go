package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/candletrades/market"
)

// apiTrade mirrors one element of the trade history response.
type apiTrade struct {
	Timestamp   int64           `json:"timestamp"`
	TimestampMS int64           `json:"timestampms"`
	TID         int64           `json:"tid"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	Exchange    string          `json:"exchange"`
	Type        string          `json:"type"`
}

// TradesSince returns the page of trades anchored at timestampMS.
func (c *Client) TradesSince(ctx context.Context, timestampMS int64) ([]market.Trade, error) {
	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(timestampMS, 10))
	return c.trades(ctx, params)
}

// TradesAfter returns up to limit trades following the trade with id tid.
func (c *Client) TradesAfter(ctx context.Context, tid int64, limit int) ([]market.Trade, error) {
	params := url.Values{}
	params.Set("since_tid", strconv.FormatInt(tid, 10))
	if limit > 0 {
		params.Set("limit_trades", strconv.Itoa(limit))
	}
	return c.trades(ctx, params)
}

func (c *Client) trades(ctx context.Context, params url.Values) ([]market.Trade, error) {
	body, err := c.Fetch(ctx, c.tradesURL, params)
	if err != nil {
		return nil, err
	}
	return ParseTrades(body)
}

// ParseTrades decodes a trade history response, preserving its order.
func ParseTrades(body []byte) ([]market.Trade, error) {
	var raw []apiTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}

	trades := make([]market.Trade, 0, len(raw))
	for _, r := range raw {
		ts := r.TimestampMS
		if ts == 0 {
			ts = r.Timestamp * 1000
		}
		trades = append(trades, market.Trade{
			ID:          r.TID,
			TimestampMS: ts,
			Price:       r.Price,
			Amount:      r.Amount,
			Exchange:    r.Exchange,
			Side:        r.Type,
		})
	}
	return trades, nil
}
