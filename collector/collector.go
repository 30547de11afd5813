// Package collector walks an exchange's cursor-paginated trade history until
// the collected trades cover a candle window.
package collector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/market"
)

const (
	DefaultPageLimit = 500
	DefaultMaxPages  = 200
	DefaultBudget    = 2 * time.Minute
)

// ErrOutOfTime is returned by a TradePager that declines to start a request
// it could not finish before ctx's deadline.
var ErrOutOfTime = errors.New("request would outlast deadline")

// TradePager is the trade history endpoint. Pages are newest first.
type TradePager interface {
	// TradesSince returns the page anchored at a timestamp (first call).
	TradesSince(ctx context.Context, timestampMS int64) ([]market.Trade, error)
	// TradesAfter returns the page following trade id tid.
	TradesAfter(ctx context.Context, tid int64, limit int) ([]market.Trade, error)
}

// StopReason records why collection ended.
type StopReason string

const (
	StopWindowCovered  StopReason = "window_covered"
	StopEmptyPage      StopReason = "empty_page"
	StopEmptyFirstPage StopReason = "empty_first_page"
	StopFetchFailed    StopReason = "fetch_failed"
	StopPageCap        StopReason = "page_cap"
	StopBudget         StopReason = "budget"
)

// Partial reports whether collection stopped before the window was known to
// be covered.
func (r StopReason) Partial() bool {
	switch r {
	case StopPageCap, StopBudget, StopFetchFailed:
		return true
	}
	return false
}

// Options bounds a collection run. Zero values use the defaults.
type Options struct {
	PageLimit int
	MaxPages  int
	Budget    time.Duration
}

// Result is the outcome of Collect.
type Result struct {
	// Trades is the union of all pages, one entry per trade id, newest first.
	// It is not filtered to the window.
	Trades []market.Trade
	// Raw is the number of trades received across all pages, duplicates included.
	Raw   int
	Pages int
	Stop  StopReason
}

type Collector struct {
	pager TradePager
	opts  Options
	log   *zap.Logger
}

func New(pager TradePager, opts Options, log *zap.Logger) *Collector {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{pager: pager, opts: opts, log: log}
}

// Collect gathers trades from w.Start forward until a page's newest trade
// reaches w.End or a page comes back empty. Fetch failures, the page cap and
// the time budget stop the walk and return what was gathered so far; only a
// cancelled parent context is returned as an error.
func (c *Collector) Collect(ctx context.Context, w market.Window) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Budget)
	defer cancel()

	var (
		res Result
		all []market.Trade
	)
	finish := func(stop StopReason) Result {
		res.Stop = stop
		res.Raw = len(all)
		res.Trades = market.DedupeTrades(all)
		c.log.Info("trade collection finished",
			zap.String("stop", string(stop)),
			zap.Int("pages", res.Pages),
			zap.Int("raw", res.Raw),
			zap.Int("trades", len(res.Trades)))
		return res
	}

	page, err := c.pager.TradesSince(ctx, w.Start)
	res.Pages++
	if err != nil {
		stop, perr := c.fetchFailed(ctx, err, "anchor")
		return finish(stop), perr
	}
	if len(page) == 0 {
		c.log.Warn("no trades returned for window anchor", zap.Int64("timestamp", w.Start))
		return finish(StopEmptyFirstPage), nil
	}
	all = append(all, page...)

	cursor := page[0].ID
	boundary := page[0].TimestampMS

	for boundary < w.End {
		if res.Pages >= c.opts.MaxPages {
			c.log.Warn("page cap reached, returning partial trades",
				zap.Int("max_pages", c.opts.MaxPages),
				zap.Int64("boundary", boundary),
				zap.Int64("window_end", w.End))
			return finish(StopPageCap), nil
		}

		page, err = c.pager.TradesAfter(ctx, cursor, c.opts.PageLimit)
		res.Pages++
		if err != nil {
			stop, perr := c.fetchFailed(ctx, err, "page")
			return finish(stop), perr
		}
		all = append(all, page...)

		if len(page) == 0 {
			return finish(StopEmptyPage), nil
		}
		cursor = page[0].ID
		boundary = page[0].TimestampMS

		c.log.Debug("trade page",
			zap.Int("page", res.Pages),
			zap.Int("size", len(page)),
			zap.Int64("cursor", cursor),
			zap.Int64("boundary", boundary))
	}

	return finish(StopWindowCovered), nil
}

// fetchFailed classifies a pager error. Budget expiry and ordinary fetch
// failures end the walk with partial data; a cancelled parent is an error.
func (c *Collector) fetchFailed(ctx context.Context, err error, what string) (StopReason, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (ctx.Err() == nil && errors.Is(err, ErrOutOfTime)) {
		c.log.Warn("trade collection budget exhausted",
			zap.Duration("budget", c.opts.Budget), zap.Error(err))
		return StopBudget, nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return StopFetchFailed, ctx.Err()
	}
	c.log.Error("trade fetch failed, treating as no data", zap.String("request", what), zap.Error(err))
	return StopFetchFailed, nil
}
