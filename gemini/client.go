package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/candletrades/collector"
)

const (
	// BaseURL is Gemini's public REST API.
	BaseURL = "https://api.gemini.com"

	DefaultTimeout           = 15 * time.Second
	DefaultRequestsPerSecond = 2.0
)

// ErrStatus is wrapped by Fetch for any non-2xx response.
var ErrStatus = errors.New("unexpected http status")

// CandlesURL returns the one-minute candle endpoint for symbol.
func CandlesURL(base, symbol string) string {
	return strings.TrimRight(base, "/") + "/v2/candles/" + strings.ToUpper(symbol) + "/1m"
}

// TradesURL returns the trade history endpoint for symbol.
func TradesURL(base, symbol string) string {
	return strings.TrimRight(base, "/") + "/v1/trades/" + strings.ToUpper(symbol)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	CandlesURL        string
	TradesURL         string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Log               *zap.Logger
}

// Client talks to the public candle and trade endpoints. No authentication is
// needed. Every request waits on a rate limiter first.
type Client struct {
	candlesURL string
	tradesURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a client for the given endpoints.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		candlesURL: opts.CandlesURL,
		tradesURL:  opts.TradesURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:        log,
	}
}

// Fetch issues a single GET to rawURL with params and returns the raw JSON
// body. A network error or non-2xx status is returned as an error; callers
// treat that as "no data".
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// The next token arrives after ctx's deadline.
			err = fmt.Errorf("%w: %v", collector.ErrOutOfTime, err)
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("fetching", zap.String("url", u.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode response: invalid json from %s", u.Path)
	}

	c.log.Debug("fetched", zap.String("url", u.String()), zap.Int("bytes", len(body)))
	return body, nil
}
