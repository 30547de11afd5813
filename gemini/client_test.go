package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/candletrades/collector"
	"github.com/rustyeddy/candletrades/market"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		CandlesURL:        CandlesURL(srv.URL, "btcusd"),
		TradesURL:         TradesURL(srv.URL, "btcusd"),
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	})
}

func TestEndpointURLs(t *testing.T) {
	assert.Equal(t, "https://api.gemini.com/v2/candles/BTCUSD/1m", CandlesURL(BaseURL, "btcusd"))
	assert.Equal(t, "https://api.gemini.com/v1/trades/BTCUSD", TradesURL(BaseURL+"/", "BTCUSD"))
}

func TestGetCandles_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/candles/BTCUSD/1m", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			[1559755800000, 7781.6, 7820.23, 7776.56, 7819.39, 34.7624802159],
			[1559755740000, 7770.1, 7785, 7769.88, 7781.6, 2.0012]
		]`))
	}))
	defer srv.Close()

	rows, err := newTestClient(srv).GetCandles(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1559755800000), rows[0].OpenTime)
	assert.Equal(t, "7781.6", rows[0].Open.String())
	assert.Equal(t, "7820.23", rows[0].High.String())
	assert.Equal(t, "7776.56", rows[0].Low.String())
	assert.Equal(t, "7819.39", rows[0].Close.String())
	assert.Equal(t, "34.7624802159", rows[0].BaseVolume.String())
	assert.Equal(t, int64(1559755740000), rows[1].OpenTime)
}

func TestParseCandles_Errors(t *testing.T) {
	t.Run("short row", func(t *testing.T) {
		_, err := ParseCandles([]byte(`[[1559755800000, 1, 2, 3]]`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "want 6 fields")
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := ParseCandles([]byte(`{"result":"error"}`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "decode candles")
	})
}

func TestTradesSince_QueryAndDecode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/trades/BTCUSD", r.URL.Path)
		assert.Equal(t, "1559755740000", r.URL.Query().Get("timestamp"))
		assert.Empty(t, r.URL.Query().Get("since_tid"))
		w.Write([]byte(`[
			{"timestamp":1559755799,"timestampms":1559755799123,"tid":7003,"price":"7819.39","amount":"0.01","exchange":"gemini","type":"buy"},
			{"timestamp":1559755750,"tid":7001,"price":"7781.6","amount":"0.5","exchange":"gemini","type":"sell"}
		]`))
	}))
	defer srv.Close()

	trades, err := newTestClient(srv).TradesSince(context.Background(), 1559755740000)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, int64(7003), trades[0].ID)
	assert.Equal(t, int64(1559755799123), trades[0].TimestampMS)
	assert.Equal(t, "7819.39", trades[0].Price.String())
	assert.Equal(t, "0.01", trades[0].Amount.String())
	assert.Equal(t, "gemini", trades[0].Exchange)
	assert.Equal(t, "buy", trades[0].Side)

	// falls back to the seconds field when timestampms is absent
	assert.Equal(t, int64(1559755750000), trades[1].TimestampMS)
	assert.Equal(t, "sell", trades[1].Side)
}

func TestTradesAfter_Query(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "7003", q.Get("since_tid"))
		assert.Equal(t, "500", q.Get("limit_trades"))
		assert.Empty(t, q.Get("timestamp"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	trades, err := newTestClient(srv).TradesAfter(context.Background(), 7003, 500)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestFetch_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"result":"error","reason":"RateLimited"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).Fetch(context.Background(), srv.URL+"/v1/trades/BTCUSD", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStatus)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).Fetch(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid json")
	})

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		u := srv.URL
		srv.Close()

		_, err := newTestClient(srv).Fetch(context.Background(), u, url.Values{"a": {"b"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "execute request")
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestClient(srv).Fetch(ctx, srv.URL, nil)
		assert.Error(t, err)
	})
}

func TestFetch_RateWaitPastDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(Options{CandlesURL: CandlesURL(srv.URL, "btcusd"), TradesURL: TradesURL(srv.URL, "btcusd"), RequestsPerSecond: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Fetch(ctx, srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, collector.ErrOutOfTime)
	assert.NoError(t, ctx.Err(), "limiter refuses before the deadline passes")
}

func TestCollectStopsOnBudgetWhileRateLimited(t *testing.T) {
	// Every page advances by one trade and never reaches the window end.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := int64(1)
		if s := r.URL.Query().Get("since_tid"); s != "" {
			n, _ := strconv.ParseInt(s, 10, 64)
			tid = n + 1
		}
		fmt.Fprintf(w, `[{"timestampms":%d,"tid":%d,"price":"1","amount":"1","type":"buy"}]`, 1000+tid, tid)
	}))
	defer srv.Close()

	c := NewClient(Options{CandlesURL: CandlesURL(srv.URL, "btcusd"), TradesURL: TradesURL(srv.URL, "btcusd"), RequestsPerSecond: 10})
	res, err := collector.New(c, collector.Options{Budget: 250 * time.Millisecond}, nil).
		Collect(context.Background(), market.Window{Start: 1000, End: 1_000_000})
	require.NoError(t, err)

	assert.Equal(t, collector.StopBudget, res.Stop)
	assert.GreaterOrEqual(t, res.Pages, 2)
	assert.NotEmpty(t, res.Trades)
}
