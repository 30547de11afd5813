package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	finished := time.Unix(1_700_000_000, 0)

	m.ObserveRun(3*time.Second, finished, nil)
	m.ObserveRun(time.Second, finished.Add(time.Minute), errors.New("no candle data"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastDuration))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.LastSuccess), "failed runs leave the success time alone")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Pages.Add(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(a.Pages))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Pages))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.CandlesWritten.Add(10)
	m.FetchErrors.WithLabelValues(EndpointTrades).Inc()

	path := filepath.Join(t.TempDir(), "textfile", "candletrades.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "candletrades_candles_written_total 10")
	assert.Contains(t, string(data), `candletrades_fetch_errors_total{endpoint="trades"} 1`)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Uploads.WithLabelValues(UploadNoCreds).Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), `candletrades_uploads_total{result="no_credentials"} 1`)
}
