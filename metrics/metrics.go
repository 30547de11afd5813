// Package metrics exposes run counters for prometheus, either through a
// node-exporter textfile or an HTTP handler.
package metrics

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "candletrades"

// Endpoint labels for FetchErrors.
const (
	EndpointCandles = "candles"
	EndpointTrades  = "trades"
)

// Upload result labels.
const (
	UploadOK       = "ok"
	UploadNoCreds  = "no_credentials"
	UploadFailed   = "failed"
	UploadDisabled = "disabled"
)

// Metrics owns a private registry so several instances (tests, schedule
// reloads) never collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	Runs           *prometheus.CounterVec
	Pages          prometheus.Counter
	Trades         prometheus.Counter
	CandlesWritten prometheus.Counter
	FetchErrors    *prometheus.CounterVec
	Uploads        *prometheus.CounterVec
	StopReasons    *prometheus.CounterVec
	LastDuration   prometheus.Gauge
	LastSuccess    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"result"}),
		Pages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trade_pages_total",
			Help: "Trade pages fetched.",
		}),
		Trades: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trades_collected_total",
			Help: "Unique trades collected across runs.",
		}),
		CandlesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "candles_written_total",
			Help: "Candle rows written to the output file.",
		}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_errors_total",
			Help: "Failed exchange requests by endpoint.",
		}, []string{"endpoint"}),
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "uploads_total",
			Help: "Upload attempts by result.",
		}, []string{"result"}),
		StopReasons: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "collector_stops_total",
			Help: "Why the trade walk stopped.",
		}, []string{"reason"}),
		LastDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_duration_seconds",
			Help: "Wall clock of the most recent run.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the most recent successful run.",
		}),
	}
}

// Registry exposes the underlying gatherer.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRun records a finished run's duration and, on success, its time.
func (m *Metrics) ObserveRun(d time.Duration, finished time.Time, err error) {
	m.LastDuration.Set(d.Seconds())
	if err != nil {
		m.Runs.WithLabelValues("failed").Inc()
		return
	}
	m.Runs.WithLabelValues("ok").Inc()
	m.LastSuccess.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the text exposition format for the
// node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
