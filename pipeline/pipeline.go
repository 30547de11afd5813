// Package pipeline runs one fetch, count and publish cycle: candles, the trades
// covering them, per-candle trade counts, the CSV artifact, its upload and the
// run journal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/aggregate"
	"github.com/rustyeddy/candletrades/collector"
	"github.com/rustyeddy/candletrades/journal"
	"github.com/rustyeddy/candletrades/market"
	"github.com/rustyeddy/candletrades/metrics"
	"github.com/rustyeddy/candletrades/pkg/id"
	"github.com/rustyeddy/candletrades/upload"
)

// CandleSource returns raw one-minute candle rows, newest first.
type CandleSource interface {
	GetCandles(ctx context.Context) ([]market.CandleRow, error)
}

// Settings are the per-run knobs.
type Settings struct {
	Pair       string
	Base       string
	Quote      string
	Window     int
	Location   *time.Location
	OutputFile string

	Bucket    string
	KeyPrefix string

	Collect         collector.Options
	MetricsTextfile string
}

// Deps are the collaborators a Runner drives. Journal and Uploader are
// optional; a nil Uploader disables upload.
type Deps struct {
	Candles  CandleSource
	Trades   collector.TradePager
	Journal  journal.Journal
	Uploader upload.Uploader
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// Report describes a finished run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Window  market.Window
	Candles []market.Candle // counted, newest first

	Trades    int
	RawTrades int
	Pages     int
	Stop      collector.StopReason
	Summary   aggregate.Summary

	CSVPath string
	Rows    int

	Uploaded     bool
	UploadTarget string
	UploadErr    error
}

type Runner struct {
	set  Settings
	deps Deps
	log  *zap.Logger
}

func New(set Settings, deps Deps) *Runner {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if set.Location == nil {
		set.Location = time.UTC
	}
	return &Runner{set: set, deps: deps, log: deps.Log.Named("pipeline")}
}

// Run executes one cycle. Missing candle data aborts the run with
// market.ErrNoCandles before any trade is fetched. Upload, journal and
// metrics failures are logged and leave the run successful.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := time.Now().UTC()
	rep := &Report{RunID: id.NewAt(started), Started: started}
	log := r.log.With(zap.String("run_id", rep.RunID), zap.String("pair", r.set.Pair))
	log.Info("run started", zap.Int("window", r.set.Window))

	err := r.run(ctx, log, rep)
	rep.Finished = time.Now().UTC()

	r.deps.Metrics.ObserveRun(rep.Finished.Sub(rep.Started), rep.Finished, err)
	if r.set.MetricsTextfile != "" {
		if werr := r.deps.Metrics.WriteTextfile(r.set.MetricsTextfile); werr != nil {
			log.Warn("metrics textfile not written", zap.String("path", r.set.MetricsTextfile), zap.Error(werr))
		}
	}

	if err != nil {
		log.Error("run failed", zap.Error(err))
		return rep, err
	}

	r.record(ctx, log, rep)
	log.Info("run finished",
		zap.Duration("took", rep.Finished.Sub(rep.Started)),
		zap.Int("candles", len(rep.Candles)),
		zap.Int("trades", rep.Trades),
		zap.String("stop", string(rep.Stop)),
		zap.Bool("uploaded", rep.Uploaded))
	return rep, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, rep *Report) error {
	rows, err := r.deps.Candles.GetCandles(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.deps.Metrics.FetchErrors.WithLabelValues(metrics.EndpointCandles).Inc()
		log.Error("candle fetch failed, treating as no data", zap.Error(err))
	}

	candles, err := market.BuildCandles(rows, r.set.Window, market.BuildOptions{
		Pair:     r.set.Pair,
		Location: r.set.Location,
	})
	if err != nil {
		log.Error("no candle data, skipping trade collection")
		return fmt.Errorf("build candles: %w", err)
	}

	w, _ := market.WindowOf(candles)
	rep.Window = w
	log.Info("candle window",
		zap.Stringer("window", w),
		zap.Int("candles", len(candles)),
		zap.Time("closes", market.MillisToTime(w.CloseTime())))
	if missing := w.Minutes() - len(candles); missing > 0 {
		log.Warn("candle window has gaps", zap.Int("minutes", w.Minutes()), zap.Int("missing", missing))
	}

	col := collector.New(&countingPager{TradePager: r.deps.Trades, m: r.deps.Metrics}, r.set.Collect, log.Named("collector"))
	res, err := col.Collect(ctx, w)
	if err != nil {
		return fmt.Errorf("collect trades: %w", err)
	}
	rep.Trades, rep.RawTrades, rep.Pages, rep.Stop = len(res.Trades), res.Raw, res.Pages, res.Stop

	r.deps.Metrics.Pages.Add(float64(res.Pages))
	r.deps.Metrics.Trades.Add(float64(len(res.Trades)))
	r.deps.Metrics.StopReasons.WithLabelValues(string(res.Stop)).Inc()

	rep.Candles = aggregate.CountTrades(candles, res.Trades)
	rep.Summary = aggregate.Summarize(rep.Candles, res.Trades)
	log.Info("trades counted",
		zap.Int("counted", rep.Summary.Counted),
		zap.Int("outside", rep.Summary.Outside),
		zap.Int("empty_candles", rep.Summary.Empty))

	rep.CSVPath = r.set.OutputFile
	rep.Rows, err = journal.WriteCandlesFile(rep.CSVPath, r.set.Base, r.set.Quote, rep.Candles)
	if err != nil {
		return fmt.Errorf("write %s: %w", rep.CSVPath, err)
	}
	r.deps.Metrics.CandlesWritten.Add(float64(rep.Rows))
	log.Info("csv written", zap.String("path", rep.CSVPath), zap.Int("rows", rep.Rows))

	r.upload(ctx, log, rep)
	return nil
}

func (r *Runner) upload(ctx context.Context, log *zap.Logger, rep *Report) {
	if r.deps.Uploader == nil {
		r.deps.Metrics.Uploads.WithLabelValues(metrics.UploadDisabled).Inc()
		log.Debug("upload disabled")
		return
	}

	key := upload.ObjectKey(r.set.KeyPrefix, rep.CSVPath)
	rep.UploadTarget = upload.Target(r.set.Bucket, key)

	err := r.deps.Uploader.Upload(ctx, rep.CSVPath, r.set.Bucket, key)
	switch {
	case err == nil:
		rep.Uploaded = true
		r.deps.Metrics.Uploads.WithLabelValues(metrics.UploadOK).Inc()
	case errors.Is(err, upload.ErrNoCredentials):
		rep.UploadErr = err
		r.deps.Metrics.Uploads.WithLabelValues(metrics.UploadNoCreds).Inc()
		log.Warn("upload skipped, credentials not available", zap.String("target", rep.UploadTarget))
	default:
		rep.UploadErr = err
		r.deps.Metrics.Uploads.WithLabelValues(metrics.UploadFailed).Inc()
		log.Warn("upload failed, keeping local file", zap.String("target", rep.UploadTarget), zap.Error(err))
	}
}

func (r *Runner) record(ctx context.Context, log *zap.Logger, rep *Report) {
	if r.deps.Journal == nil {
		return
	}
	rec := journal.RunRecord{
		RunID:        rep.RunID,
		StartedAt:    rep.Started,
		FinishedAt:   rep.Finished,
		Pair:         r.set.Pair,
		WindowStart:  rep.Window.Start,
		WindowEnd:    rep.Window.End,
		Candles:      len(rep.Candles),
		Trades:       rep.Trades,
		RawTrades:    rep.RawTrades,
		Pages:        rep.Pages,
		StopReason:   string(rep.Stop),
		CSVPath:      rep.CSVPath,
		Uploaded:     rep.Uploaded,
		UploadTarget: rep.UploadTarget,
	}
	if rep.UploadErr != nil {
		rec.UploadError = rep.UploadErr.Error()
	}
	if err := r.deps.Journal.RecordRun(ctx, rec, rep.Candles); err != nil {
		log.Warn("run not journaled", zap.Error(err))
	}
}

// countingPager counts failed trade requests.
type countingPager struct {
	collector.TradePager
	m *metrics.Metrics
}

func (p *countingPager) TradesSince(ctx context.Context, ts int64) ([]market.Trade, error) {
	page, err := p.TradePager.TradesSince(ctx, ts)
	if err != nil {
		p.m.FetchErrors.WithLabelValues(metrics.EndpointTrades).Inc()
	}
	return page, err
}

func (p *countingPager) TradesAfter(ctx context.Context, tid int64, limit int) ([]market.Trade, error) {
	page, err := p.TradePager.TradesAfter(ctx, tid, limit)
	if err != nil {
		p.m.FetchErrors.WithLabelValues(metrics.EndpointTrades).Inc()
	}
	return page, err
}
