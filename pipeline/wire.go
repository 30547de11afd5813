package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/collector"
	"github.com/rustyeddy/candletrades/config"
	"github.com/rustyeddy/candletrades/gemini"
	"github.com/rustyeddy/candletrades/journal"
	"github.com/rustyeddy/candletrades/metrics"
	"github.com/rustyeddy/candletrades/upload"
)

// FromConfig builds a Runner and its collaborators from cfg. The returned
// close function releases the journal.
func FromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*Runner, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cfg.Exchange.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}
	budget, err := cfg.Trades.BudgetDuration()
	if err != nil {
		return nil, nil, err
	}

	client := gemini.NewClient(gemini.Options{
		CandlesURL:        cfg.Exchange.CandlesURL,
		TradesURL:         cfg.Exchange.TradesURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.Exchange.RequestsPerSecond,
		Log:               log.Named("gemini"),
	})

	deps := Deps{
		Candles: client,
		Trades:  client,
		Metrics: m,
		Log:     log,
	}

	closeFn := func() error { return nil }
	if cfg.Journal.Enabled {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		deps.Journal = j
		closeFn = j.Close
	}

	if cfg.Upload.Enabled {
		u, err := upload.NewS3(ctx, upload.Options{
			Region:          cfg.Upload.Region,
			Endpoint:        cfg.Upload.Endpoint,
			AccessKeyID:     cfg.Upload.AccessKeyID,
			SecretAccessKey: cfg.Upload.SecretAccessKey,
			Log:             log.Named("upload"),
		})
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		deps.Uploader = u
	}

	set := Settings{
		Pair:       cfg.Pair,
		Base:       cfg.Base,
		Quote:      cfg.Quote,
		Window:     cfg.Window,
		Location:   loc,
		OutputFile: cfg.Output.File,
		Bucket:     cfg.Upload.Bucket,
		KeyPrefix:  cfg.Upload.Prefix,
		Collect: collector.Options{
			PageLimit: cfg.Trades.PageLimit,
			MaxPages:  cfg.Trades.MaxPages,
			Budget:    budget,
		},
		MetricsTextfile: cfg.Metrics.Textfile,
	}
	return New(set, deps), closeFn, nil
}
