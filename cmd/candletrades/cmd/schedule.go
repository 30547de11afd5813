package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/candletrades/config"
	"github.com/rustyeddy/candletrades/metrics"
	"github.com/rustyeddy/candletrades/pipeline"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Repeat the run on a fixed interval",
	Long: `Run the pipeline immediately and then every interval (schedule.every, or
the window length when unset) until interrupted. Runs never overlap.

When a config file is given it is watched; edits take effect before the next
run. With metrics.addr set, /metrics is served over HTTP, and the server moves
when a reload changes the address.

Example:
  candletrades schedule -c candletrades.yaml --every 10m`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var scheduleEvery time.Duration

func init() {
	rootCmd.AddCommand(scheduleCmd)

	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().DurationVar(&scheduleEvery, "every", 0, "interval between runs (overrides schedule.every)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := applyRunFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	ms := &metricsServer{m: m, log: log}
	if err := ms.listen(cfg.Metrics.Addr); err != nil {
		return err
	}
	defer ms.close()

	reloads := make(chan *config.Config, 1)
	if cfgFile != "" {
		go func() {
			err := config.Watch(ctx, cfgFile, log.Named("config"), func(c *config.Config) {
				if err := applyRunFlags(cmd, c); err != nil {
					log.Warn("reloaded config rejected", zap.Error(err))
					return
				}
				// Keep only the newest pending config.
				select {
				case <-reloads:
				default:
				}
				reloads <- c
			})
			if err != nil {
				log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	runner, closeFn, err := pipeline.FromConfig(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn("close journal", zap.Error(err))
		}
	}()

	every, err := interval(cfg)
	if err != nil {
		return err
	}
	log.Info("schedule started", zap.Duration("every", every), zap.String("pair", cfg.Pair))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	runOnce(ctx, runner, cmd.OutOrStdout(), log)
	for {
		select {
		case <-ctx.Done():
			log.Info("schedule stopped")
			return nil

		case next := <-reloads:
			r, c, err := pipeline.FromConfig(ctx, next, m, log)
			if err != nil {
				log.Warn("keeping previous config", zap.Error(err))
				continue
			}
			if err := closeFn(); err != nil {
				log.Warn("close journal", zap.Error(err))
			}
			runner, closeFn, cfg = r, c, next
			if err := ms.listen(cfg.Metrics.Addr); err != nil {
				log.Warn("metrics server not moved", zap.String("addr", cfg.Metrics.Addr), zap.Error(err))
			}
			if d, err := interval(cfg); err == nil && d != every {
				every = d
				ticker.Reset(every)
				log.Info("schedule interval changed", zap.Duration("every", every))
			}

		case <-ticker.C:
			runOnce(ctx, runner, cmd.OutOrStdout(), log)
		}
	}
}

func interval(cfg *config.Config) (time.Duration, error) {
	if scheduleEvery > 0 {
		return scheduleEvery, nil
	}
	return cfg.ScheduleEvery()
}

// metricsServer serves /metrics on at most one address at a time.
type metricsServer struct {
	m     *metrics.Metrics
	log   *zap.Logger
	addr  string // as configured
	bound string // as listened on
	srv   *http.Server
}

// listen moves the server to addr. An empty addr stops it. If the new address
// cannot be bound the old server keeps running.
func (s *metricsServer) listen(addr string) error {
	if addr == s.addr {
		return nil
	}
	if addr == "" {
		s.close()
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	s.close()

	srv := &http.Server{Handler: metricsMux(s.m), ReadHeaderTimeout: 5 * time.Second}
	s.srv, s.addr, s.bound = srv, addr, ln.Addr().String()
	s.log.Info("metrics listening", zap.String("addr", s.bound))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server", zap.Error(err))
		}
	}()
	return nil
}

func (s *metricsServer) close() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("metrics server shutdown", zap.Error(err))
	}
	s.srv, s.addr, s.bound = nil, "", ""
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
