package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fazecat/flowlens/Internal/feed"
	"github.com/fazecat/flowlens/Internal/series"
	"github.com/fazecat/flowlens/Internal/server"
	"github.com/fazecat/flowlens/Internal/types"
	"github.com/fazecat/flowlens/Internal/utils/config"
	"github.com/fazecat/flowlens/Internal/utils/logging"
)

func main() {
	// .env is optional; live Alpaca credentials usually arrive this way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("engine exited", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	trigger, err := loadTriggerBars(cfg, logger)
	if err != nil {
		return err
	}

	s, err := feed.BuildSeries(trigger, cfg.Feed.TrigTimeframe, cfg.Feed.BiasTimeframe, cfg.Feed.BaseTimeframe)
	if err != nil {
		return err
	}
	logger.Infow("series built",
		"trigger", len(s.Trigger), "bias", len(s.Bias), "base", len(s.Base))

	mgr, err := series.NewManager(cfg.Engine)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server.Addr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	driveSeries(cfg, logger, mgr, srv, s)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// loadTriggerBars fetches the trigger-cadence tape from the configured
// source.
func loadTriggerBars(cfg *config.Config, logger *zap.SugaredLogger) ([]types.Bar, error) {
	switch cfg.Feed.Mode {
	case "replay":
		logger.Infow("loading replay tape", "path", cfg.Feed.ReplayPath)
		return feed.LoadReplay(cfg.Feed.ReplayPath)
	default:
		src, err := feed.NewAlpacaSource(logger)
		if err != nil {
			return nil, err
		}
		if open, err := src.MarketOpen(); err == nil && !open {
			logger.Infow("market is closed, processing history only")
		}
		return src.FetchTriggerBars(cfg.Feed.Symbol, cfg.Feed.TrigTimeframe, cfg.Feed.HistoryLimit)
	}
}

// driveSeries replays the three streams into the manager in close-time
// order. A base or bias bar closes at timestamp + timeframe, so every
// higher-timeframe bar is absorbed before the trigger bar that follows
// it, exactly as it would in a live session.
func driveSeries(cfg *config.Config, logger *zap.SugaredLogger, mgr *series.Manager, srv *server.Server, s *feed.Series) {
	trigDur, _ := feed.TimeframeDuration(cfg.Feed.TrigTimeframe)
	biasDur, _ := feed.TimeframeDuration(cfg.Feed.BiasTimeframe)
	baseDur, _ := feed.TimeframeDuration(cfg.Feed.BaseTimeframe)

	baseIdx, biasIdx := 0, 0
	for _, bar := range s.Trigger {
		closeTime := bar.Timestamp.Add(trigDur)

		for baseIdx < len(s.Base) && !s.Base[baseIdx].Timestamp.Add(baseDur).After(closeTime) {
			mgr.OnBaseBar(s.Base[baseIdx])
			baseIdx++
		}
		for biasIdx < len(s.Bias) && !s.Bias[biasIdx].Timestamp.Add(biasDur).After(closeTime) {
			mgr.OnBiasBar(s.Bias[biasIdx])
			biasIdx++
		}

		snap := mgr.OnTriggerBar(bar)
		srv.Publish(snap)
	}

	logger.Infow("tape processed",
		"bars", len(s.Trigger),
		"atr", mgr.ATRValue(),
		"smoothed_vwap", mgr.SmoothedVWAP(),
		"delta_efficiency", mgr.DeltaEfficiencyValue(),
		"finished_at", time.Now().Format(time.RFC3339))
}
