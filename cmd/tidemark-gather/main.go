package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tidemark/internal/config"
	"tidemark/internal/domain"
	"tidemark/internal/gather"
	"tidemark/internal/store"
	"tidemark/internal/util"
)

func main() {
	cfgPath := "config/tidemark.yaml"
	if p := os.Getenv("TIDEMARK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := gather.NewDailyBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		domain.Universe(cfg.Backtest.Universe),
		cfg.Gather.StartDate,
		cfg.Gather.RateLimitPerMin,
		cfg.Gather.MaxAttempts,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}
