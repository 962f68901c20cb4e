package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"

	"marketpages/internal/api"
	"marketpages/internal/config"
	"marketpages/internal/generator"
	"marketpages/internal/logging"
	"marketpages/internal/market"
	"marketpages/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/site.yaml", "path to site config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info").Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.Log.Level)

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		logger.Fatalf("store error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithError(err).Warn("store close error")
		}
	}()

	provider := generator.BuildProvider(cfg)
	gen := generator.New(cfg, provider, st, logger)
	agg := market.NewAggregator(provider, market.AggregatorOptions{
		TopN: cfg.Market.TopN,
		Pace: time.Duration(cfg.Market.RequestPacingMs) * time.Millisecond,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterRoutes(h, st, gen, agg, cfg.Site.OutputDir, cfg.Market.Symbols, logger)

	logger.WithField("addr", addr).Info("preview server starting")
	if err := h.Run(); err != nil {
		logger.Fatalf("server run error: %v", err)
	}
}
