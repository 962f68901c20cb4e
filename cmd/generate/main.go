package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"marketpages/internal/config"
	"marketpages/internal/generator"
	"marketpages/internal/logging"
	"marketpages/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/site.yaml", "path to site config")
	daemon := flag.Bool("daemon", false, "keep running and regenerate on the configured cron schedule")
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

	gen := generator.New(cfg, generator.BuildProvider(cfg), st, logger)

	if !*daemon {
		if _, err := gen.Run(context.Background()); err != nil {
			logger.Fatalf("generation failed: %v", err)
		}
		return
	}

	if !cfg.Schedule.Enabled {
		logger.Fatal("daemon mode requires schedule.enabled in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(cfg.Schedule.Cron, func() {
		if _, err := gen.Run(ctx); err != nil {
			logger.WithError(err).Error("scheduled generation failed")
		}
	})
	if err != nil {
		logger.Fatalf("invalid cron expression %q: %v", cfg.Schedule.Cron, err)
	}

	// One run up front so the site is never stale until the first tick.
	if _, err := gen.Run(ctx); err != nil {
		logger.WithError(err).Error("initial generation failed")
	}

	c.Start()
	logger.WithField("cron", cfg.Schedule.Cron).Info("generator daemon started")
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for running job")
	}
	logger.Info("generator daemon stopped")
}
