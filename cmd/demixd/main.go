package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"demix/internal/config"
	"demix/internal/daemon"
	"demix/internal/jobs"
	"demix/internal/logging"
	"demix/internal/reaper"
	"demix/internal/storage"
	"demix/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}

	gateway, err := storage.New(cfg)
	if err != nil {
		logger.Error("init storage gateway", logging.Error(err))
		return
	}

	processors, err := buildProcessors(cfg, store, gateway, logger)
	if err != nil {
		logger.Error("build runners", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, logger, processors)
	sweeper := reaper.New(store, logger,
		time.Duration(cfg.Reaper.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Reaper.StaleThresholdMinutes)*time.Minute)

	d, err := daemon.New(cfg, store, gateway, logger, manager, sweeper)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("demixd shutting down")
}
