package main

import (
	"log/slog"

	"demix/internal/config"
	"demix/internal/fetch"
	"demix/internal/jobs"
	"demix/internal/materialize"
	"demix/internal/runner"
	"demix/internal/separator"
	"demix/internal/storage"
)

// buildProcessors wires the per-kind runners from the configured tools.
func buildProcessors(cfg *config.Config, store *jobs.Store, gateway storage.Gateway, logger *slog.Logger) (map[jobs.Kind]runner.Processor, error) {
	engine, err := separator.New(cfg.Separator.Binary, cfg.Separator.TimeoutSeconds)
	if err != nil {
		return nil, err
	}
	downloader, err := fetch.New(cfg.Fetch.Binary, cfg.Fetch.TimeoutSeconds)
	if err != nil {
		return nil, err
	}

	materializer := materialize.New(store, gateway, logger)
	separation := runner.NewSeparation(store, gateway, engine, materializer, logger)
	fetcher := runner.NewFetch(store, gateway, downloader, materializer, cfg.Fetch.MaxRetries, logger)

	return map[jobs.Kind]runner.Processor{
		jobs.KindStaticMix:  separation,
		jobs.KindDynamicMix: separation,
		jobs.KindFetch:      fetcher,
	}, nil
}
