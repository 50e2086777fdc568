package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/config"
	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/logging"
	"github.com/factoryop/platform/internal/objectstore"
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/reporting"
	"github.com/factoryop/platform/internal/timeseries"
)

// report-worker consumes generate_report tasks and renders PDF/Excel/JSON
// report artifacts (spec.md §4.5). Unlike the analytics worker, a failure
// here is terminal — there is no retry.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logging.Init("report-worker", cfg.Server.Mode)

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	timeseries.Connect(cfg.TimeSeries.URL, cfg.TimeSeries.Token, cfg.TimeSeries.Org, cfg.TimeSeries.Bucket)

	ctx := context.Background()
	if _, err := objectstore.Connect(ctx, cfg.ObjectStore.Endpoint, cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, cfg.ObjectStore.Bucket, cfg.ObjectStore.UseSSL); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object store")
	}

	q, err := queue.Connect(cfg.Queue.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	worker := reporting.NewWorker()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, draining")
		cancel()
	}()

	log.Info().Msg("report-worker starting")
	if err := worker.Run(runCtx); err != nil {
		log.Fatal().Err(err).Msg("report worker exited with error")
	}
	log.Info().Msg("report-worker stopped")
}
