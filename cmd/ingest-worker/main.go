package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/cache"
	"github.com/factoryop/platform/internal/config"
	"github.com/factoryop/platform/internal/crypto"
	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/ingest"
	"github.com/factoryop/platform/internal/logging"
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/timeseries"
)

// ingest-worker subscribes to device telemetry over MQTT and runs it
// through the ingest pipeline (spec.md §4.1): tenant/device resolution,
// parameter auto-discovery, a time-series write, and enqueuing a rule
// evaluation job.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logging.Init("ingest-worker", cfg.Server.Mode)

	if err := crypto.Init(cfg.Security.EncryptionKey); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryption key")
	}

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if _, err := cache.Connect(cfg.Cache.URL, cfg.Cache.TTLSecs); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to cache")
	}
	defer cache.Get().Close()

	timeseries.Connect(cfg.TimeSeries.URL, cfg.TimeSeries.Token, cfg.TimeSeries.Org, cfg.TimeSeries.Bucket)

	q, err := queue.Connect(cfg.Queue.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	pipeline := ingest.NewPipeline()
	subscriber := ingest.NewSubscriber(cfg.Broker.Host, cfg.Broker.Port, cfg.Broker.Username, cfg.Broker.Password, cfg.Broker.ClientID, pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, draining")
		cancel()
	}()

	log.Info().Str("broker", cfg.Broker.Host).Msg("ingest-worker starting")
	if err := subscriber.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("subscriber exited with error")
	}
	log.Info().Msg("ingest-worker stopped")
}
