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
	"github.com/factoryop/platform/internal/notify"
	"github.com/factoryop/platform/internal/queue"
)

// notification-worker consumes send_notifications tasks and dispatches
// alert notifications over email and WhatsApp (spec.md §4.6), recording a
// per-(alert,channel,user) audit trail.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logging.Init("notification-worker", cfg.Server.Mode)

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	q, err := queue.Connect(cfg.Queue.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	worker := notify.NewWorker(cfg.Notification)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, draining")
		cancel()
	}()

	log.Info().Msg("notification-worker starting")
	if err := worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("notification worker exited with error")
	}
	log.Info().Msg("notification-worker stopped")
}
