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
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/rules"
)

// rule-worker consumes evaluate_rules tasks and runs the condition-tree
// evaluation procedure (spec.md §4.2): schedule gate, cooldown gate,
// condition evaluation, and alert emission.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logging.Init("rule-worker", cfg.Server.Mode)

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	q, err := queue.Connect(cfg.Queue.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	worker := rules.NewWorker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received, draining")
		cancel()
	}()

	log.Info().Msg("rule-worker starting")
	if err := worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("rule worker exited with error")
	}
	log.Info().Msg("rule-worker stopped")
}
