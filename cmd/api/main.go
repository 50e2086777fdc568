package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/api"
	"github.com/factoryop/platform/internal/config"
	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/logging"
	"github.com/factoryop/platform/internal/queue"
)

// api serves the thin HTTP surface described in spec.md §4.8: creating and
// polling analytics jobs and reports, and redirecting report downloads to
// their presigned artifact URL. It never talks to the timeseries store or
// object store directly — those belong to the workers.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logging.Init("api", cfg.Server.Mode)

	if err := database.Connect(cfg.Database.Path); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	q, err := queue.Connect(cfg.Queue.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	api.SetupRoutes(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("api server stopped unexpectedly")
		}
	}()
	log.Info().Str("addr", addr).Msg("api starting")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, draining")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("error during api shutdown")
	}
	log.Info().Msg("api stopped")
}
