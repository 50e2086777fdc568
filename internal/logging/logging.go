package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. mode="production" emits JSON
// to stdout; anything else emits the human-readable console writer, the
// shape used across local development in the pack.
func Init(component, mode string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer = os.Stdout
	logger := zerolog.New(writer).With().Timestamp().Str("component", component).Logger()

	if mode != "production" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Logger = logger
}
