package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/collabforge/collabforge/internal/api"
	"github.com/collabforge/collabforge/internal/config"
	"github.com/collabforge/collabforge/internal/repositories"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if config.Envs.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := config.Validate(config.Envs); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to database
	repositories.ConnectDatabase()

	store := repositories.NewS3Store(config.Envs.S3)

	handler := api.SetupRouter(repositories.DB, store)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("port", config.Envs.Port).Msg("Starting CollabForge server")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Str("port", config.Envs.Port).Msg("Could not listen")
	}
}
