// Command server runs the library-commerce HTTP API and its background
// job runner, loading configuration from a YAML file plus LIBRARY_*
// environment overrides.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/dummy-library/inventory-core/internal/config"
	"github.com/dummy-library/inventory-core/pkg/library"
)

func main() {
	configPath := flag.String("config", "configs/local.yaml", "path to config yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	app, err := library.NewApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to assemble application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("server starting")
		if err := app.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}

	cancel()

	if err := app.Close(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		os.Exit(1)
	}

	log.Info().Msg("shutdown complete")
}
