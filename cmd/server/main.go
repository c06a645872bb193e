package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leadsight/backend/internal/config"
	"github.com/leadsight/backend/internal/db"
	httpapi "github.com/leadsight/backend/internal/http"
	"github.com/leadsight/backend/internal/roster"
	"github.com/leadsight/backend/internal/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "leadsight-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var scorer scoring.Client
	if cfg.MLURL == "" {
		mock := scoring.MockClient{ModelVersion: "mock-v1"}
		scorer = mock
		logger.Info().Str("model_version", mock.ModelVersion).Msg("using mock scoring client")
	} else {
		scorer = scoring.HTTPClient{BaseURL: cfg.MLURL}
	}

	backfill := &roster.Backfill{
		Scorer:  scorer,
		Sink:    store,
		Logger:  logger,
		Timeout: cfg.ScorerTimeout,
	}
	rst := roster.New(store, backfill, cfg.DefaultPageSize, logger)

	router := httpapi.Router(cfg, store, rst, backfill, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
