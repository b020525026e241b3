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

	"github.com/techcodes/backend/internal/config"
	"github.com/techcodes/backend/internal/db"
	httpapi "github.com/techcodes/backend/internal/http"
	"github.com/techcodes/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "techcodes-backend").Logger()

	ctx := context.Background()
	store, kind, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("store", kind).Msg("failed to open store")
	}
	defer store.Close()
	if kind == db.KindMemory {
		logger.Warn().Msg("no DATABASE_URL or SQLITE_PATH, working set is kept in memory")
	} else {
		logger.Info().Str("store", kind).Msg("store ready")
	}

	pipeline, err := service.NewPipeline(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid pipeline config")
	}
	svc := &service.DispatchService{
		Store:    store,
		Pipeline: pipeline,
		Logger:   logger,
	}

	router := httpapi.Router(cfg, svc, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("time_zone", cfg.TimeZone).Msg("server started")
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
