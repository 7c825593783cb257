// File: cmd/api/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-summary-service/internal/config"
	"voice-summary-service/internal/infra/api"
	pg "voice-summary-service/internal/infra/db/postgres"
	"voice-summary-service/internal/infra/logging"
	"voice-summary-service/internal/infra/storage"
	"voice-summary-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	blobs, err := storage.NewSupabaseClient(cfg.Storage.BaseURL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}

	uc := usecase.NewRequestUseCase(pg.NewIntakeStore(pool), blobs, logger)
	srv := api.NewServer(uc, cfg.API.MaxAudioMB, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           srv.Router(cfg.API.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("intake api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
