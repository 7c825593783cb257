// File: cmd/worker/main.go
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
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/domain/ports/repository"
	mail "voice-summary-service/internal/infra/adapters/email"
	"voice-summary-service/internal/infra/adapters/transcribe"
	pg "voice-summary-service/internal/infra/db/postgres"
	"voice-summary-service/internal/infra/logging"
	"voice-summary-service/internal/infra/metrics"
	red "voice-summary-service/internal/infra/redis"
	"voice-summary-service/internal/infra/storage"
	"voice-summary-service/internal/infra/worker"
	"voice-summary-service/internal/summarizer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop transcriber fallback, unredacted logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Blob storage ----
	blobs, err := storage.NewSupabaseClient(cfg.Storage.BaseURL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}

	// ---- Job store (+ optional redis transcript cache) ----
	var store repository.JobStore = pg.NewJobStore(pool, tm, blobs, cfg.Worker.ClaimRetries, cfg.Worker.ClaimRetryBase, logger)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		store = pg.NewJobStoreCacheDecorator(store, redisClient, cfg.Redis.TTL)
		logger.Info().Msg("transcript cache enabled")
	}

	// ---- Transcriber (whisper -> gemini -> noop in dev) ----
	transcriber, err := pickTranscriber(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("transcriber")
	}
	logger.Info().Str("provider", transcriber.Name()).Msg("transcriber selected")

	// ---- Email ----
	sender, err := mail.NewMailjetSender(
		cfg.Mailjet.APIKey, cfg.Mailjet.APISecret, cfg.Mailjet.BaseURL,
		cfg.Mailjet.FromEmail, cfg.Mailjet.FromName,
		cfg.Email.Subject, cfg.Email.ReplyTo,
		cfg.Mailjet.Timeout, logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailjet")
	}

	// ---- Pipeline ----
	wpool := worker.NewPool(4)
	wpool.Start(ctx)
	defer wpool.Stop()

	resolver := worker.NewTranscriptResolver(store, transcriber, wpool, logger)
	processor := worker.NewProcessor(
		store, resolver,
		summarizer.New(cfg.Summarizer.MaxBullets),
		sender,
		cfg.Worker.PollInterval, cfg.Worker.BatchSize, cfg.Worker.MaxAttempts,
		cfg.Runtime.Dev, logger,
	)
	go processor.Run(ctx)

	// ---- Admin server (metrics + health) ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	admin := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: mux}
	go func() {
		logger.Info().Str("addr", admin.Addr).Msg("admin server listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = admin.Shutdown(shutdownCtx)
}

// pickTranscriber honors an explicit transcriber.provider setting, otherwise
// falls through whisper -> gemini by configured keys, and lands on noop only
// in dev mode.
func pickTranscriber(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.Transcriber, error) {
	switch cfg.Transcriber.Provider {
	case "whisper":
		return transcribe.NewWhisperTranscriber(cfg.Transcriber.OpenAIKey, cfg.Transcriber.Model)
	case "gemini":
		return transcribe.NewGeminiTranscriber(ctx, cfg.Transcriber.GeminiKey, cfg.Transcriber.GeminiURL, cfg.Transcriber.Model)
	case "noop":
		return transcribe.NewNoopTranscriber(), nil
	case "":
		// fall through to key-based selection below
	default:
		return nil, fmt.Errorf("unknown transcriber provider %q", cfg.Transcriber.Provider)
	}

	if cfg.Transcriber.OpenAIKey != "" {
		return transcribe.NewWhisperTranscriber(cfg.Transcriber.OpenAIKey, cfg.Transcriber.Model)
	}
	if cfg.Transcriber.GeminiKey != "" {
		return transcribe.NewGeminiTranscriber(ctx, cfg.Transcriber.GeminiKey, cfg.Transcriber.GeminiURL, cfg.Transcriber.Model)
	}
	if cfg.Runtime.Dev {
		logger.Warn().Msg("no speech provider configured, using noop transcriber")
		return transcribe.NewNoopTranscriber(), nil
	}
	return nil, fmt.Errorf("no speech provider configured: set transcriber.openai_key or transcriber.gemini_key")
}
