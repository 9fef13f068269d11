package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/scribe/internal/config"
	"github.com/socialchef/scribe/internal/logger"
	"github.com/socialchef/scribe/internal/metrics"
	"github.com/socialchef/scribe/internal/sentry"
	"github.com/socialchef/scribe/internal/services/telegram"
	"github.com/socialchef/scribe/internal/services/transcription"
	"github.com/socialchef/scribe/internal/telemetry"
	"github.com/socialchef/scribe/internal/worker"
)

func main() {
	defer func() {
		sentry.Recover()
	}()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required for the worker")
	}

	// Initialize telemetry
	shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.Headers())
	if err != nil {
		slog.Warn("Failed to init telemetry", "error", err)
	} else {
		defer shutdown(ctx)
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+"-worker", cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	// Initialize logger with OTel support
	logger := logger.New(cfg.Env)
	slog.SetDefault(logger) // Set as default so slog.Info() uses our handler
	telegram.UseLogger(logger)

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	// Initialize services
	gemini, err := transcription.NewGeminiService(ctx, cfg.GoogleAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	engine := transcription.NewEngine(gemini, transcription.DelayPolicy{Pause: cfg.Transcription.AttemptDelay}, cfg.Transcription.CallTimeout)

	// The worker only sends; the bot process owns polling.
	tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramLocalServerURL)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	processor := worker.NewAudioProcessor(tg, engine, gemini, worker.ProcessorConfig{
		TempDir: cfg.TempDir,
		Models:  cfg.Transcription.Models,
		Prompt:  cfg.Transcription.Prompt,
	}, workerMetrics)

	// Asynq server
	srv, err := worker.NewServer(cfg.RedisURL, 0)
	if err != nil {
		log.Fatalf("Failed to create worker server: %v", err)
	}
	mux := worker.NewMux(worker.NewTaskHandler(processor).Handlers())

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down worker...")
		srv.Shutdown()
	}()

	slog.Info("Starting worker", "models", len(cfg.Transcription.Models))

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
