package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/socialchef/scribe/internal/access"
	"github.com/socialchef/scribe/internal/api"
	"github.com/socialchef/scribe/internal/bot"
	"github.com/socialchef/scribe/internal/config"
	"github.com/socialchef/scribe/internal/db"
	"github.com/socialchef/scribe/internal/logger"
	"github.com/socialchef/scribe/internal/metrics"
	"github.com/socialchef/scribe/internal/sentry"
	"github.com/socialchef/scribe/internal/services/telegram"
	"github.com/socialchef/scribe/internal/services/transcription"
	"github.com/socialchef/scribe/internal/telemetry"
	"github.com/socialchef/scribe/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.Headers())
	if err != nil {
		slog.Warn("Failed to init telemetry", "error", err)
	} else {
		defer shutdown(context.Background())
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
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

	// Allow-list storage: Postgres when configured, the flat file otherwise
	var store access.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		store = access.NewPostgresStore(pool)
		slog.Info("Using Postgres allow-list")
	} else {
		fileStore := access.NewFileStore(cfg.AccessFile)
		store = fileStore
		slog.Info("Using file allow-list", "path", fileStore.Path())
	}
	gate := access.NewGate(cfg.AdminID, store)

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	// Initialize services
	gemini, err := transcription.NewGeminiService(ctx, cfg.GoogleAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	engine := transcription.NewEngine(gemini, transcription.DelayPolicy{Pause: cfg.Transcription.AttemptDelay}, cfg.Transcription.CallTimeout)

	tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramLocalServerURL)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	if err := tg.DropPendingUpdates(ctx); err != nil {
		slog.Warn("Failed to drop pending updates", "error", err)
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

	// Jobs run in-process unless a Redis queue is configured
	var runner bot.AudioRunner
	var inline *worker.InlineRunner
	if cfg.RedisURL != "" {
		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue client: %v", err)
		}
		defer asynqClient.Close()
		runner = worker.NewQueueRunner(asynqClient)
		slog.Info("Queueing transcriptions to worker")
	} else {
		inline = worker.NewInlineRunner(ctx, processor)
		runner = inline
	}

	dispatcher := bot.NewDispatcher(tg, gate, runner)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(cfg, gate).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Bot started", "username", tg.Username(), "models", len(cfg.Transcription.Models))
		return dispatcher.Run(gctx, tg.Updates())
	})
	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		tg.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Bot stopped with error", "error", err)
	}

	if inline != nil {
		slog.Info("Waiting for in-flight transcriptions")
		inline.Wait()
	}
	slog.Info("Bot stopped")
}
