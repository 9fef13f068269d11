package worker

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/socialchef/scribe/internal/errors"
	"github.com/socialchef/scribe/internal/logger"
	"github.com/socialchef/scribe/internal/metrics"
	"github.com/socialchef/scribe/internal/sentry"
	"github.com/socialchef/scribe/internal/services/transcription"
)

// User-facing status texts.
const (
	MsgAccepted       = "⏳ Принял. Начинаю магию..."
	MsgUploading      = "☁️ Загружаю аудио в мозг Gemini..."
	MsgListening      = "🎧 Слушаю моделью: <b>%s</b>..."
	MsgSending        = "📤 Отправляю готовый документ..."
	MsgExhausted      = "❌ Все модели дали сбой. Лог: %s"
	MsgCriticalFailed = "❌ Критическая ошибка. Попробуйте ещё раз позже."
)

// Outcome is the terminal state of one request.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "failed"
)

// Messenger is the chat transport the processor talks through.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
	Download(ctx context.Context, fileID, dest string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request, observe transcription.Observer) (*transcription.Result, error)
}

// RemoteReleaser deletes uploads made on behalf of a request.
type RemoteReleaser interface {
	Delete(ctx context.Context, file *transcription.RemoteFile) error
}

type ProcessorConfig struct {
	TempDir string
	Models  []string
	Prompt  string
}

// AudioProcessor runs one audio message from download to cleanup.
type AudioProcessor struct {
	messenger   Messenger
	transcriber Transcriber
	releaser    RemoteReleaser
	cfg         ProcessorConfig
	metrics     *WorkerMetrics
}

func NewAudioProcessor(
	messenger Messenger,
	transcriber Transcriber,
	releaser RemoteReleaser,
	cfg ProcessorConfig,
	workerMetrics *WorkerMetrics,
) *AudioProcessor {
	return &AudioProcessor{
		messenger:   messenger,
		transcriber: transcriber,
		releaser:    releaser,
		cfg:         cfg,
		metrics:     workerMetrics,
	}
}

// Process never returns an error: every failure ends in exactly one terminal
// message to the user, and the request's artifacts are always released.
func (p *AudioProcessor) Process(ctx context.Context, payload TranscribeAudioPayload) (outcome Outcome) {
	start := time.Now()
	log := logger.WithRequest(ctx, payload.RequestID, payload.UserID)
	status := newStatusReporter(p.messenger, payload.ChatID, payload.StatusMessageID, log)
	art := newArtifacts(p.cfg.TempDir, payload, p.releaser, log)
	p.metrics.JobStarted(ctx, payload.Kind)

	defer func() {
		if r := recover(); r != nil {
			outcome = p.fail(ctx, log, status, payload, apperrors.NewInternalError("audio processing panicked", "PROCESSOR_PANIC", fmt.Errorf("%v", r)))
		}
		art.Release(ctx)

		elapsed := time.Since(start).Seconds()
		p.metrics.RecordJob(ctx, payload.Kind, outcome, elapsed)
		metrics.RecordRequest(ctx, string(outcome), elapsed)
		log.Info("Audio request finished", "outcome", outcome, "duration_s", elapsed)
	}()

	log.Info("Processing audio", "kind", payload.Kind, "message_id", payload.MessageID)

	if err := p.messenger.Download(ctx, payload.FileID, art.input); err != nil {
		return p.fail(ctx, log, status, payload, err)
	}

	status.Update(ctx, MsgUploading)

	result, err := p.transcriber.Transcribe(ctx, transcription.Request{
		AudioPath: art.input,
		Models:    p.cfg.Models,
		Prompt:    p.cfg.Prompt,
	}, func(ctx context.Context, _ int, model string) {
		status.Update(ctx, fmt.Sprintf(MsgListening, html.EscapeString(model)))
	})
	if result != nil {
		art.remote = result.Remote
	}
	if err != nil {
		return p.fail(ctx, log, status, payload, err)
	}

	if !result.Succeeded() {
		log.Warn("Every model failed", "diagnostics", result.Diagnostics())
		status.Final(ctx, fmt.Sprintf(MsgExhausted, html.EscapeString(result.Diagnostics())))
		return OutcomeExhausted
	}

	if err := WriteTranscript(art.output, result.Model, result.Text); err != nil {
		return p.fail(ctx, log, status, payload, err)
	}
	status.Update(ctx, MsgSending)
	if err := p.messenger.SendDocument(ctx, payload.ChatID, art.output, Caption(result.Model, result.Text)); err != nil {
		return p.fail(ctx, log, status, payload, err)
	}

	status.Clear(ctx)
	return OutcomeSucceeded
}

func (p *AudioProcessor) fail(ctx context.Context, log *slog.Logger, status *statusReporter, payload TranscribeAudioPayload, err error) Outcome {
	log.Error("Audio request failed", "error", err)
	sentry.CaptureError(ctx, err, map[string]string{
		"request_id": payload.RequestID,
		"user_id":    strconv.FormatInt(payload.UserID, 10),
		"kind":       string(payload.Kind),
	})
	status.Final(ctx, MsgCriticalFailed)
	return OutcomeFailed
}

// WriteTranscript writes the transcript document: a header naming the model,
// a separator line, then the text as returned.
func WriteTranscript(path, model, text string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ТРАНСКРИБАЦИЯ (Модель: %s)\n", model)
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n\n")
	b.WriteString(text)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Caption is the HTML caption attached to the transcript document.
func Caption(model, text string) string {
	return fmt.Sprintf("✅ <b>Готово!</b>\nМодель: %s\nСлов: %d", html.EscapeString(model), WordCount(text))
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
