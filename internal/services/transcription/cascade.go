package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/socialchef/scribe/internal/errors"
	"github.com/socialchef/scribe/internal/metrics"
	"github.com/socialchef/scribe/internal/telemetry"
	"github.com/socialchef/scribe/internal/utils"
)

var (
	timeoutPatterns = []string{"deadline exceeded", "timeout", "DEADLINE_EXCEEDED"}
	quotaPatterns   = []string{"RESOURCE_EXHAUSTED", "quota", "rate limit", "Error 429"}
)

// DelayPolicy spaces out attempts. No pause precedes the first model.
type DelayPolicy struct {
	Pause time.Duration
}

// Before returns how long to wait before the attempt at index n.
func (p DelayPolicy) Before(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return p.Pause
}

// Request is one audio file and the models to try on it.
type Request struct {
	AudioPath string
	Models    []string
	Prompt    string
}

// Observer is told about each model right before it is invoked.
type Observer func(ctx context.Context, index int, model string)

// Engine runs the model cascade against a Service.
type Engine struct {
	service     Service
	delay       DelayPolicy
	callTimeout time.Duration
}

// NewEngine builds an Engine. A callTimeout <= 0 leaves calls without a deadline.
func NewEngine(service Service, delay DelayPolicy, callTimeout time.Duration) *Engine {
	return &Engine{
		service:     service,
		delay:       delay,
		callTimeout: callTimeout,
	}
}

// Transcribe uploads the audio once and tries req.Models in order. Each model
// is invoked at most once and the first non-empty answer wins.
//
// An upload failure returns a nil Result. Otherwise the Result is returned even
// when every model failed or ctx was cancelled mid-way, so the caller can
// release Result.Remote. A panic in observe surfaces as an internal error
// alongside that Result.
func (e *Engine) Transcribe(ctx context.Context, req Request, observe Observer) (result *Result, err error) {
	ctx, span := telemetry.Tracer("transcription").Start(ctx, "transcription.cascade")
	defer span.End()
	span.SetAttributes(attribute.Int("cascade.candidates", len(req.Models)))

	remote, err := e.service.Upload(ctx, req.AudioPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, apperrors.NewTranscriptionError("failed to upload audio", "UPLOAD_FAILED", err)
	}

	result = &Result{Remote: remote}
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "cascade panicked")
			err = apperrors.NewInternalError("transcription cascade panicked", "CASCADE_PANIC", fmt.Errorf("%v", r))
		}
	}()

	for i, model := range req.Models {
		if err := utils.Sleep(ctx, e.delay.Before(i)); err != nil {
			return result, err
		}
		if observe != nil {
			observe(ctx, i, model)
		}

		attempt, text := e.attempt(ctx, model, req.Prompt, remote)
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Outcome == OutcomeSuccess {
			result.Text = text
			result.Model = model
			span.SetAttributes(attribute.String("cascade.model", model), attribute.Int("cascade.attempts", i+1))
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	slog.WarnContext(ctx, "All models failed", "diagnostics", result.Diagnostics())
	span.SetStatus(codes.Error, "cascade exhausted")
	metrics.RecordExhausted(ctx)
	return result, nil
}

func (e *Engine) attempt(ctx context.Context, model, prompt string, remote *RemoteFile) (Attempt, string) {
	ctx, span := telemetry.Tracer("transcription").Start(ctx, "transcription.attempt")
	defer span.End()
	span.SetAttributes(attribute.String("model", model))

	start := time.Now()
	text, err := utils.WithTimeout(ctx, e.callTimeout, func(ctx context.Context) (text string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperrors.NewInternalError(fmt.Sprintf("model %s panicked", model), "MODEL_PANIC", fmt.Errorf("%v", r))
			}
		}()
		return e.service.Invoke(ctx, model, prompt, remote)
	})
	elapsed := time.Since(start).Seconds()

	attempt := Attempt{Model: model, Outcome: OutcomeSuccess}
	switch {
	case err != nil:
		attempt.Outcome = OutcomeFailure
		attempt.Reason = classify(err)
		attempt.Err = err
	case strings.TrimSpace(text) == "":
		attempt.Outcome = OutcomeFailure
		attempt.Reason = ReasonEmpty
	}

	metrics.RecordAttempt(ctx, model, string(attempt.Outcome), elapsed)
	if attempt.Outcome == OutcomeFailure {
		span.SetStatus(codes.Error, attempt.Reason)
		slog.InfoContext(ctx, "Model attempt failed, moving on",
			"model", model,
			"reason", attempt.Reason,
			"error", attempt.Err,
			"duration_s", elapsed)
		return attempt, ""
	}

	slog.InfoContext(ctx, "Model attempt succeeded", "model", model, "duration_s", elapsed)
	return attempt, text
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), utils.ContainsAny(err, timeoutPatterns):
		return ReasonTimeout
	case utils.ContainsAny(err, quotaPatterns):
		return ReasonQuota
	default:
		return ReasonError
	}
}
