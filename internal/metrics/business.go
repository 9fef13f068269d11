package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("scribe/business")

	// Request metrics
	TranscriptionRequestsTotal metric.Int64Counter
	TranscriptionDuration      metric.Float64Histogram

	// Cascade metrics
	ModelAttemptsTotal    metric.Int64Counter
	ModelAttemptDuration  metric.Float64Histogram
	CascadeExhaustedTotal metric.Int64Counter

	// Access metrics
	AccessDeniedTotal metric.Int64Counter
)

func Init() error {
	var err error

	TranscriptionRequestsTotal, err = meter.Int64Counter(
		"transcription.requests.total",
		metric.WithDescription("Total number of audio messages handled, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	TranscriptionDuration, err = meter.Float64Histogram(
		"transcription.request.duration",
		metric.WithDescription("Duration of one audio message from download to cleanup"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	ModelAttemptsTotal, err = meter.Int64Counter(
		"transcription.model.attempts.total",
		metric.WithDescription("Total number of cascade attempts, by model and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ModelAttemptDuration, err = meter.Float64Histogram(
		"transcription.model.attempt.duration",
		metric.WithDescription("Duration of a single model invocation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return err
	}

	CascadeExhaustedTotal, err = meter.Int64Counter(
		"transcription.cascade.exhausted.total",
		metric.WithDescription("Total number of requests where every candidate model failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	AccessDeniedTotal, err = meter.Int64Counter(
		"access.denied.total",
		metric.WithDescription("Total number of requests rejected by the authorization gate"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordAttempt is safe to call before Init.
func RecordAttempt(ctx context.Context, model, outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("outcome", outcome))
	if ModelAttemptsTotal != nil {
		ModelAttemptsTotal.Add(ctx, 1, attrs)
	}
	if ModelAttemptDuration != nil {
		ModelAttemptDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("model", model)))
	}
}

func RecordExhausted(ctx context.Context) {
	if CascadeExhaustedTotal != nil {
		CascadeExhaustedTotal.Add(ctx, 1)
	}
}

func RecordRequest(ctx context.Context, outcome string, seconds float64) {
	if TranscriptionRequestsTotal != nil {
		TranscriptionRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if TranscriptionDuration != nil {
		TranscriptionDuration.Record(ctx, seconds)
	}
}

func RecordAccessDenied(ctx context.Context, surface string) {
	if AccessDeniedTotal != nil {
		AccessDeniedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", surface)))
	}
}
