package worker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("scribe/worker")
)

// WorkerMetrics tracks transcription jobs regardless of which runner executed
// them. A nil *WorkerMetrics records nothing.
type WorkerMetrics struct {
	jobCounter  metric.Int64Counter
	jobDuration metric.Float64Histogram
	inFlight    metric.Int64UpDownCounter
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	jobCounter, err := meter.Int64Counter(
		"worker.jobs.total",
		metric.WithDescription("Total number of transcription jobs, by audio kind and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"worker.job.duration",
		metric.WithDescription("Duration of transcription jobs from download to cleanup"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1200),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"worker.jobs.in_flight",
		metric.WithDescription("Transcription jobs currently running"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{
		jobCounter:  jobCounter,
		jobDuration: jobDuration,
		inFlight:    inFlight,
	}, nil
}

// JobStarted must be paired with RecordJob.
func (m *WorkerMetrics) JobStarted(ctx context.Context, kind AudioKind) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("audio.kind", string(kind))))
}

func (m *WorkerMetrics) RecordJob(ctx context.Context, kind AudioKind, outcome Outcome, seconds float64) {
	if m == nil {
		return
	}

	kindAttr := attribute.String("audio.kind", string(kind))
	m.inFlight.Add(ctx, -1, metric.WithAttributes(kindAttr))
	m.jobCounter.Add(ctx, 1, metric.WithAttributes(kindAttr, attribute.String("outcome", string(outcome))))
	m.jobDuration.Record(ctx, seconds, metric.WithAttributes(kindAttr))
}
