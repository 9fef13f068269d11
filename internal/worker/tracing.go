package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/scribe/internal/telemetry"
)

// OTelMiddleware starts a consumer span per task. Task ids are request ids, so
// the span can be matched with the bot-side logs.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)
		retried, _ := asynq.GetRetryCount(ctx)

		ctx, span := telemetry.Tracer("worker").Start(ctx, "task "+t.Type(), trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		span.SetAttributes(
			attribute.String("messaging.system", "asynq"),
			attribute.String("messaging.destination.name", queueName),
			attribute.String("request.id", taskID),
			attribute.String("task.type", t.Type()),
			attribute.Int("task.retry_count", retried),
			attribute.Int("task.payload_bytes", len(t.Payload())),
		)

		err := h.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("task.skip_retry", errors.Is(err, asynq.SkipRetry)))
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
