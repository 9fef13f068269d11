package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.ErrorContext(ctx, "Task failed", "type", task.Type(), "error", err)
			}),
		},
	), nil
}

// NewMux registers handlers behind the Sentry and tracing middleware.
func NewMux(handlers map[string]asynq.HandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(SentryMiddleware, OTelMiddleware)
	for taskType, handler := range handlers {
		mux.HandleFunc(taskType, handler)
	}
	return mux
}

// Start starts the server with the given handlers
func Start(srv *asynq.Server, handlers map[string]asynq.HandlerFunc) error {
	return srv.Start(NewMux(handlers))
}
