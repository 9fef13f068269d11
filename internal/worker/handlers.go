package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// TaskHandler adapts a Processor to asynq.
type TaskHandler struct {
	processor Processor
}

func NewTaskHandler(processor Processor) *TaskHandler {
	return &TaskHandler{processor: processor}
}

// HandleTranscribeAudio reports a malformed payload as a non-retryable error.
// Otherwise it returns nil: the processor already told the user how it ended.
func (h *TaskHandler) HandleTranscribeAudio(ctx context.Context, t *asynq.Task) error {
	var payload TranscribeAudioPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	outcome := h.processor.Process(ctx, payload)
	slog.InfoContext(ctx, "Task processed", "type", t.Type(), "request_id", payload.RequestID, "outcome", outcome)
	return nil
}

// Handlers maps task types to their handler functions.
func (h *TaskHandler) Handlers() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeTranscribeAudio: h.HandleTranscribeAudio,
	}
}
