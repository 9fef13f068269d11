package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
)

// Processor handles one transcription payload.
type Processor interface {
	Process(ctx context.Context, payload TranscribeAudioPayload) Outcome
}

// InlineRunner processes each payload on its own goroutine in this process.
type InlineRunner struct {
	processor Processor
	// base outlives the update that submitted the job, so jobs are not
	// cancelled when the dispatcher moves on. Shutdown waits for them instead.
	base context.Context
	wg   sync.WaitGroup
}

func NewInlineRunner(base context.Context, processor Processor) *InlineRunner {
	return &InlineRunner{processor: processor, base: context.WithoutCancel(base)}
}

func (r *InlineRunner) Submit(ctx context.Context, payload TranscribeAudioPayload) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.processor.Process(r.base, payload)
	}()
	return nil
}

// Wait blocks until every submitted job has finished.
func (r *InlineRunner) Wait() {
	r.wg.Wait()
}

// enqueuer is the part of *asynq.Client the queue runner uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRunner hands payloads to a worker process through Redis.
type QueueRunner struct {
	client enqueuer
}

func NewQueueRunner(client enqueuer) *QueueRunner {
	return &QueueRunner{client: client}
}

func (r *QueueRunner) Submit(ctx context.Context, payload TranscribeAudioPayload) error {
	task, err := NewTranscribeAudioTask(payload)
	if err != nil {
		return fmt.Errorf("build task: %w", err)
	}
	opts := []asynq.Option{}
	if payload.RequestID != "" {
		opts = append(opts, asynq.TaskID(payload.RequestID))
	}
	info, err := r.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeTranscribeAudio, err)
	}
	slog.InfoContext(ctx, "Transcription enqueued", "task_id", info.ID, "queue", info.Queue, "request_id", payload.RequestID)
	return nil
}
