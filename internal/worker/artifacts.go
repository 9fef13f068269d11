package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/socialchef/scribe/internal/services/transcription"
)

const remoteCleanupTimeout = 30 * time.Second

// artifacts holds everything one request creates. Release runs on every exit
// path and never fails: cleanup errors are logged and dropped.
type artifacts struct {
	input  string
	output string
	remote *transcription.RemoteFile

	releaser RemoteReleaser
	log      *slog.Logger
}

func newArtifacts(tempDir string, payload TranscribeAudioPayload, releaser RemoteReleaser, log *slog.Logger) *artifacts {
	return &artifacts{
		input:    InputPath(tempDir, payload),
		output:   OutputPath(tempDir, payload),
		releaser: releaser,
		log:      log,
	}
}

// InputPath is where the downloaded source audio is stored.
func InputPath(tempDir string, payload TranscribeAudioPayload) string {
	return filepath.Join(tempDir, fmt.Sprintf("in_%d_%d%s", payload.UserID, payload.MessageID, payload.Kind.Extension()))
}

// OutputPath is where the transcript document is written.
func OutputPath(tempDir string, payload TranscribeAudioPayload) string {
	return filepath.Join(tempDir, fmt.Sprintf("transcription_%d_%d.txt", payload.UserID, payload.MessageID))
}

// Release removes the local files and the remote upload concurrently. The
// remote deletion gets its own deadline so a cancelled request still cleans up.
func (a *artifacts) Release(ctx context.Context) {
	tasks := []ParallelFunc{
		func(context.Context) error { return removeIfExists(a.input) },
		func(context.Context) error { return removeIfExists(a.output) },
	}
	if a.remote != nil && a.releaser != nil {
		remote := a.remote
		tasks = append(tasks, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteCleanupTimeout)
			defer cancel()
			if err := a.releaser.Delete(ctx, remote); err != nil {
				return fmt.Errorf("delete remote file %s: %w", remote.Name, err)
			}
			return nil
		})
	}

	result := RunParallel(context.WithoutCancel(ctx), tasks)
	for _, err := range result.Errors {
		a.log.Debug("Cleanup step failed", "error", err)
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
