package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeTranscribeAudio = "transcribe:audio"
)

// AudioKind tells a voice note from an uploaded audio file.
type AudioKind string

const (
	KindVoice AudioKind = "voice"
	KindAudio AudioKind = "audio"
)

// Extension is the local file extension used for the downloaded source.
func (k AudioKind) Extension() string {
	if k == KindVoice {
		return ".ogg"
	}
	return ".mp3"
}

// TranscribeAudioPayload describes one audio message to transcribe.
// StatusMessageID is zero when no status message could be sent.
type TranscribeAudioPayload struct {
	RequestID       string    `json:"request_id"`
	UserID          int64     `json:"user_id"`
	ChatID          int64     `json:"chat_id"`
	MessageID       int       `json:"message_id"`
	StatusMessageID int       `json:"status_message_id,omitempty"`
	Kind            AudioKind `json:"kind"`
	FileID          string    `json:"file_id"`
}

func (p TranscribeAudioPayload) Validate() error {
	switch {
	case p.UserID == 0 || p.ChatID == 0:
		return fmt.Errorf("payload is missing user or chat id")
	case p.MessageID == 0:
		return fmt.Errorf("payload is missing message id")
	case p.FileID == "":
		return fmt.Errorf("payload is missing file id")
	case p.Kind != KindVoice && p.Kind != KindAudio:
		return fmt.Errorf("unknown audio kind %q", p.Kind)
	}
	return nil
}

// NewTranscribeAudioTask creates a new transcription task
func NewTranscribeAudioTask(payload TranscribeAudioPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// Retrying would repeat status messages the user has already seen.
	return asynq.NewTask(TypeTranscribeAudio, data, asynq.MaxRetry(0)), nil
}
