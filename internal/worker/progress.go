package worker

import (
	"context"
	"log/slog"
)

// statusReporter keeps the user informed through a single status message.
type statusReporter struct {
	messenger Messenger
	chatID    int64
	messageID int
	log       *slog.Logger
}

func newStatusReporter(messenger Messenger, chatID int64, messageID int, log *slog.Logger) *statusReporter {
	return &statusReporter{messenger: messenger, chatID: chatID, messageID: messageID, log: log}
}

// Update replaces the status text. Failures are cosmetic and only logged.
func (s *statusReporter) Update(ctx context.Context, text string) {
	if s.messageID == 0 {
		return
	}
	if err := s.messenger.EditText(ctx, s.chatID, s.messageID, text); err != nil {
		s.log.Debug("Failed to update status message", "error", err)
	}
}

// Final delivers a terminal message. It falls back to a fresh message when
// the status message cannot be edited, so the user always sees the outcome.
func (s *statusReporter) Final(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	if s.messageID != 0 {
		err := s.messenger.EditText(ctx, s.chatID, s.messageID, text)
		if err == nil {
			return
		}
		s.log.Warn("Failed to edit status message, sending a new one", "error", err)
	}
	if _, err := s.messenger.SendText(ctx, s.chatID, text); err != nil {
		s.log.Error("Failed to deliver terminal message", "error", err)
	}
}

// Clear removes the status message once the document is delivered.
func (s *statusReporter) Clear(ctx context.Context) {
	if s.messageID == 0 {
		return
	}
	if err := s.messenger.DeleteMessage(context.WithoutCancel(ctx), s.chatID, s.messageID); err != nil {
		s.log.Debug("Failed to delete status message", "error", err)
	}
}
