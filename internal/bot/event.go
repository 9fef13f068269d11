// Package bot routes Telegram updates to the command and audio handlers.
package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialchef/scribe/internal/worker"
)

type EventKind string

const (
	EventIgnored EventKind = "ignored"
	EventStart   EventKind = "start"
	EventAdd     EventKind = "add"
	EventAudio   EventKind = "audio"
)

// Event is the part of an update the handlers look at.
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	MessageID int
	// Args holds the command arguments, trimmed.
	Args string
	// Audio and FileID are set for EventAudio.
	Audio  worker.AudioKind
	FileID string
}

func FromUpdate(u tgbotapi.Update) Event {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Event{Kind: EventIgnored}
	}

	ev := Event{
		Kind:      EventIgnored,
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}

	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start", "help":
			ev.Kind = EventStart
		case "add":
			ev.Kind = EventAdd
			ev.Args = strings.TrimSpace(msg.CommandArguments())
		}
	case msg.Voice != nil:
		ev.Kind = EventAudio
		ev.Audio = worker.KindVoice
		ev.FileID = msg.Voice.FileID
	case msg.Audio != nil:
		ev.Kind = EventAudio
		ev.Audio = worker.KindAudio
		ev.FileID = msg.Audio.FileID
	}
	return ev
}
