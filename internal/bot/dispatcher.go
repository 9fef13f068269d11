package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/socialchef/scribe/internal/access"
	"github.com/socialchef/scribe/internal/metrics"
	"github.com/socialchef/scribe/internal/sentry"
	"github.com/socialchef/scribe/internal/worker"
)

const (
	MsgWelcome = "🎙 <b>Бот готов к работе!</b>\n" +
		"Я использую каскад моделей Gemini.\n" +
		"Просто перешли мне голосовое или аудиофайл."
	MsgDenied     = "⛔ Нет доступа. Ваш ID: %d"
	MsgIntruder   = "🔔 Кто-то ломится в бота! ID: %d"
	MsgAddUsage   = "Ошибка. Пиши так: /add 12345678"
	MsgUserAdded  = "✅ Пользователь %d добавлен в базу."
	MsgUserExists = "ℹ️ Пользователь %d уже есть в базе."
	MsgAddFailed  = "❌ Не удалось сохранить пользователя. Попробуйте позже."
)

type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
}

type Gate interface {
	AdminID() int64
	IsAdmin(userID int64) bool
	IsAuthorized(ctx context.Context, userID int64) bool
	Grant(ctx context.Context, userID int64) (bool, error)
}

// AudioRunner takes an accepted audio message off the update loop.
type AudioRunner interface {
	Submit(ctx context.Context, payload worker.TranscribeAudioPayload) error
}

type handlerFunc func(ctx context.Context, ev Event)

type Dispatcher struct {
	messenger Messenger
	gate      Gate
	runner    AudioRunner
	handlers  map[EventKind]handlerFunc
}

func NewDispatcher(messenger Messenger, gate Gate, runner AudioRunner) *Dispatcher {
	d := &Dispatcher{
		messenger: messenger,
		gate:      gate,
		runner:    runner,
	}
	d.handlers = map[EventKind]handlerFunc{
		EventStart: d.handleStart,
		EventAdd:   d.handleAdd,
		EventAudio: d.handleAudio,
	}
	return d
}

// Run dispatches updates until ctx is done or the channel is closed.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.Dispatch(ctx, FromUpdate(u))
		}
	}
}

// Dispatch runs the handler for ev. A panicking handler is reported and
// swallowed so the update loop keeps going.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	handler, ok := d.handlers[ev.Kind]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s handler: %v", ev.Kind, r)
			slog.ErrorContext(ctx, "Handler panicked", "event", ev.Kind, "user_id", ev.UserID, "error", err)
			sentry.CaptureError(ctx, err, map[string]string{"event": string(ev.Kind)})
		}
	}()

	handler(ctx, ev)
}

func (d *Dispatcher) handleStart(ctx context.Context, ev Event) {
	if d.gate.IsAuthorized(ctx, ev.UserID) {
		d.reply(ctx, ev.ChatID, MsgWelcome)
		return
	}

	metrics.RecordAccessDenied(ctx, "start")
	slog.InfoContext(ctx, "Access requested", "user_id", ev.UserID)
	d.reply(ctx, ev.ChatID, fmt.Sprintf(MsgDenied, ev.UserID))

	if _, err := d.messenger.SendText(ctx, d.gate.AdminID(), fmt.Sprintf(MsgIntruder, ev.UserID)); err != nil {
		slog.DebugContext(ctx, "Failed to notify admin", "error", err)
	}
}

func (d *Dispatcher) handleAdd(ctx context.Context, ev Event) {
	if !d.gate.IsAdmin(ev.UserID) {
		return
	}

	fields := strings.Fields(ev.Args)
	if len(fields) == 0 {
		d.reply(ctx, ev.ChatID, MsgAddUsage)
		return
	}
	id, ok := access.ParseID(fields[0])
	if !ok || id <= 0 {
		d.reply(ctx, ev.ChatID, MsgAddUsage)
		return
	}

	added, err := d.gate.Grant(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to extend allow-list", "user_id", id, "error", err)
		sentry.CaptureError(ctx, err, map[string]string{"event": string(EventAdd)})
		d.reply(ctx, ev.ChatID, MsgAddFailed)
		return
	}
	if added {
		d.reply(ctx, ev.ChatID, fmt.Sprintf(MsgUserAdded, id))
		return
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf(MsgUserExists, id))
}

func (d *Dispatcher) handleAudio(ctx context.Context, ev Event) {
	if !d.gate.IsAuthorized(ctx, ev.UserID) {
		metrics.RecordAccessDenied(ctx, "audio")
		return
	}

	payload := worker.TranscribeAudioPayload{
		RequestID: uuid.NewString(),
		UserID:    ev.UserID,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		Kind:      ev.Audio,
		FileID:    ev.FileID,
	}

	statusID, err := d.messenger.SendText(ctx, ev.ChatID, worker.MsgAccepted)
	if err != nil {
		slog.WarnContext(ctx, "Failed to send status message", "request_id", payload.RequestID, "error", err)
	}
	payload.StatusMessageID = statusID

	if err := d.runner.Submit(ctx, payload); err != nil {
		slog.ErrorContext(ctx, "Failed to submit audio", "request_id", payload.RequestID, "error", err)
		sentry.CaptureError(ctx, err, map[string]string{"event": string(EventAudio), "request_id": payload.RequestID})
		if statusID == 0 || d.messenger.EditText(ctx, ev.ChatID, statusID, worker.MsgCriticalFailed) != nil {
			d.reply(ctx, ev.ChatID, worker.MsgCriticalFailed)
		}
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if _, err := d.messenger.SendText(ctx, chatID, text); err != nil {
		slog.WarnContext(ctx, "Failed to reply", "chat_id", chatID, "error", err)
	}
}
