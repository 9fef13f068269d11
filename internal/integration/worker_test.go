package integration

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/scribe/internal/bot"
	"github.com/socialchef/scribe/internal/worker"
)

func TestVoiceMessage_FirstModelSucceeds(t *testing.T) {
	f := setupTestFixtures(t, "model-a", "model-b")
	f.service.Answer("model-a", "Спикер 1: привет мир")

	f.dispatch(t, voiceEvent(adminID, 55))

	assert.Equal(t, []string{"model-a"}, f.service.Invoked())
	assert.Equal(t, []string{fmt.Sprintf("in_%d_55.ogg", adminID)}, f.service.Uploads())

	docs := f.messenger.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, adminID, docs[0].ChatID)
	assert.Equal(t, fmt.Sprintf("transcription_%d_55.txt", adminID), docs[0].Name)
	assert.Equal(t, "ТРАНСКРИБАЦИЯ (Модель: model-a)\n"+strings.Repeat("=", 30)+"\n\nСпикер 1: привет мир", docs[0].Content)
	assert.Equal(t, "✅ <b>Готово!</b>\nМодель: model-a\nСлов: 4", docs[0].Caption)

	sent := f.messenger.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, worker.MsgAccepted, sent[0].Text)
	statusID := sent[0].ID

	assert.Equal(t, []string{
		worker.MsgUploading,
		"🎧 Слушаю моделью: <b>model-a</b>...",
		worker.MsgSending,
	}, f.messenger.Edits(statusID))
	assert.Equal(t, []int{statusID}, f.messenger.Deleted())

	assert.Empty(t, f.tempFiles(t), "local artifacts must be removed")
	assert.Equal(t, []string{"files/upload-1"}, f.service.Deleted())
}

func TestVoiceMessage_FallsBackThroughCascade(t *testing.T) {
	f := setupTestFixtures(t, "model-a", "model-b", "model-c")
	f.service.
		Fail("model-a", errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")).
		Answer("model-b", "   ").
		Answer("model-c", "done")

	f.dispatch(t, voiceEvent(adminID, 56))

	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, f.service.Invoked())

	docs := f.messenger.Documents()
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "(Модель: model-c)")

	statusID := f.messenger.Sent()[0].ID
	edits := f.messenger.Edits(statusID)
	assert.Contains(t, edits, "🎧 Слушаю моделью: <b>model-a</b>...")
	assert.Contains(t, edits, "🎧 Слушаю моделью: <b>model-b</b>...")
	assert.Contains(t, edits, "🎧 Слушаю моделью: <b>model-c</b>...")

	assert.Empty(t, f.tempFiles(t))
	assert.Len(t, f.service.Deleted(), 1)
}

func TestVoiceMessage_AllModelsFail(t *testing.T) {
	f := setupTestFixtures(t, "model-a", "model-b")
	f.service.Fail("model-a", errors.New("quota exceeded for project"))

	f.dispatch(t, voiceEvent(adminID, 57))

	assert.Equal(t, []string{"model-a", "model-b"}, f.service.Invoked())
	assert.Empty(t, f.messenger.Documents())

	statusID := f.messenger.Sent()[0].ID
	edits := f.messenger.Edits(statusID)
	require.NotEmpty(t, edits)
	assert.Equal(t, "❌ Все модели дали сбой. Лог: [model-a: quota exceeded, model-b: error]", edits[len(edits)-1])
	assert.Empty(t, f.messenger.Deleted())

	assert.Empty(t, f.tempFiles(t))
	assert.Len(t, f.service.Deleted(), 1, "the upload is released even when every model fails")
}

func TestVoiceMessage_DownloadFails(t *testing.T) {
	f := setupTestFixtures(t, "model-a")
	f.messenger.audio = nil

	f.dispatch(t, voiceEvent(adminID, 58))

	assert.Empty(t, f.service.Invoked())
	statusID := f.messenger.Sent()[0].ID
	assert.Equal(t, []string{worker.MsgCriticalFailed}, f.messenger.Edits(statusID))
	assert.Empty(t, f.tempFiles(t))
	assert.Empty(t, f.service.Deleted())
}

func TestVoiceMessage_UnauthorizedIsIgnored(t *testing.T) {
	f := setupTestFixtures(t, "model-a")
	f.service.Answer("model-a", "secret")

	f.dispatch(t, voiceEvent(777, 59))

	assert.Empty(t, f.messenger.Sent())
	assert.Empty(t, f.service.Invoked())
}

func TestAdminGrantsAccess(t *testing.T) {
	const user int64 = 4242
	f := setupTestFixtures(t, "model-a")
	f.service.Answer("model-a", "hello")

	f.dispatch(t, startEvent(user))
	assert.Equal(t, []string{fmt.Sprintf(bot.MsgDenied, user)}, f.messenger.SentTo(user))
	assert.Equal(t, []string{fmt.Sprintf(bot.MsgIntruder, user)}, f.messenger.SentTo(adminID))

	f.dispatch(t, addEvent(adminID, fmt.Sprintf(" %d ", user)))
	assert.Contains(t, f.messenger.SentTo(adminID), fmt.Sprintf(bot.MsgUserAdded, user))

	f.dispatch(t, addEvent(adminID, fmt.Sprintf("%d", user)))
	assert.Contains(t, f.messenger.SentTo(adminID), fmt.Sprintf(bot.MsgUserExists, user))

	f.dispatch(t, startEvent(user))
	assert.Contains(t, f.messenger.SentTo(user), bot.MsgWelcome)

	f.dispatch(t, voiceEvent(user, 60))
	require.Len(t, f.messenger.Documents(), 1)
	assert.Equal(t, user, f.messenger.Documents()[0].ChatID)

	ids, err := f.gate.List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{user}, ids)
}

func TestNonAdminCannotGrant(t *testing.T) {
	const user int64 = 4242
	f := setupTestFixtures(t, "model-a")

	f.dispatch(t, addEvent(user, "999"))

	assert.Empty(t, f.messenger.Sent())
	assert.False(t, f.gate.IsAuthorized(t.Context(), 999))
}

func TestAudioFileUsesMP3Extension(t *testing.T) {
	f := setupTestFixtures(t, "model-a")
	f.service.Answer("model-a", "text")

	ev := voiceEvent(adminID, 61)
	ev.Audio = worker.KindAudio
	f.dispatch(t, ev)

	require.Len(t, f.messenger.Documents(), 1)
	assert.Equal(t, []string{fmt.Sprintf("in_%d_61.mp3", adminID)}, f.service.Uploads())
	assert.Equal(t, []string{"files/upload-1"}, f.service.Deleted())
	assert.Empty(t, f.tempFiles(t))
}
