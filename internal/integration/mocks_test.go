// Package integration runs the bot end to end with the chat transport and the
// transcription service replaced by in-memory fakes.
package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socialchef/scribe/internal/access"
	"github.com/socialchef/scribe/internal/bot"
	"github.com/socialchef/scribe/internal/services/transcription"
	"github.com/socialchef/scribe/internal/worker"
)

const adminID int64 = 1000

// ============================================================================
// Chat transport fake
// ============================================================================

type sentMessage struct {
	ChatID int64
	ID     int
	Text   string
}

type sentDocument struct {
	ChatID  int64
	Name    string
	Content string
	Caption string
}

// FakeMessenger satisfies both bot.Messenger and worker.Messenger.
type FakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	edits     map[int][]string
	deleted   []int
	documents []sentDocument
	audio     []byte
}

func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{
		nextID: 100,
		edits:  make(map[int][]string),
		audio:  []byte("OggS fake voice"),
	}
}

func (m *FakeMessenger) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ID: m.nextID, Text: text})
	return m.nextID, nil
}

func (m *FakeMessenger) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits[messageID] = append(m.edits[messageID], text)
	return nil
}

func (m *FakeMessenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *FakeMessenger) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, sentDocument{
		ChatID:  chatID,
		Name:    filepath.Base(path),
		Content: string(content),
		Caption: caption,
	})
	return nil
}

func (m *FakeMessenger) Download(ctx context.Context, fileID, dest string) error {
	m.mu.Lock()
	audio := m.audio
	m.mu.Unlock()
	if audio == nil {
		return errors.New("file unavailable")
	}
	return os.WriteFile(dest, audio, 0o644)
}

func (m *FakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *FakeMessenger) SentTo(chatID int64) []string {
	var texts []string
	for _, msg := range m.Sent() {
		if msg.ChatID == chatID {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (m *FakeMessenger) Edits(messageID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.edits[messageID]...)
}

func (m *FakeMessenger) Deleted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.deleted...)
}

func (m *FakeMessenger) Documents() []sentDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentDocument(nil), m.documents...)
}

// ============================================================================
// Transcription service fake
// ============================================================================

// FakeService answers Invoke from a per-model script. Models missing from the
// script fail with a generic error.
type FakeService struct {
	mu        sync.Mutex
	answers   map[string]string
	failures  map[string]error
	uploadErr error
	invoked   []string
	uploads   []string
	deleted   []string
}

func NewFakeService() *FakeService {
	return &FakeService{
		answers:  make(map[string]string),
		failures: make(map[string]error),
	}
}

func (s *FakeService) Answer(model, text string) *FakeService {
	s.answers[model] = text
	return s
}

func (s *FakeService) Fail(model string, err error) *FakeService {
	s.failures[model] = err
	return s
}

func (s *FakeService) Upload(ctx context.Context, localPath string) (*transcription.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	mimeType, err := transcription.AudioMIMEType(localPath)
	if err != nil {
		return nil, err
	}
	s.uploads = append(s.uploads, filepath.Base(localPath))
	return &transcription.RemoteFile{
		Name:     fmt.Sprintf("files/upload-%d", len(s.uploads)),
		URI:      "https://example.test/files/upload",
		MIMEType: mimeType,
	}, nil
}

func (s *FakeService) Invoke(ctx context.Context, model, prompt string, file *transcription.RemoteFile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoked = append(s.invoked, model)
	if err, ok := s.failures[model]; ok {
		return "", err
	}
	if text, ok := s.answers[model]; ok {
		return text, nil
	}
	return "", errors.New("model unavailable")
}

func (s *FakeService) Delete(ctx context.Context, file *transcription.RemoteFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, file.Name)
	return nil
}

func (s *FakeService) Invoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.invoked...)
}

func (s *FakeService) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

func (s *FakeService) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// ============================================================================
// Fixtures
// ============================================================================

type testFixtures struct {
	messenger  *FakeMessenger
	service    *FakeService
	gate       *access.Gate
	runner     *worker.InlineRunner
	dispatcher *bot.Dispatcher
	tempDir    string
	accessFile string
	models     []string
}

func setupTestFixtures(t *testing.T, models ...string) *testFixtures {
	t.Helper()

	dir := t.TempDir()
	tempDir := filepath.Join(dir, "temp_data")
	require.NoError(t, os.MkdirAll(tempDir, 0o755))
	accessFile := filepath.Join(dir, "allowed_users.txt")

	messenger := NewFakeMessenger()
	service := NewFakeService()
	gate := access.NewGate(adminID, access.NewFileStore(accessFile))
	engine := transcription.NewEngine(service, transcription.DelayPolicy{Pause: time.Millisecond}, time.Second)

	processor := worker.NewAudioProcessor(messenger, engine, service, worker.ProcessorConfig{
		TempDir: tempDir,
		Models:  models,
		Prompt:  "transcribe",
	}, nil)
	runner := worker.NewInlineRunner(context.Background(), processor)

	return &testFixtures{
		messenger:  messenger,
		service:    service,
		gate:       gate,
		runner:     runner,
		dispatcher: bot.NewDispatcher(messenger, gate, runner),
		tempDir:    tempDir,
		accessFile: accessFile,
		models:     models,
	}
}

// dispatch delivers ev and waits for any job it started.
func (f *testFixtures) dispatch(t *testing.T, ev bot.Event) {
	t.Helper()
	f.dispatcher.Dispatch(context.Background(), ev)
	f.runner.Wait()
}

func (f *testFixtures) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func voiceEvent(userID int64, messageID int) bot.Event {
	return bot.Event{
		Kind:      bot.EventAudio,
		UserID:    userID,
		ChatID:    userID,
		MessageID: messageID,
		Audio:     worker.KindVoice,
		FileID:    fmt.Sprintf("voice-%d", messageID),
	}
}

func addEvent(userID int64, args string) bot.Event {
	return bot.Event{Kind: bot.EventAdd, UserID: userID, ChatID: userID, MessageID: 1, Args: args}
}

func startEvent(userID int64) bot.Event {
	return bot.Event{Kind: bot.EventStart, UserID: userID, ChatID: userID, MessageID: 1}
}
