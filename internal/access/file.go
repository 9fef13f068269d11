package access

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/socialchef/scribe/internal/errors"
)

// FileStore keeps one id per line in a plain text file.
type FileStore struct {
	path string
	// mu covers the check and the write of Append, and reads racing with it.
	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load never fails: an unreadable file is logged and treated as empty.
func (s *FileStore) Load(ctx context.Context) (IDSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		slog.WarnContext(ctx, "Failed to read allow-list, treating it as empty", "path", s.path, "error", err)
		return IDSet{}, nil
	}
	return parseLines(data), nil
}

func (s *FileStore) Append(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return false, errors.NewStorageError("failed to read allow-list", "ALLOWLIST_READ_ERROR", err)
	}
	if parseLines(data).Contains(id) {
		return false, nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, errors.NewStorageError("failed to create allow-list directory", "ALLOWLIST_WRITE_ERROR", err)
		}
	}

	line := strconv.FormatInt(id, 10) + "\n"
	if len(data) > 0 && data[len(data)-1] != '\n' {
		line = "\n" + line
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.NewStorageError("failed to open allow-list", "ALLOWLIST_WRITE_ERROR", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return false, errors.NewStorageError("failed to append to allow-list", "ALLOWLIST_WRITE_ERROR", err)
	}
	if err := f.Close(); err != nil {
		return false, errors.NewStorageError("failed to close allow-list", "ALLOWLIST_WRITE_ERROR", err)
	}

	slog.InfoContext(ctx, "Allow-list extended", "user_id", id, "path", s.path)
	return true, nil
}

func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func parseLines(data []byte) IDSet {
	ids := IDSet{}
	for _, line := range strings.Split(string(data), "\n") {
		if id, ok := ParseID(line); ok {
			ids[id] = struct{}{}
		}
	}
	return ids
}
