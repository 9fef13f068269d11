package transcription

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// AudioMIMEType derives the upload MIME type from the file extension.
func AudioMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(path)))
	if ext == "" {
		return "", fmt.Errorf("audio file %q has no extension", path)
	}

	switch ext {
	case ".ogg", ".oga", ".opus":
		return "audio/ogg", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".wav":
		return "audio/wav", nil
	case ".m4a", ".mp4":
		return "audio/mp4", nil
	case ".webm":
		return "audio/webm", nil
	case ".flac":
		return "audio/flac", nil
	case ".aac":
		return "audio/aac", nil
	}

	mimeType := mime.TypeByExtension(ext)
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", fmt.Errorf("unsupported audio file extension: %s", ext)
	}
	return mimeType, nil
}
