// Package transcription turns an uploaded audio file into text by trying an
// ordered list of models until one answers.
package transcription

import (
	"context"
)

// RemoteFile is an audio file held by the transcription service. It must be
// released with Service.Delete once the request is done.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
}

// Service is the remote model provider. Upload once, Invoke per model, then Delete.
type Service interface {
	Upload(ctx context.Context, localPath string) (*RemoteFile, error)
	Invoke(ctx context.Context, model, prompt string, file *RemoteFile) (string, error)
	Delete(ctx context.Context, file *RemoteFile) error
}
