package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/socialchef/scribe/internal/errors"
	"github.com/socialchef/scribe/internal/httpclient"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultMaxPolls      = 90
	defaultUploadTimeout = 5 * time.Minute
)

// filesAPI and modelsAPI are the parts of *genai.Client the service uses.
type filesAPI interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiService talks to the Gemini API through the Files and Models endpoints.
type GeminiService struct {
	files         filesAPI
	models        modelsAPI
	pollInterval  time.Duration
	maxPolls      int
	uploadTimeout time.Duration
}

func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpclient.NewProviderClient("gemini", 0),
	})
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to create Gemini client: %v", err), "GEMINI_CLIENT_ERROR")
	}
	return newGeminiService(client.Files, client.Models), nil
}

func newGeminiService(files filesAPI, models modelsAPI) *GeminiService {
	return &GeminiService{
		files:         files,
		models:        models,
		pollInterval:  defaultPollInterval,
		maxPolls:      defaultMaxPolls,
		uploadTimeout: defaultUploadTimeout,
	}
}

// Upload sends the file and waits until Gemini has finished processing it.
func (s *GeminiService) Upload(ctx context.Context, localPath string) (*RemoteFile, error) {
	mimeType, err := AudioMIMEType(localPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	file, err := s.files.UploadFromPath(ctx, localPath, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("gemini upload: %w", err)
	}
	remote := &RemoteFile{Name: file.Name, URI: file.URI, MIMEType: mimeType}
	slog.InfoContext(ctx, "Audio uploaded to Gemini", "file", file.Name, "mime_type", mimeType)

	if err := s.waitActive(ctx, remote, file); err != nil {
		// The caller never sees this handle, so release it here.
		cleanupCtx, cancelCleanup := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancelCleanup()
		if delErr := s.Delete(cleanupCtx, remote); delErr != nil {
			slog.DebugContext(ctx, "Failed to delete unprocessed Gemini file", "file", remote.Name, "error", delErr)
		}
		return nil, err
	}
	return remote, nil
}

func (s *GeminiService) waitActive(ctx context.Context, remote *RemoteFile, file *genai.File) error {
	var err error
	for polls := 0; file.State == genai.FileStateProcessing; polls++ {
		if polls >= s.maxPolls {
			return fmt.Errorf("gemini file %s still processing after %d polls", remote.Name, polls)
		}
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
		file, err = s.files.Get(ctx, remote.Name, nil)
		if err != nil {
			return fmt.Errorf("gemini file status: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return fmt.Errorf("gemini could not process file %s", remote.Name)
	}
	if file.URI != "" {
		remote.URI = file.URI
	}
	return nil
}

func (s *GeminiService) Invoke(ctx context.Context, model, prompt string, file *RemoteFile) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(prompt),
				genai.NewPartFromURI(file.URI, file.MIMEType),
			},
			genai.RoleUser,
		),
	}

	resp, err := s.models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (s *GeminiService) Delete(ctx context.Context, file *RemoteFile) error {
	if file == nil || file.Name == "" {
		return nil
	}
	_, err := s.files.Delete(ctx, file.Name, nil)
	return err
}
