package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeDownload      ErrorType = "DOWNLOAD_ERROR"
	ErrorTypeTranscription ErrorType = "TRANSCRIPTION_ERROR"
	ErrorTypeStorage       ErrorType = "STORAGE_ERROR"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// As returns the first AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewConfigurationError creates a new configuration error. These are fatal at startup.
func NewConfigurationError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeConfiguration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Recovery:      "Set the missing environment variable and restart the process.",
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewDownloadError creates a new error for failures fetching inbound audio (502)
func NewDownloadError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeDownload,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Send the audio again; very large files need a local Bot API server.",
		Err:           err,
	}
}

// NewTranscriptionError creates a new transcription error (500)
func NewTranscriptionError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeTranscription,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try a shorter or clearer recording, or wait for model quotas to reset.",
		Err:           err,
	}
}

// NewStorageError creates a new error for allow-list and artifact persistence (500)
func NewStorageError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeStorage,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Check that the data directory is writable.",
		Err:           err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Err:           err,
	}
}
