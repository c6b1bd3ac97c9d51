package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing the message boundary
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindRateLimit  ErrorKind = "rate_limit"
	KindConfig     ErrorKind = "config"
	KindUpstream   ErrorKind = "upstream"
	KindNetwork    ErrorKind = "network"
	KindAuth       ErrorKind = "auth"
	KindTimeout    ErrorKind = "timeout"
	KindNotFound   ErrorKind = "not_found"
	KindInternal   ErrorKind = "internal"
)

// AppError represents a custom application error with context
type AppError struct {
	Code    int                    // HTTP status code
	Kind    ErrorKind              // Failure class
	Message string                 // User-friendly message
	Err     error                  // Underlying error
	Context map[string]interface{} // Additional context
}

// NewAppError creates a new AppError
func NewAppError(code int, kind ErrorKind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// KindOf reports the kind of the first AppError in err's chain
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// UpstreamStatus returns the upstream HTTP status carried by an upstream error, or 0
func UpstreamStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind == KindUpstream {
		if status, ok := appErr.Context["status"].(int); ok {
			return status
		}
	}
	return 0
}

// Common error constructors
func ValidationError(message string, err error) *AppError {
	return NewAppError(400, KindValidation, message, err)
}

func RateLimitError(message string) *AppError {
	return NewAppError(429, KindRateLimit, message, nil)
}

func ConfigError(message string) *AppError {
	return NewAppError(412, KindConfig, message, nil)
}

func UpstreamError(status int) *AppError {
	return NewAppError(502, KindUpstream, fmt.Sprintf("OpenAI API error: %d", status), nil).
		WithContext("status", status)
}

func NetworkError(err error) *AppError {
	return NewAppError(502, KindNetwork, "network error", err)
}

func AuthError(message string, err error) *AppError {
	return NewAppError(401, KindAuth, message, err)
}

func TimeoutError(message string) *AppError {
	return NewAppError(504, KindTimeout, message, nil)
}

func NotFoundError(message string, err error) *AppError {
	return NewAppError(404, KindNotFound, message, err)
}

func InternalServerError(message string, err error) *AppError {
	return NewAppError(500, KindInternal, message, err)
}
