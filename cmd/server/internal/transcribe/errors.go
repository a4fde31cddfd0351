package transcribe

import (
	"fmt"
	"time"
)

// ErrorCode classifies transcription failures for logs and metrics.
type ErrorCode string

const (
	// SERVICE_UNAVAILABLE network error or service not running
	SERVICE_UNAVAILABLE ErrorCode = "SERVICE_UNAVAILABLE"

	// HTTP_ERROR non-200 response from the transcription API
	HTTP_ERROR ErrorCode = "HTTP_ERROR"

	// BAD_RESPONSE response body could not be parsed
	BAD_RESPONSE ErrorCode = "BAD_RESPONSE"

	// TIMEOUT the collaborator call exceeded its deadline. Treated the
	// same as any other failure for the affected chunk.
	TIMEOUT ErrorCode = "TIMEOUT"
)

// Error is a typed transcription failure.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a typed transcription error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// CodeOf extracts the error code, defaulting to SERVICE_UNAVAILABLE for
// untyped errors.
func CodeOf(err error) ErrorCode {
	if te, ok := err.(*Error); ok {
		return te.Code
	}
	return SERVICE_UNAVAILABLE
}
