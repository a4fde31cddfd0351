// Package transcribe dispatches audio chunks to the transcription
// collaborator and folds the results back into the session transcript.
// It defines the collaborator interface plus an HTTP implementation and
// a degraded-mode mock.
package transcribe

import "context"

// Options carries optional per-call transcription parameters.
type Options struct {
	// Model selects the transcription model (service specific).
	Model string

	// Language is a hint for the spoken language (e.g. "en", "de").
	// Empty lets the service auto-detect.
	Language string
}

// Transcriber is the transcription collaborator contract. Implementations
// must respect context cancellation and return a *Error on failure.
// An empty text with a nil error is a valid "nothing recognized" result
// and produces no transcript entry.
type Transcriber interface {
	// Transcribe converts raw audio bytes into text.
	Transcribe(ctx context.Context, audio []byte, opts *Options) (string, error)

	// HealthCheck reports whether the service can currently transcribe.
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation in logs and readiness output.
	Name() string
}
