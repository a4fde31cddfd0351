package transcribe

import (
	"context"
	"log/slog"
)

// MockTranscriber is the degraded-mode fallback used when no
// transcription service is configured. It returns an empty result with a
// nil error so the ingest pipeline keeps flowing: raw audio records are
// still appended, no transcript entries are produced, and nothing blocks.
//
// HealthCheck always reports false so readiness output shows the server
// is operating without transcription.
type MockTranscriber struct {
	Logger *slog.Logger
}

// Transcribe logs a warning and returns an empty text with nil error.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, opts *Options) (string, error) {
	if m.Logger != nil {
		m.Logger.Warn("mock transcriber invoked (degraded mode)", "audio_bytes", len(audio))
	}
	return "", nil
}

// HealthCheck reports the degraded state.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name identifies this implementation.
func (m *MockTranscriber) Name() string {
	return "mock-degraded"
}
