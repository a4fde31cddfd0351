// Package summarize defines the summarization collaborator contract,
// an HTTP implementation, and the mechanical fallback used when the
// collaborator fails or is not configured.
package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// Summarizer is the summarization collaborator contract. Summarize reads
// the full session snapshot; QuickSummarize produces the lightweight,
// non-persisted text used by quick-summary requests.
type Summarizer interface {
	Summarize(ctx context.Context, snap session.Snapshot) (*session.Summary, error)
	QuickSummarize(ctx context.Context, snap session.Snapshot) (string, error)
	Name() string
}

// Error is a typed summarization failure (unreachable service, malformed
// or unparsable model output).
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("summarization failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("summarization failed: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// FallbackSummarizer is the degraded-mode implementation used when no
// summarization service is configured. It builds summaries mechanically
// from the snapshot and never fails.
type FallbackSummarizer struct{}

func (FallbackSummarizer) Summarize(ctx context.Context, snap session.Snapshot) (*session.Summary, error) {
	return FallbackSummary(snap), nil
}

func (FallbackSummarizer) QuickSummarize(ctx context.Context, snap session.Snapshot) (string, error) {
	return quickFallbackText(snap), nil
}

func (FallbackSummarizer) Name() string { return "fallback" }

// durationOf renders the session duration, using "ongoing" while the
// session has no end timestamp yet (quick summaries of active meetings).
func durationOf(snap session.Snapshot) string {
	if d, ok := snap.Duration(); ok {
		return session.FormatDuration(d)
	}
	return "ongoing"
}

func quickFallbackText(snap session.Snapshot) string {
	elapsed := time.Since(snap.CreatedAt)
	if d, ok := snap.Duration(); ok {
		// Ended sessions report their fixed duration, not wall time.
		elapsed = d
	}
	return fmt.Sprintf("%d participants, %d transcript entries, %d chat messages; running for %s.",
		len(snap.Participants), len(snap.Transcript), len(snap.Chat),
		session.FormatDuration(elapsed))
}
