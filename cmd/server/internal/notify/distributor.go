// Package notify delivers finished meeting summaries to the recipients
// named in the end-meeting request. Distribution is best-effort: a
// delivery failure never blocks or rolls back the summarized session.
package notify

import (
	"context"
	"log/slog"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// Distributor sends a finished summary to a list of recipients.
type Distributor interface {
	Deliver(ctx context.Context, meetingKey string, recipients []string, sum *session.Summary) error
	Name() string
}

// LogDistributor is the degraded-mode implementation used when no
// delivery channel is configured. It records the request and succeeds.
type LogDistributor struct {
	Logger *slog.Logger
}

func (d *LogDistributor) Deliver(_ context.Context, meetingKey string, recipients []string, sum *session.Summary) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("summary distribution skipped, no delivery channel configured",
		"meeting_key", meetingKey,
		"recipients", len(recipients),
		"narrative_len", len(sum.Narrative),
	)
	return nil
}

func (d *LogDistributor) Name() string { return "log-only" }
