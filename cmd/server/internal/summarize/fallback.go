package summarize

import (
	"strings"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// maxFallbackNarrative bounds the transcript excerpt used as the
// fallback narrative.
const maxFallbackNarrative = 600

// FallbackSummary assembles a degraded but non-empty summary directly
// from the snapshot: every participant gets a generic contribution note,
// topic and task lists stay empty, and the narrative is a truncated
// excerpt of the chronological transcript. Used whenever the
// summarization collaborator fails, so clients always receive a usable
// result instead of an error.
func FallbackSummary(snap session.Snapshot) *session.Summary {
	contributions := make(map[string]string, len(snap.Participants))
	for _, p := range snap.Participants {
		name := p.DisplayName
		if name == "" {
			name = p.ID
		}
		contributions[p.ID] = name + " attended the meeting"
	}

	var b strings.Builder
	for _, e := range snap.ChronologicalTranscript() {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.Text)
		if b.Len() >= maxFallbackNarrative {
			break
		}
	}
	narrative := b.String()
	if len(narrative) > maxFallbackNarrative {
		narrative = narrative[:maxFallbackNarrative] + "…"
	}
	if narrative == "" {
		narrative = "No transcript was recorded for this meeting."
	}

	return &session.Summary{
		Narrative:     narrative,
		Contributions: contributions,
		Topics:        []string{},
		Tasks:         []session.SummaryTask{},
		NextSteps:     []string{},
		GeneratedAt:   time.Now(),
		Duration:      durationOf(snap),
	}
}
