package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// HTTPSummarizer calls a summarization service over HTTP. The request
// carries the transcript sorted by capture timestamp: the live log is in
// completion order, and summarizing out-of-order speech produces garbage.
//
// API endpoints:
//
//	POST {apiURL}/api/v1/summarize        full structured summary
//	POST {apiURL}/api/v1/summarize/quick  lightweight text summary
type HTTPSummarizer struct {
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewHTTPSummarizer creates a client for the given base URL.
func NewHTTPSummarizer(apiURL, model string) *HTTPSummarizer {
	return &HTTPSummarizer{
		apiURL: apiURL,
		model:  model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// summarizeRequest is the request body shared by both endpoints.
type summarizeRequest struct {
	MeetingKey   string                    `json:"meetingKey"`
	Model        string                    `json:"model,omitempty"`
	Participants []session.Participant     `json:"participants"`
	Transcript   []session.TranscriptEntry `json:"transcript"` // chronological
	Chat         []session.ChatEntry       `json:"chat"`
	Duration     string                    `json:"duration"`
}

// summarizeResponse mirrors the structured summary fields.
type summarizeResponse struct {
	Narrative     string                `json:"narrative"`
	Contributions map[string]string     `json:"contributions"`
	Topics        []string              `json:"topics"`
	Tasks         []session.SummaryTask `json:"tasks"`
	NextSteps     []string              `json:"nextSteps"`
}

// Summarize requests the full structured summary.
func (h *HTTPSummarizer) Summarize(ctx context.Context, snap session.Snapshot) (*session.Summary, error) {
	var resp summarizeResponse
	if err := h.post(ctx, "/api/v1/summarize", snap, &resp); err != nil {
		return nil, err
	}

	if resp.Narrative == "" && len(resp.Topics) == 0 && len(resp.Tasks) == 0 {
		// The model answered but produced nothing usable; callers treat
		// this like any other failure and fall back.
		return nil, &Error{Message: "empty summary in response"}
	}

	sum := &session.Summary{
		Narrative:     resp.Narrative,
		Contributions: resp.Contributions,
		Topics:        resp.Topics,
		Tasks:         resp.Tasks,
		NextSteps:     resp.NextSteps,
		GeneratedAt:   time.Now(),
		Duration:      durationOf(snap),
	}
	if sum.Contributions == nil {
		sum.Contributions = map[string]string{}
	}
	if sum.Topics == nil {
		sum.Topics = []string{}
	}
	if sum.Tasks == nil {
		sum.Tasks = []session.SummaryTask{}
	}
	if sum.NextSteps == nil {
		sum.NextSteps = []string{}
	}
	return sum, nil
}

// QuickSummarize requests the lightweight text summary.
func (h *HTTPSummarizer) QuickSummarize(ctx context.Context, snap session.Snapshot) (string, error) {
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := h.post(ctx, "/api/v1/summarize/quick", snap, &resp); err != nil {
		return "", err
	}
	if resp.Summary == "" {
		return "", &Error{Message: "empty quick summary in response"}
	}
	return resp.Summary, nil
}

func (h *HTTPSummarizer) post(ctx context.Context, path string, snap session.Snapshot, out any) error {
	reqBody := summarizeRequest{
		MeetingKey:   snap.Key,
		Model:        h.model,
		Participants: snap.Participants,
		Transcript:   snap.ChronologicalTranscript(),
		Chat:         snap.Chat,
		Duration:     durationOf(snap),
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return &Error{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL+path, bytes.NewReader(data))
	if err != nil {
		return &Error{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return &Error{Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &Error{Message: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Message: "failed to parse response", Cause: err}
	}
	return nil
}

// Name identifies this implementation.
func (h *HTTPSummarizer) Name() string { return "http-summarizer" }
