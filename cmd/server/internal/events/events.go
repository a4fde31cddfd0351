// Package events defines the wire contract with connected clients: the
// inbound and outbound event names and their payload shapes.
package events

import (
	"encoding/json"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// Inbound event names.
const (
	EventJoin         = "join"
	EventAudioChunk   = "audio-chunk"
	EventChatMessage  = "chat-message"
	EventEndMeeting   = "end-meeting"
	EventQuickSummary = "quick-summary-request"
	EventLeave        = "leave"
)

// Outbound event names.
const (
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventJoinedMeeting     = "joined-meeting"
	EventChatReceived      = "chat-message-received"
	EventLiveTranscription = "live-transcription"
	EventSummaryGenerating = "summary-generating"
	EventSummaryReady      = "summary-ready"
	EventSummaryError      = "summary-error"
	EventQuickSummaryReady = "quick-summary-ready"
	EventQuickSummaryError = "quick-summary-error"
)

// Envelope frames every inbound message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound payloads.

type JoinPayload struct {
	MeetingKey     string `json:"meetingKey"`
	ParticipantID  string `json:"participantId"`
	DisplayName    string `json:"displayName"`
	ContactAddress string `json:"contactAddress,omitempty"`
}

type AudioChunkPayload struct {
	MeetingKey       string    `json:"meetingKey"`
	ParticipantID    string    `json:"participantId"`
	DisplayName      string    `json:"displayName"`
	AudioBytes       []byte    `json:"audioBytes"` // base64 on the wire
	CaptureTimestamp time.Time `json:"captureTimestamp"`
}

type ChatMessagePayload struct {
	MeetingKey    string    `json:"meetingKey"`
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
}

type EndMeetingPayload struct {
	MeetingKey    string   `json:"meetingKey"`
	RecipientList []string `json:"recipientList"`
}

type QuickSummaryPayload struct {
	MeetingKey string `json:"meetingKey"`
}

type LeavePayload struct {
	MeetingKey    string `json:"meetingKey"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// Outbound payloads.

// ParticipantNotice backs participant-joined and participant-left.
type ParticipantNotice struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Timestamp     time.Time `json:"timestamp"`
}

type JoinedMeetingAck struct {
	MeetingKey string `json:"meetingKey"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

type ChatReceivedAck struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

type LiveTranscription struct {
	ParticipantID    string    `json:"participantId"`
	DisplayName      string    `json:"displayName"`
	Text             string    `json:"text"`
	CaptureTimestamp time.Time `json:"captureTimestamp"`
}

// SummaryNotice backs summary-generating/-ready/-error and the quick
// summary variants. Summary and Error are mutually exclusive.
type SummaryNotice struct {
	MeetingKey string           `json:"meetingKey"`
	Summary    *session.Summary `json:"summary,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// QuickSummaryNotice carries the lightweight, non-persisted summary text.
type QuickSummaryNotice struct {
	MeetingKey string `json:"meetingKey"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}
