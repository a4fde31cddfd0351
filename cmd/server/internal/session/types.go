package session

import (
	"sort"
	"sync"
	"time"
)

// State is the lifecycle state of a session. A cleared session has no
// state constant: clearing removes the session from the store entirely,
// and a later event for the same meeting key creates a fresh session.
type State string

const (
	StateActive     State = "active"
	StateEnding     State = "ending"
	StateSummarized State = "summarized"
)

// Participant is one attendee, recorded once in first-seen order.
type Participant struct {
	ID             string    `json:"participantId"`
	DisplayName    string    `json:"displayName"`
	ContactAddress string    `json:"contactAddress,omitempty"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// TranscriptEntry is one recognized speech segment. CapturedAt is the time
// the audio was captured on the client, not the time transcription
// completed; live append order may differ from chronological order.
type TranscriptEntry struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Text          string    `json:"text"`
	CapturedAt    time.Time `json:"captureTimestamp"`
}

// ChatEntry is one chat message.
type ChatEntry struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Text          string    `json:"text"`
	SentAt        time.Time `json:"timestamp"`
}

// AudioRecord is the raw record appended for every audio chunk before
// transcription is attempted, so the event survives a failed or timed-out
// transcription.
type AudioRecord struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	SizeBytes     int       `json:"sizeBytes"`
	CapturedAt    time.Time `json:"captureTimestamp"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// SummaryTask is one action item extracted from the meeting.
type SummaryTask struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// Summary is the end-of-meeting summary. It is produced at most once per
// session and never modified after being attached.
type Summary struct {
	Narrative     string            `json:"narrative"`
	Contributions map[string]string `json:"contributions"` // participant id -> note
	Topics        []string          `json:"topics"`
	Tasks         []SummaryTask     `json:"tasks"`
	NextSteps     []string          `json:"nextSteps"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	Duration      string            `json:"duration"`
}

// Session is the full mutable state for one meeting key. All fields are
// guarded by the owning Store: callers only touch a Session inside a
// Mutate callback, or through a Snapshot.
type Session struct {
	mu sync.Mutex

	Key          string
	Participants []Participant
	Transcript   []TranscriptEntry
	Chat         []ChatEntry
	AudioLog     []AudioRecord
	CreatedAt    time.Time
	EndedAt      *time.Time
	State        State
	Summary      *Summary

	seen            map[string]struct{}
	summaryInFlight bool
	summarySnapDone bool
}

// AddParticipant appends p unless the participant id was seen before.
// Returns true when the participant was newly added.
// Must be called inside Store.Mutate.
func (s *Session) AddParticipant(p Participant) bool {
	if _, ok := s.seen[p.ID]; ok {
		return false
	}
	s.seen[p.ID] = struct{}{}
	s.Participants = append(s.Participants, p)
	return true
}

// AppendTranscript appends one transcript entry.
// Must be called inside Store.Mutate.
func (s *Session) AppendTranscript(e TranscriptEntry) {
	s.Transcript = append(s.Transcript, e)
}

// AppendChat appends one chat entry.
// Must be called inside Store.Mutate.
func (s *Session) AppendChat(e ChatEntry) {
	s.Chat = append(s.Chat, e)
}

// AppendAudio appends one raw audio record.
// Must be called inside Store.Mutate.
func (s *Session) AppendAudio(r AudioRecord) {
	s.AudioLog = append(s.AudioLog, r)
}

// SetEnded fixes the end timestamp. Once set it never changes.
// Must be called inside Store.Mutate.
func (s *Session) SetEnded(t time.Time) {
	if s.EndedAt == nil {
		s.EndedAt = &t
	}
}

// AttachSummary attaches the summary unless one is already attached.
// Must be called inside Store.Mutate.
func (s *Session) AttachSummary(sum *Summary) bool {
	if s.Summary != nil {
		return false
	}
	s.Summary = sum
	return true
}

// SummarySnapshotTaken reports whether the lifecycle controller already
// took the snapshot used for summarization. Late transcription results
// arriving afterwards are dropped.
// Must be called inside Store.Mutate.
func (s *Session) SummarySnapshotTaken() bool {
	return s.summarySnapDone
}

// Snapshot is a point-in-time, deep-copied view of a session. Reading a
// snapshot never races with concurrent mutation.
type Snapshot struct {
	Key          string            `json:"meetingKey"`
	Participants []Participant     `json:"participants"`
	Transcript   []TranscriptEntry `json:"transcript"`
	Chat         []ChatEntry       `json:"chat"`
	AudioLog     []AudioRecord     `json:"audioLog"`
	CreatedAt    time.Time         `json:"createdAt"`
	EndedAt      *time.Time        `json:"endedAt,omitempty"`
	State        State             `json:"state"`
	Summary      *Summary          `json:"summary,omitempty"`
}

// ChronologicalTranscript returns the transcript sorted by capture
// timestamp. The live transcript is stored in completion order, so any
// consumer that needs the spoken order (summarization above all) must use
// this instead of the raw slice.
func (s Snapshot) ChronologicalTranscript() []TranscriptEntry {
	out := make([]TranscriptEntry, len(s.Transcript))
	copy(out, s.Transcript)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	return out
}

// Duration returns the session duration, and false while the session is
// still active (no end timestamp yet).
func (s Snapshot) Duration() (time.Duration, bool) {
	if s.EndedAt == nil {
		return 0, false
	}
	return s.EndedAt.Sub(s.CreatedAt), true
}

// Stats is the derived per-session counters for the query surface.
type Stats struct {
	Key               string     `json:"meetingKey"`
	State             State      `json:"state"`
	Participants      int        `json:"participants"`
	TranscriptEntries int        `json:"transcriptEntries"`
	ChatEntries       int        `json:"chatEntries"`
	CreatedAt         time.Time  `json:"createdAt"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	// Duration is null while the session is active.
	Duration *string `json:"duration,omitempty"`
}
