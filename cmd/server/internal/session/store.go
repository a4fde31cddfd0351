package session

import (
	"fmt"
	"sync"
	"time"
)

// Store owns every Session instance. The outer RWMutex only guards map
// membership; each session carries its own lock, so mutations on
// different meeting keys never serialize against each other while
// mutations on the same key are linearizable.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}}
}

// Ensure idempotently creates an active session for key. It is a no-op
// when the session already exists, whatever its lifecycle state.
func (st *Store) Ensure(key string) {
	st.ensure(key)
}

func (st *Store) ensure(key string) *Session {
	st.mu.RLock()
	s := st.sessions[key]
	st.mu.RUnlock()
	if s != nil {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s = st.sessions[key]; s != nil {
		return s
	}
	s = &Session{
		Key:       key,
		CreatedAt: time.Now(),
		State:     StateActive,
		seen:      map[string]struct{}{},
	}
	st.sessions[key] = s
	return s
}

// Mutate applies fn atomically with respect to every other mutation on
// the same key. It reports false (and does nothing) when the key does not
// exist.
func (st *Store) Mutate(key string, fn func(*Session)) bool {
	st.mu.RLock()
	s := st.sessions[key]
	st.mu.RUnlock()
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
	return true
}

// MutateEnsure is Mutate with implicit session creation, used by the
// append paths where a first event lazily initializes the meeting.
func (st *Store) MutateEnsure(key string, fn func(*Session)) {
	s := st.ensure(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Get returns a point-in-time snapshot of the session.
func (st *Store) Get(key string) (Snapshot, bool) {
	st.mu.RLock()
	s := st.sessions[key]
	st.mu.RUnlock()
	if s == nil {
		return Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotLocked(s), true
}

// SnapshotForSummary atomically marks the session as snapshotted for
// summarization and returns the snapshot. Transcription results that
// complete after this call are dropped instead of appended.
func (st *Store) SnapshotForSummary(key string) (Snapshot, bool) {
	st.mu.RLock()
	s := st.sessions[key]
	st.mu.RUnlock()
	if s == nil {
		return Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summarySnapDone = true
	return snapshotLocked(s), true
}

// Remove deletes the session and reports whether something was removed.
func (st *Store) Remove(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[key]; !ok {
		return false
	}
	delete(st.sessions, key)
	return true
}

// Stats derives the counters for one session.
func (st *Store) Stats(key string) (Stats, bool) {
	snap, ok := st.Get(key)
	if !ok {
		return Stats{}, false
	}
	return statsFromSnapshot(snap), true
}

// List returns a snapshot of every session. Order is unspecified.
func (st *Store) List() []Snapshot {
	st.mu.RLock()
	all := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		all = append(all, s)
	}
	st.mu.RUnlock()

	out := make([]Snapshot, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		out = append(out, snapshotLocked(s))
		s.mu.Unlock()
	}
	return out
}

// Len returns the number of sessions currently held.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// snapshotLocked deep-copies the session. Caller holds s.mu. The Summary
// pointer is shared because summaries are immutable once attached.
func snapshotLocked(s *Session) Snapshot {
	snap := Snapshot{
		Key:          s.Key,
		Participants: make([]Participant, len(s.Participants)),
		Transcript:   make([]TranscriptEntry, len(s.Transcript)),
		Chat:         make([]ChatEntry, len(s.Chat)),
		AudioLog:     make([]AudioRecord, len(s.AudioLog)),
		CreatedAt:    s.CreatedAt,
		State:        s.State,
		Summary:      s.Summary,
	}
	copy(snap.Participants, s.Participants)
	copy(snap.Transcript, s.Transcript)
	copy(snap.Chat, s.Chat)
	copy(snap.AudioLog, s.AudioLog)
	if s.EndedAt != nil {
		t := *s.EndedAt
		snap.EndedAt = &t
	}
	return snap
}

func statsFromSnapshot(snap Snapshot) Stats {
	stats := Stats{
		Key:               snap.Key,
		State:             snap.State,
		Participants:      len(snap.Participants),
		TranscriptEntries: len(snap.Transcript),
		ChatEntries:       len(snap.Chat),
		CreatedAt:         snap.CreatedAt,
		EndedAt:           snap.EndedAt,
	}
	if d, ok := snap.Duration(); ok {
		ds := formatDuration(d)
		stats.Duration = &ds
	}
	return stats
}

// formatDuration renders a duration as "1h 02m 05s" (or "2m 05s", "5s").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatDuration is the exported variant used by summary builders.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}

// BeginEndAttempt implements the end-of-meeting compare-and-set. It
// advances an active session to Ending (fixing the end timestamp) and
// claims the summarization attempt. A session already in Ending can be
// claimed again only when no attempt is in flight, which covers manual
// resubmission after a failed attempt. Every other case reports
// claimed=false: concurrent duplicate triggers observe the
// already-advanced state and become no-ops.
//
// The returned from state is the state the claim was taken from, so
// callers can tell an Active→Ending transition from a resubmission. An
// unknown key returns ("", false): the single atomic answer for a key
// that was cleared between the caller's lookup and the claim.
func (st *Store) BeginEndAttempt(key string, now time.Time) (from State, claimed bool) {
	st.Mutate(key, func(s *Session) {
		from = s.State
		switch s.State {
		case StateActive:
			s.State = StateEnding
			s.SetEnded(now)
			s.summaryInFlight = true
			claimed = true
		case StateEnding:
			if !s.summaryInFlight {
				s.summaryInFlight = true
				claimed = true
			}
		}
	})
	return from, claimed
}

// FinishEndAttempt releases the attempt claim. When sum is non-nil the
// summary is attached and the session advances to Summarized; a nil sum
// leaves the session in Ending so the trigger can be resubmitted.
func (st *Store) FinishEndAttempt(key string, sum *Summary) bool {
	advanced := false
	st.Mutate(key, func(s *Session) {
		s.summaryInFlight = false
		if sum != nil && s.State == StateEnding {
			s.AttachSummary(sum)
			s.State = StateSummarized
			advanced = true
		}
	})
	return advanced
}
