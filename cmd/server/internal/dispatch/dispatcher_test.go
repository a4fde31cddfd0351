package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/events"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/lifecycle"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/notify"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/summarize"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
)

type testConn struct {
	id string

	mu     sync.Mutex
	events []string
}

func (c *testConn) ID() string { return c.id }

func (c *testConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *testConn) Close() error { return nil }

func (c *testConn) received(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e == event {
			n++
		}
	}
	return n
}

type echoTranscriber struct{}

func (echoTranscriber) Transcribe(_ context.Context, audio []byte, _ *transcribe.Options) (string, error) {
	return string(audio), nil
}

func (echoTranscriber) HealthCheck(context.Context) (bool, error) { return true, nil }
func (echoTranscriber) Name() string                              { return "echo" }

type testRig struct {
	dispatcher *Dispatcher
	store      *session.Store
	fanout     *hub.Hub
	coord      *transcribe.Coordinator
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore()
	fanout := hub.New(logger)
	coord := transcribe.NewCoordinator(store, fanout, echoTranscriber{}, 4, time.Second, logger, nil)
	control := lifecycle.NewController(store, fanout, summarize.FallbackSummarizer{}, &notify.LogDistributor{Logger: logger},
		time.Second, time.Hour, logger, nil)
	t.Cleanup(control.Stop)
	return &testRig{
		dispatcher: NewDispatcher(store, fanout, coord, control, "en", logger, nil),
		store:      store,
		fanout:     fanout,
		coord:      coord,
	}
}

func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(events.Envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func join(t *testing.T, rig *testRig, conn *testConn, key, participantID, name string) {
	t.Helper()
	err := rig.dispatcher.Dispatch(conn, frame(t, events.EventJoin, events.JoinPayload{
		MeetingKey: key, ParticipantID: participantID, DisplayName: name,
	}))
	if err != nil {
		t.Fatalf("join dispatch: %v", err)
	}
}

func TestDispatchJoin(t *testing.T) {
	rig := newTestRig(t)
	first := &testConn{id: "c1"}
	second := &testConn{id: "c2"}

	join(t, rig, first, "m1", "p1", "Ada")
	join(t, rig, second, "m1", "p2", "Lin")

	if got := first.received("joined-meeting"); got != 1 {
		t.Errorf("first joined-meeting acks = %d, want 1", got)
	}
	// The newcomer is announced to the rest of the group only.
	if got := first.received("participant-joined"); got != 1 {
		t.Errorf("first participant-joined = %d, want 1", got)
	}
	if got := second.received("participant-joined"); got != 0 {
		t.Errorf("second saw its own join notice %d times", got)
	}

	snap, ok := rig.store.Get("m1")
	if !ok || len(snap.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(snap.Participants))
	}
	if rig.fanout.Members("m1") != 2 {
		t.Errorf("fanout members = %d, want 2", rig.fanout.Members("m1"))
	}
}

func TestDispatchRejoinAnnouncedButLoggedOnce(t *testing.T) {
	rig := newTestRig(t)
	first := &testConn{id: "c1"}
	second := &testConn{id: "c2"}

	join(t, rig, first, "m1", "p1", "Ada")
	join(t, rig, second, "m1", "p2", "Lin")
	// p2 reconnects on a fresh connection. Members are told about the
	// rejoin, but the participant log keeps the first-seen entry only.
	join(t, rig, &testConn{id: "c3"}, "m1", "p2", "Lin")

	if got := first.received("participant-joined"); got != 2 {
		t.Errorf("rejoin not announced: participant-joined = %d, want 2", got)
	}
	snap, _ := rig.store.Get("m1")
	if len(snap.Participants) != 2 {
		t.Errorf("participants = %d, want 2 (first-seen entry kept)", len(snap.Participants))
	}
}

func TestDispatchJoinValidation(t *testing.T) {
	rig := newTestRig(t)
	conn := &testConn{id: "c1"}

	err := rig.dispatcher.Dispatch(conn, frame(t, events.EventJoin, events.JoinPayload{MeetingKey: "m1"}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := conn.received("joined-meeting"); got != 1 {
		t.Errorf("failure ack missing: joined-meeting = %d, want 1", got)
	}
	if rig.store.Len() != 0 {
		t.Error("invalid join must not create a session")
	}
}

func TestDispatchChatAcksSenderOnly(t *testing.T) {
	rig := newTestRig(t)
	sender := &testConn{id: "c1"}
	other := &testConn{id: "c2"}
	join(t, rig, sender, "m1", "p1", "Ada")
	join(t, rig, other, "m1", "p2", "Lin")

	err := rig.dispatcher.Dispatch(sender, frame(t, events.EventChatMessage, events.ChatMessagePayload{
		MeetingKey: "m1", ParticipantID: "p1", DisplayName: "Ada", Text: "hi all",
	}))
	if err != nil {
		t.Fatalf("chat dispatch: %v", err)
	}

	if got := sender.received("chat-message-received"); got != 1 {
		t.Errorf("sender ack = %d, want 1", got)
	}
	if got := other.received("chat-message-received"); got != 0 {
		t.Errorf("ack leaked to other member %d times", got)
	}

	snap, _ := rig.store.Get("m1")
	if len(snap.Chat) != 1 || snap.Chat[0].Text != "hi all" {
		t.Errorf("chat log = %+v", snap.Chat)
	}
}

func TestDispatchAudioChunk(t *testing.T) {
	rig := newTestRig(t)
	member := &testConn{id: "c1"}
	join(t, rig, member, "m1", "p1", "Ada")

	err := rig.dispatcher.Dispatch(member, frame(t, events.EventAudioChunk, events.AudioChunkPayload{
		MeetingKey:       "m1",
		ParticipantID:    "p1",
		DisplayName:      "Ada",
		AudioBytes:       []byte("good morning"),
		CaptureTimestamp: time.Now(),
	}))
	if err != nil {
		t.Fatalf("audio dispatch: %v", err)
	}
	rig.coord.Wait()

	snap, _ := rig.store.Get("m1")
	if len(snap.AudioLog) != 1 {
		t.Fatalf("audio log = %d records, want 1", len(snap.AudioLog))
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Text != "good morning" {
		t.Fatalf("transcript = %+v", snap.Transcript)
	}
	if got := member.received("live-transcription"); got != 1 {
		t.Errorf("live-transcription = %d, want 1", got)
	}
}

func TestDispatchLeaveForUnknownParticipantStillNotifies(t *testing.T) {
	rig := newTestRig(t)
	member := &testConn{id: "c1"}
	join(t, rig, member, "m1", "p1", "Ada")

	stranger := &testConn{id: "c2"}
	err := rig.dispatcher.Dispatch(stranger, frame(t, events.EventLeave, events.LeavePayload{
		MeetingKey: "m1", ParticipantID: "ghost", DisplayName: "Ghost",
	}))
	if err != nil {
		t.Fatalf("leave dispatch: %v", err)
	}

	if got := member.received("participant-left"); got != 1 {
		t.Errorf("participant-left = %d, want 1", got)
	}
	// Leaving never rewrites attendance history.
	snap, _ := rig.store.Get("m1")
	if len(snap.Participants) != 1 {
		t.Errorf("participants = %d, want 1", len(snap.Participants))
	}
}

func TestDispatchDisconnectDropsFanoutOnly(t *testing.T) {
	rig := newTestRig(t)
	gone := &testConn{id: "c1"}
	stays := &testConn{id: "c2"}
	join(t, rig, gone, "m1", "p1", "Ada")
	join(t, rig, stays, "m1", "p2", "Lin")

	rig.dispatcher.HandleDisconnect(gone)

	if rig.fanout.Members("m1") != 1 {
		t.Errorf("fanout members = %d, want 1", rig.fanout.Members("m1"))
	}
	snap, _ := rig.store.Get("m1")
	if len(snap.Participants) != 2 {
		t.Errorf("disconnect must not change the participant log: %d", len(snap.Participants))
	}
}

func TestDispatchEndMeeting(t *testing.T) {
	rig := newTestRig(t)
	origin := &testConn{id: "c1"}
	join(t, rig, origin, "m1", "p1", "Ada")

	err := rig.dispatcher.Dispatch(origin, frame(t, events.EventEndMeeting, events.EndMeetingPayload{
		MeetingKey: "m1",
	}))
	if err != nil {
		t.Fatalf("end-meeting dispatch: %v", err)
	}

	snap, _ := rig.store.Get("m1")
	if snap.State != session.StateSummarized {
		t.Errorf("state = %s, want %s", snap.State, session.StateSummarized)
	}
	if origin.received("summary-ready") == 0 {
		t.Error("origin never received summary-ready")
	}
}

func TestDispatchQuickSummary(t *testing.T) {
	rig := newTestRig(t)
	origin := &testConn{id: "c1"}
	join(t, rig, origin, "m1", "p1", "Ada")

	err := rig.dispatcher.Dispatch(origin, frame(t, events.EventQuickSummary, events.QuickSummaryPayload{
		MeetingKey: "m1",
	}))
	if err != nil {
		t.Fatalf("quick-summary dispatch: %v", err)
	}
	if got := origin.received("quick-summary-ready"); got != 1 {
		t.Errorf("quick-summary-ready = %d, want 1", got)
	}
}

func TestDispatchMalformedFrames(t *testing.T) {
	rig := newTestRig(t)
	conn := &testConn{id: "c1"}

	if err := rig.dispatcher.Dispatch(conn, []byte("not json")); err == nil {
		t.Error("expected error for malformed envelope")
	}
	if err := rig.dispatcher.Dispatch(conn, []byte(`{"event":"join","data":"not an object"}`)); err == nil {
		t.Error("expected error for malformed payload")
	}
	// Unknown events are ignored, not fatal.
	if err := rig.dispatcher.Dispatch(conn, []byte(`{"event":"telemetry","data":{}}`)); err != nil {
		t.Errorf("unknown event should be ignored: %v", err)
	}
}
