package hub

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// fakeConn records events it receives and can be made to fail.
type fakeConn struct {
	id   string
	mu   sync.Mutex
	got  []string
	fail bool
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection gone")
	}
	f.got = append(f.got, event)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.got))
	copy(out, f.got)
	return out
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestJoinBroadcastLeave(t *testing.T) {
	h := New(testLogger())
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}

	h.Join("m1", c1)
	h.Join("m1", c2)
	if h.Members("m1") != 2 {
		t.Fatalf("expected 2 members, got %d", h.Members("m1"))
	}

	h.Broadcast("m1", "participant-joined", nil)
	if len(c1.events()) != 1 || len(c2.events()) != 1 {
		t.Error("broadcast did not reach all members")
	}

	if !h.Leave("m1", "c1") {
		t.Error("leave reported non-member")
	}
	h.Broadcast("m1", "chat", nil)
	if len(c1.events()) != 1 {
		t.Error("left connection still received broadcast")
	}
	if len(c2.events()) != 2 {
		t.Error("remaining connection missed broadcast")
	}
}

func TestLeaveUnknownIsFalse(t *testing.T) {
	h := New(testLogger())
	if h.Leave("m1", "nope") {
		t.Error("leave on empty group reported success")
	}
}

func TestBroadcastExcept(t *testing.T) {
	h := New(testLogger())
	origin := &fakeConn{id: "origin"}
	other := &fakeConn{id: "other"}
	h.Join("m1", origin)
	h.Join("m1", other)

	h.BroadcastExcept("m1", "origin", "participant-joined", nil)

	if len(origin.events()) != 0 {
		t.Error("originator received its own join notification")
	}
	if len(other.events()) != 1 {
		t.Error("other member missed the notification")
	}
}

func TestFailingConnDoesNotBlockOthers(t *testing.T) {
	h := New(testLogger())
	bad := &fakeConn{id: "bad", fail: true}
	good := &fakeConn{id: "good"}
	h.Join("m1", bad)
	h.Join("m1", good)

	h.Broadcast("m1", "live-transcription", nil)

	if len(good.events()) != 1 {
		t.Error("healthy connection missed delivery after peer failure")
	}
}

func TestDropGroup(t *testing.T) {
	h := New(testLogger())
	h.Join("m1", &fakeConn{id: "c1"})
	h.Join("m1", &fakeConn{id: "c2"})
	h.Join("m2", &fakeConn{id: "c3"})

	if n := h.DropGroup("m1"); n != 2 {
		t.Fatalf("dropped %d connections, want 2", n)
	}
	if h.Members("m1") != 0 {
		t.Error("group still present after drop")
	}
	if h.Members("m2") != 1 {
		t.Error("unrelated group affected")
	}
	if n := h.DropGroup("m1"); n != 0 {
		t.Errorf("second drop removed %d connections", n)
	}
}

func TestDropConnAcrossMeetings(t *testing.T) {
	h := New(testLogger())
	c := &fakeConn{id: "c1"}
	h.Join("m1", c)
	h.Join("m2", c)

	keys := h.DropConn("c1")
	if len(keys) != 2 {
		t.Fatalf("expected 2 affected meetings, got %d", len(keys))
	}
	if h.Members("m1") != 0 || h.Members("m2") != 0 {
		t.Error("connection still present after drop")
	}
}
