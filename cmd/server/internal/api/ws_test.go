package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/dispatch"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/events"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/lifecycle"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/notify"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/summarize"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
)

func newWSServer(t *testing.T, allowedOrigins []string) (*httptest.Server, *session.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := session.NewStore()
	fanout := hub.New(logger)
	coord := transcribe.NewCoordinator(store, fanout, stubTranscriber{}, 4, time.Second, logger, nil)
	control := lifecycle.NewController(store, fanout, summarize.FallbackSummarizer{}, &notify.LogDistributor{Logger: logger},
		time.Second, time.Hour, logger, nil)
	t.Cleanup(control.Stop)
	d := dispatch.NewDispatcher(store, fanout, coord, control, "en", logger, nil)

	r := gin.New()
	r.GET("/ws", HandleWS(d, allowedOrigins, logger))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	sock, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { sock.Close() })
	return sock
}

func sendFrame(t *testing.T, sock *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := sock.WriteJSON(events.Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// readUntil reads frames until the wanted event arrives, skipping
// unrelated broadcasts delivered in between.
func readUntil(t *testing.T, sock *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	sock.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := sock.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if frame.Event == event {
			return frame.Data
		}
	}
}

func TestWebSocketMeetingFlow(t *testing.T) {
	srv, store := newWSServer(t, []string{"*"})

	first := dial(t, srv)
	sendFrame(t, first, events.EventJoin, events.JoinPayload{
		MeetingKey: "m1", ParticipantID: "p1", DisplayName: "Ada",
	})
	var ack events.JoinedMeetingAck
	if err := json.Unmarshal(readUntil(t, first, "joined-meeting"), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Success || ack.MeetingKey != "m1" {
		t.Fatalf("ack = %+v", ack)
	}

	second := dial(t, srv)
	sendFrame(t, second, events.EventJoin, events.JoinPayload{
		MeetingKey: "m1", ParticipantID: "p2", DisplayName: "Lin",
	})
	readUntil(t, second, "joined-meeting")

	// The first connection hears about the newcomer.
	var notice events.ParticipantNotice
	if err := json.Unmarshal(readUntil(t, first, "participant-joined"), &notice); err != nil {
		t.Fatalf("decode notice: %v", err)
	}
	if notice.ParticipantID != "p2" {
		t.Errorf("notice = %+v", notice)
	}

	sendFrame(t, first, events.EventEndMeeting, events.EndMeetingPayload{MeetingKey: "m1"})

	readUntil(t, second, "summary-generating")
	var summaryNotice events.SummaryNotice
	if err := json.Unmarshal(readUntil(t, second, "summary-ready"), &summaryNotice); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summaryNotice.Summary == nil || summaryNotice.Summary.Narrative == "" {
		t.Errorf("summary notice = %+v", summaryNotice)
	}

	snap, _ := store.Get("m1")
	if snap.State != session.StateSummarized {
		t.Errorf("state = %s, want %s", snap.State, session.StateSummarized)
	}
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	srv, _ := newWSServer(t, []string{"https://app.example.com"})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil {
		t.Fatal("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 handshake response, got %+v", resp)
	}

	allowed := http.Header{"Origin": []string{"https://app.example.com"}}
	sock, _, err := websocket.DefaultDialer.Dial(wsURL(srv), allowed)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	sock.Close()
}
