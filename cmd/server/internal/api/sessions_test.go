package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

func newSessionRouter(store *session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/sessions", HandleListSessions(store))
	r.GET("/api/v1/sessions/:key", HandleGetSession(store))
	r.GET("/api/v1/sessions/:key/stats", HandleGetSessionStats(store))
	return r
}

func TestSessionEndpoints(t *testing.T) {
	store := session.NewStore()
	store.MutateEnsure("m1", func(s *session.Session) {
		s.AddParticipant(session.Participant{ID: "p1", DisplayName: "Ada", JoinedAt: time.Now()})
		s.AppendTranscript(session.TranscriptEntry{ParticipantID: "p1", Text: "hello", CapturedAt: time.Now()})
	})
	r := newSessionRouter(store)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var body struct {
			Count    int                `json:"count"`
			Sessions []session.Snapshot `json:"sessions"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 1 || len(body.Sessions) != 1 {
			t.Errorf("count = %d, sessions = %d", body.Count, len(body.Sessions))
		}
	})

	t.Run("get one", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/m1", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var snap session.Snapshot
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if snap.Key != "m1" || len(snap.Transcript) != 1 {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("stats", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/m1/stats", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		for _, path := range []string{"/api/v1/sessions/nope", "/api/v1/sessions/nope/stats"} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("%s status = %d, want 404", path, w.Code)
			}
		}
	})
}
