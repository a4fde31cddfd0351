package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/config"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
)

type stubTranscriber struct {
	healthy bool
	err     error
}

func (s stubTranscriber) Transcribe(context.Context, []byte, *transcribe.Options) (string, error) {
	return "", nil
}

func (s stubTranscriber) HealthCheck(context.Context) (bool, error) { return s.healthy, s.err }
func (s stubTranscriber) Name() string                              { return "stub" }

func TestHandleHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.Env = "test"

	r := gin.New()
	r.GET("/health", HandleHealth(cfg, time.Now().Add(-time.Minute)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body HealthCheckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.Env != "test" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	readiness := func(cfg *config.Config, tr transcribe.Transcriber) *ReadinessCheckResponse {
		r := gin.New()
		r.GET("/readiness", HandleReadiness(cfg, tr))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readiness", nil))
		var body ReadinessCheckResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if (w.Code == http.StatusOK) != body.Ready {
			t.Errorf("status %d does not match ready=%v", w.Code, body.Ready)
		}
		return &body
	}

	statusOf := func(body *ReadinessCheckResponse, name string) string {
		for _, c := range body.Checks {
			if c.Name == name {
				return c.Status
			}
		}
		t.Fatalf("check %q missing", name)
		return ""
	}

	t.Run("nothing configured is degraded but ready", func(t *testing.T) {
		body := readiness(&config.Config{}, stubTranscriber{})
		if !body.Ready {
			t.Error("degraded mode must still be ready")
		}
		for _, name := range []string{"transcription", "summarization", "distribution"} {
			if statusOf(body, name) != "degraded" {
				t.Errorf("%s status = %s, want degraded", name, statusOf(body, name))
			}
		}
	})

	t.Run("configured and healthy", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Transcription.ServiceURL = "http://whisper:9000"
		cfg.Summarization.ServiceURL = "http://llm:8080"
		cfg.Distribution.SlackBotToken = "xoxb-test"

		body := readiness(cfg, stubTranscriber{healthy: true})
		if !body.Ready {
			t.Error("expected ready")
		}
		if statusOf(body, "transcription") != "ok" {
			t.Errorf("transcription status = %s", statusOf(body, "transcription"))
		}
	})

	t.Run("configured but unreachable fails", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Transcription.ServiceURL = "http://whisper:9000"

		body := readiness(cfg, stubTranscriber{healthy: false})
		if body.Ready {
			t.Error("unreachable transcription service must fail readiness")
		}
		if statusOf(body, "transcription") != "fail" {
			t.Errorf("transcription status = %s", statusOf(body, "transcription"))
		}
	})
}
