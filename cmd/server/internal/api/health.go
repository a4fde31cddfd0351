package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/config"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
)

// HealthCheckResponse is the liveness probe body.
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env"`
}

// ReadinessCheckResponse is the readiness probe body.
type ReadinessCheckResponse struct {
	Ready     bool             `json:"ready"`
	Checks    []ReadinessCheck `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReadinessCheck reports one collaborator. Status is "ok", "degraded"
// (collaborator not configured, degraded-mode substitute active), or
// "fail" (configured collaborator unreachable).
type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HandleHealth GET /health
func HandleHealth(cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthCheckResponse{
			Status:    "healthy",
			Service:   "joingo-session-server",
			Version:   "1.0.0",
			Uptime:    time.Since(startTime).String(),
			Timestamp: time.Now(),
			Env:       cfg.Server.Env,
		})
	}
}

// HandleReadiness GET /readiness
//
// Degraded-mode substitutes count as ready: the server still serves
// meetings, it just produces empty transcripts or fallback summaries.
// Only a configured-but-unreachable collaborator fails the probe.
func HandleReadiness(cfg *config.Config, tr transcribe.Transcriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := []ReadinessCheck{}
		allReady := true

		transcription := ReadinessCheck{Name: "transcription", Status: "ok", Detail: tr.Name()}
		if cfg.Transcription.ServiceURL == "" {
			transcription.Status = "degraded"
			transcription.Detail = "no service configured, audio yields empty transcriptions"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			healthy, err := tr.HealthCheck(ctx)
			cancel()
			if err != nil || !healthy {
				transcription.Status = "fail"
				transcription.Detail = "transcription service unreachable"
				allReady = false
			}
		}
		checks = append(checks, transcription)

		summarization := ReadinessCheck{Name: "summarization", Status: "ok"}
		if cfg.Summarization.ServiceURL == "" {
			summarization.Status = "degraded"
			summarization.Detail = "no service configured, meetings end with fallback summaries"
		}
		checks = append(checks, summarization)

		distribution := ReadinessCheck{Name: "distribution", Status: "ok"}
		if cfg.Distribution.SlackBotToken == "" {
			distribution.Status = "degraded"
			distribution.Detail = "no delivery channel configured, summaries are logged only"
		}
		checks = append(checks, distribution)

		httpStatus := http.StatusOK
		if !allReady {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, ReadinessCheckResponse{
			Ready:     allReady,
			Checks:    checks,
			Timestamp: time.Now(),
		})
	}
}
