package main

import (
	// Standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/api"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/audit"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/config"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/dispatch"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/lifecycle"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/middleware"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/notify"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/summarize"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/logger"
)

func main() {
	logInstance, err := logger.Init(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENV"),
		WithSource:  !strings.EqualFold(os.Getenv("ENV"), "prod"),
		File:        os.Getenv("LOG_FILE"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "session-server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)
	appLogger.Debug("effective configuration", "config", cfg.PrintConfig())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Audit trail (nil when unconfigured: every call becomes a no-op)
	auditLog := audit.NewEventLogger(cfg.Audit.LogPath)
	if auditLog != nil {
		appLogger.Info("audit logging enabled", "path", cfg.Audit.LogPath)
	}

	store := session.NewStore()
	fanout := hub.New(logInstance.With("component", "hub"))

	// Transcription collaborator, or the degraded mock when no service
	// is configured: audio still lands in the session log, recognized
	// text stays empty.
	var transcriber transcribe.Transcriber
	if cfg.Transcription.ServiceURL != "" {
		transcriber = transcribe.NewHTTPTranscriber(cfg.Transcription.ServiceURL, cfg.Transcription.Model)
		appLogger.Info("transcription service configured", "url", cfg.Transcription.ServiceURL, "model", cfg.Transcription.Model)
	} else {
		transcriber = &transcribe.MockTranscriber{Logger: appLogger}
		appLogger.Warn("TRANSCRIPTION_URL not set, running with empty transcriptions")
	}

	coordinator := transcribe.NewCoordinator(
		store,
		fanout,
		transcriber,
		cfg.Transcription.MaxConcurrent,
		cfg.Transcription.Timeout,
		logInstance.With("component", "transcription"),
		auditLog,
	)

	// Summarization collaborator, or the mechanical fallback.
	var summarizer summarize.Summarizer
	if cfg.Summarization.ServiceURL != "" {
		summarizer = summarize.NewHTTPSummarizer(cfg.Summarization.ServiceURL, cfg.Summarization.Model)
		appLogger.Info("summarization service configured", "url", cfg.Summarization.ServiceURL, "model", cfg.Summarization.Model)
	} else {
		summarizer = summarize.FallbackSummarizer{}
		appLogger.Warn("SUMMARIZATION_URL not set, meetings end with fallback summaries")
	}

	// Summary distribution channel, or log-only delivery.
	var distributor notify.Distributor
	if cfg.Distribution.SlackBotToken != "" {
		slackDist, err := notify.NewSlackDistributor(notify.SlackOpts{
			BotToken: cfg.Distribution.SlackBotToken,
			Logger:   logInstance.With("component", "distribution"),
		})
		if err != nil {
			appLogger.Error("slack distributor init failed", "error", err)
			os.Exit(1)
		}
		if err := slackDist.Verify(); err != nil {
			appLogger.Error("slack token rejected", "error", err)
			os.Exit(1)
		}
		distributor = slackDist
		appLogger.Info("slack distribution configured")
	} else {
		distributor = &notify.LogDistributor{Logger: appLogger}
		appLogger.Warn("SLACK_BOT_TOKEN not set, summaries are logged instead of delivered")
	}

	controller := lifecycle.NewController(
		store,
		fanout,
		summarizer,
		distributor,
		cfg.Summarization.Timeout,
		cfg.Session.RetentionDelay,
		logInstance.With("component", "lifecycle"),
		auditLog,
	)
	if err := controller.StartSweeper(cfg.Session.SweepSchedule); err != nil {
		appLogger.Error("invalid sweep schedule", "schedule", cfg.Session.SweepSchedule, "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.NewDispatcher(
		store,
		fanout,
		coordinator,
		controller,
		cfg.Transcription.Language,
		logInstance.With("component", "dispatch"),
		auditLog,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Security.CORSAllowedOrigins))

	// Health check endpoints
	startTime := time.Now()
	r.GET("/health", api.HandleHealth(cfg, startTime))
	r.GET("/api/v1/health", api.HandleHealth(cfg, startTime)) // Alternative API path
	r.GET("/readiness", api.HandleReadiness(cfg, transcriber))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session inspection endpoints
	r.GET("/api/v1/sessions", api.HandleListSessions(store))
	r.GET("/api/v1/sessions/:key", api.HandleGetSession(store))
	r.GET("/api/v1/sessions/:key/stats", api.HandleGetSessionStats(store))

	// Client attachment point
	r.GET("/ws", api.HandleWS(dispatcher, cfg.Security.CORSAllowedOrigins, logInstance.With("component", "ws")))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	// Create HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Drain in-flight work: pending transcriptions first, then pending
	// summary distributions and retention timers.
	coordinator.Wait()
	controller.Stop()
	appLogger.Info("server shutdown complete")
}
