package transcribe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/audit"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/events"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/logger"
	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/metrics"
)

// Chunk is one audio event handed to the coordinator.
type Chunk struct {
	MeetingKey    string
	ParticipantID string
	DisplayName   string
	Audio         []byte
	Language      string
	CapturedAt    time.Time
}

// Coordinator turns audio chunks into transcript entries. The ingest
// path appends a raw audio record synchronously and returns; the
// collaborator call runs in its own goroutine so a slow or failing
// transcription never creates backpressure on the event stream. Each
// chunk is an independent unit of work: one failure affects only that
// chunk.
type Coordinator struct {
	store   *session.Store
	fanout  *hub.Hub
	tr      Transcriber
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
	audit   *audit.EventLogger

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator. maxConcurrent caps the number of
// in-flight collaborator calls; timeout bounds each call.
func NewCoordinator(store *session.Store, fanout *hub.Hub, tr Transcriber, maxConcurrent int64, timeout time.Duration, log *slog.Logger, auditLog *audit.EventLogger) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Coordinator{
		store:   store,
		fanout:  fanout,
		tr:      tr,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
		logger:  log,
		audit:   auditLog,
	}
}

// Submit records the raw chunk and schedules its transcription. It never
// blocks on the collaborator.
func (c *Coordinator) Submit(chunk Chunk) {
	received := time.Now()

	// The raw record is appended before transcription is even attempted,
	// so the event survives a failed or timed-out collaborator call.
	c.store.MutateEnsure(chunk.MeetingKey, func(s *session.Session) {
		s.AppendAudio(session.AudioRecord{
			ParticipantID: chunk.ParticipantID,
			DisplayName:   chunk.DisplayName,
			SizeBytes:     len(chunk.Audio),
			CapturedAt:    chunk.CapturedAt,
			ReceivedAt:    received,
		})
	})
	c.audit.LogEvent(chunk.MeetingKey, events.EventAudioChunk, chunk.ParticipantID, "")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.process(chunk)
	}()
}

// process runs the collaborator call and folds the result back into the
// session through the same synchronized mutation path as ingest events.
func (c *Coordinator) process(chunk Chunk) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		metrics.RecordTranscription("error")
		logger.LogTranscription(c.logger, "error", chunk.MeetingKey, chunk.ParticipantID, 0, string(TIMEOUT))
		return
	}
	defer c.sem.Release(1)

	start := time.Now()
	text, err := c.tr.Transcribe(ctx, chunk.Audio, &Options{Language: chunk.Language})
	elapsed := time.Since(start)
	metrics.RecordTranscriptionDuration(elapsed.Seconds())

	if err != nil {
		// Contained per-chunk failure: warn, count, no transcript entry,
		// session unaffected.
		metrics.RecordTranscription("error")
		logger.LogTranscription(c.logger, "error", chunk.MeetingKey, chunk.ParticipantID, elapsed.Milliseconds(), string(CodeOf(err)))
		return
	}
	if text == "" {
		// Nothing recognized (or degraded mode). No entry, no broadcast.
		metrics.RecordTranscription("success")
		return
	}

	appended := false
	c.store.Mutate(chunk.MeetingKey, func(s *session.Session) {
		// Results completing after the summarization snapshot are
		// silently dropped; the summary is already frozen.
		if s.SummarySnapshotTaken() {
			return
		}
		s.AppendTranscript(session.TranscriptEntry{
			ParticipantID: chunk.ParticipantID,
			DisplayName:   chunk.DisplayName,
			Text:          text,
			CapturedAt:    chunk.CapturedAt,
		})
		appended = true
	})

	if !appended {
		metrics.RecordTranscription("dropped")
		return
	}

	metrics.RecordTranscription("success")
	logger.LogTranscription(c.logger, "success", chunk.MeetingKey, chunk.ParticipantID, elapsed.Milliseconds(), "")

	c.fanout.Broadcast(chunk.MeetingKey, events.EventLiveTranscription, events.LiveTranscription{
		ParticipantID:    chunk.ParticipantID,
		DisplayName:      chunk.DisplayName,
		Text:             text,
		CaptureTimestamp: chunk.CapturedAt,
	})
}

// Wait blocks until all submitted chunks have finished processing.
// Intended for shutdown and tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
