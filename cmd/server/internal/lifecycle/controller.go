// Package lifecycle drives sessions through their terminal states: the
// exactly-once end-of-meeting summarization, summary fanout and
// distribution, and the delayed clear that eventually removes the
// session from the store.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/audit"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/events"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/notify"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/summarize"
	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/metrics"
)

// distributionTimeout bounds the best-effort summary delivery.
const distributionTimeout = 30 * time.Second

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Controller owns the end-of-meeting flow and the retention window.
type Controller struct {
	store       *session.Store
	fanout      *hub.Hub
	summarizer  summarize.Summarizer
	distributor notify.Distributor
	logger      *slog.Logger
	audit       *audit.EventLogger

	summaryTimeout time.Duration
	retentionDelay time.Duration

	mu          sync.Mutex
	clearTimers map[string]*time.Timer

	sweeper *cron.Cron
	wg      sync.WaitGroup
}

// NewController wires the controller to its collaborators.
func NewController(
	store *session.Store,
	fanout *hub.Hub,
	summarizer summarize.Summarizer,
	distributor notify.Distributor,
	summaryTimeout, retentionDelay time.Duration,
	logger *slog.Logger,
	auditLog *audit.EventLogger,
) *Controller {
	return &Controller{
		store:          store,
		fanout:         fanout,
		summarizer:     summarizer,
		distributor:    distributor,
		logger:         logger,
		audit:          auditLog,
		summaryTimeout: summaryTimeout,
		retentionDelay: retentionDelay,
		clearTimers:    map[string]*time.Timer{},
	}
}

// EndMeeting runs the end-of-meeting flow. Exactly one caller per
// session wins the transition to Ending and produces the summary;
// concurrent duplicates return without side effects. An unknown meeting
// key is answered with a summary-error event on the origin connection
// only.
//
// The winner always leaves the session Summarized: a summarizer failure
// substitutes the mechanical fallback summary instead of surfacing an
// error to clients.
func (c *Controller) EndMeeting(origin hub.Conn, meetingKey string, recipients []string) {
	from, claimed := c.store.BeginEndAttempt(meetingKey, time.Now())
	if !claimed {
		if from == "" {
			// The key was never created, or the clear removed it already.
			c.logger.Warn("end-meeting for unknown session", "meeting_key", meetingKey)
			if origin != nil {
				origin.Send(events.EventSummaryError, events.SummaryNotice{
					MeetingKey: meetingKey,
					Error:      "unknown meeting key",
				})
			}
			return
		}
		// A concurrent or earlier request already owns this end attempt.
		c.logger.Debug("duplicate end-meeting ignored", "meeting_key", meetingKey, "state", from)
		return
	}
	detail := "end requested"
	if from == session.StateEnding {
		detail = "attempt resubmitted"
	}
	c.audit.LogTransition(meetingKey, string(from), string(session.StateEnding), detail)

	c.fanout.Broadcast(meetingKey, events.EventSummaryGenerating, events.SummaryNotice{MeetingKey: meetingKey})

	// From this point on, late transcription results are dropped.
	snap, _ := c.store.SnapshotForSummary(meetingKey)

	sum := c.buildSummary(snap)

	if !c.store.FinishEndAttempt(meetingKey, sum) {
		// Session vanished mid-flight (clear raced an unusually slow
		// summarization). Nothing left to notify.
		c.logger.Warn("session disappeared during summarization", "meeting_key", meetingKey)
		return
	}
	c.audit.LogTransition(meetingKey, string(session.StateEnding), string(session.StateSummarized), "summary attached")

	notice := events.SummaryNotice{MeetingKey: meetingKey, Summary: sum}
	c.fanout.Broadcast(meetingKey, events.EventSummaryReady, notice)
	if origin != nil {
		// The requester gets a direct copy as well. It is usually a
		// group member, so it may see the event twice; delivery to the
		// requester matters more than suppressing the duplicate.
		origin.Send(events.EventSummaryReady, notice)
	}

	if len(recipients) > 0 {
		c.wg.Add(1)
		go c.distribute(meetingKey, recipients, sum)
	}

	c.scheduleClear(meetingKey)
}

func (c *Controller) buildSummary(snap session.Snapshot) *session.Summary {
	ctx, cancel := context.WithTimeout(context.Background(), c.summaryTimeout)
	defer cancel()

	start := time.Now()
	sum, err := c.summarizer.Summarize(ctx, snap)
	if err != nil {
		metrics.RecordSummary("full", "error")
		c.logger.Warn("summarization failed, using fallback",
			"meeting_key", snap.Key,
			"summarizer", c.summarizer.Name(),
			"error", err,
		)
		sum = summarize.FallbackSummary(snap)
		metrics.RecordSummary("fallback", "success")
		return sum
	}

	metrics.RecordSummary("full", "success")
	c.logger.Info("summary generated",
		"meeting_key", snap.Key,
		"summarizer", c.summarizer.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sum
}

func (c *Controller) distribute(meetingKey string, recipients []string, sum *session.Summary) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), distributionTimeout)
	defer cancel()

	if err := c.distributor.Deliver(ctx, meetingKey, recipients, sum); err != nil {
		// Best effort only: the session is already Summarized.
		c.logger.Warn("summary distribution failed",
			"meeting_key", meetingKey,
			"distributor", c.distributor.Name(),
			"recipients", len(recipients),
			"error", err,
		)
		return
	}
	c.audit.LogEvent(meetingKey, "summary-distributed", "", c.distributor.Name())
}

// QuickSummary produces an on-demand summary of the current state and
// answers the origin connection only. Nothing is persisted and the
// session state is untouched.
func (c *Controller) QuickSummary(origin hub.Conn, meetingKey string) {
	snap, ok := c.store.Get(meetingKey)
	if !ok {
		origin.Send(events.EventQuickSummaryError, events.QuickSummaryNotice{
			MeetingKey: meetingKey,
			Error:      "unknown meeting key",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.summaryTimeout)
	defer cancel()

	text, err := c.summarizer.QuickSummarize(ctx, snap)
	if err != nil {
		metrics.RecordSummary("quick", "error")
		c.logger.Warn("quick summary failed",
			"meeting_key", meetingKey, "summarizer", c.summarizer.Name(), "error", err)
		origin.Send(events.EventQuickSummaryError, events.QuickSummaryNotice{
			MeetingKey: meetingKey,
			Error:      "summary unavailable",
		})
		return
	}

	metrics.RecordSummary("quick", "success")
	origin.Send(events.EventQuickSummaryReady, events.QuickSummaryNotice{
		MeetingKey: meetingKey,
		Summary:    text,
	})
}

// scheduleClear arms the retention timer. A new end attempt on the same
// key resets any previous timer.
func (c *Controller) scheduleClear(meetingKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.clearTimers[meetingKey]; ok {
		t.Stop()
	}
	c.clearTimers[meetingKey] = time.AfterFunc(c.retentionDelay, func() {
		c.clear(meetingKey)
	})
}

// CancelClear disarms a pending clear, typically because a client joined
// the key again during the retention window. Reports whether a timer was
// pending.
func (c *Controller) CancelClear(meetingKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.clearTimers[meetingKey]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.clearTimers, meetingKey)
	return true
}

func (c *Controller) clear(meetingKey string) {
	c.mu.Lock()
	delete(c.clearTimers, meetingKey)
	c.mu.Unlock()

	if !c.store.Remove(meetingKey) {
		return
	}
	dropped := c.fanout.DropGroup(meetingKey)
	metrics.SetActiveSessions(c.store.Len())
	c.audit.LogTransition(meetingKey, string(session.StateSummarized), "cleared", "retention elapsed")
	c.logger.Info("session cleared",
		"meeting_key", meetingKey,
		"dropped_connections", dropped,
	)
}

// StartSweeper schedules the retention backstop: a periodic pass that
// clears summarized sessions whose retention window elapsed without the
// timer firing (for example after a crash-and-restart of the timer
// state).
func (c *Controller) StartSweeper(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return err
	}
	c.sweeper = cron.New(cron.WithParser(cronParser))
	if _, err := c.sweeper.AddFunc(schedule, c.Sweep); err != nil {
		return err
	}
	c.sweeper.Start()
	c.logger.Info("retention sweeper started", "schedule", schedule)
	return nil
}

// Sweep clears every summarized session past its retention window.
func (c *Controller) Sweep() {
	now := time.Now()
	for _, snap := range c.store.List() {
		if snap.State != session.StateSummarized || snap.EndedAt == nil {
			continue
		}
		if now.Sub(*snap.EndedAt) < c.retentionDelay {
			continue
		}
		c.CancelClear(snap.Key)
		c.clear(snap.Key)
	}
	metrics.SetActiveSessions(c.store.Len())
}

// Stop halts the sweeper, disarms pending clears, and waits for
// in-flight distributions. Sessions still in the store stay there.
func (c *Controller) Stop() {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	c.mu.Lock()
	for key, t := range c.clearTimers {
		t.Stop()
		delete(c.clearTimers, key)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
