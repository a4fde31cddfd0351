// Package dispatch routes inbound client events to the session store,
// the fanout hub, the transcription coordinator, and the lifecycle
// controller. Events from one connection are handled sequentially in
// the order they arrived; concurrency exists only across connections.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/audit"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/events"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/hub"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/lifecycle"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/transcribe"
	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/metrics"
)

// Dispatcher owns the inbound side of the wire protocol.
type Dispatcher struct {
	store    *session.Store
	fanout   *hub.Hub
	coord    *transcribe.Coordinator
	control  *lifecycle.Controller
	logger   *slog.Logger
	audit    *audit.EventLogger
	language string
}

// NewDispatcher wires the dispatcher to its collaborators. language is
// the default transcription language applied to every audio chunk.
func NewDispatcher(
	store *session.Store,
	fanout *hub.Hub,
	coord *transcribe.Coordinator,
	control *lifecycle.Controller,
	language string,
	logger *slog.Logger,
	auditLog *audit.EventLogger,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		fanout:   fanout,
		coord:    coord,
		control:  control,
		logger:   logger,
		audit:    auditLog,
		language: language,
	}
}

// Dispatch decodes one inbound frame and routes it. A returned error
// means the frame was unusable; the connection itself stays open.
func (d *Dispatcher) Dispatch(conn hub.Conn, data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}
	metrics.RecordEventIngested(env.Event)

	switch env.Event {
	case events.EventJoin:
		var p events.JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		return d.handleJoin(conn, p)

	case events.EventAudioChunk:
		var p events.AudioChunkPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		return d.handleAudioChunk(p)

	case events.EventChatMessage:
		var p events.ChatMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		return d.handleChat(conn, p)

	case events.EventEndMeeting:
		var p events.EndMeetingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		d.audit.LogEvent(p.MeetingKey, env.Event, "", fmt.Sprintf("%d recipients", len(p.RecipientList)))
		d.control.EndMeeting(conn, p.MeetingKey, p.RecipientList)
		return nil

	case events.EventQuickSummary:
		var p events.QuickSummaryPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		d.control.QuickSummary(conn, p.MeetingKey)
		return nil

	case events.EventLeave:
		var p events.LeavePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		return d.handleLeave(conn, p)

	default:
		d.logger.Warn("unknown event ignored", "event", env.Event, "conn_id", conn.ID())
		return nil
	}
}

func (d *Dispatcher) handleJoin(conn hub.Conn, p events.JoinPayload) error {
	if p.MeetingKey == "" || p.ParticipantID == "" {
		conn.Send(events.EventJoinedMeeting, events.JoinedMeetingAck{
			MeetingKey: p.MeetingKey,
			Success:    false,
			Message:    "meetingKey and participantId are required",
		})
		return fmt.Errorf("join missing meetingKey or participantId")
	}

	// A rejoin during the retention window keeps the session alive.
	d.control.CancelClear(p.MeetingKey)

	now := time.Now()
	// AddParticipant keeps the participant log free of duplicates; the
	// announcement below goes out on every join so members see rejoins
	// after a dropped connection too.
	d.store.MutateEnsure(p.MeetingKey, func(s *session.Session) {
		s.AddParticipant(session.Participant{
			ID:             p.ParticipantID,
			DisplayName:    p.DisplayName,
			ContactAddress: p.ContactAddress,
			JoinedAt:       now,
		})
	})
	metrics.SetActiveSessions(d.store.Len())

	d.fanout.Join(p.MeetingKey, conn)

	d.audit.LogEvent(p.MeetingKey, events.EventJoin, p.ParticipantID, p.DisplayName)
	d.fanout.BroadcastExcept(p.MeetingKey, conn.ID(), events.EventParticipantJoined, events.ParticipantNotice{
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Timestamp:     now,
	})

	conn.Send(events.EventJoinedMeeting, events.JoinedMeetingAck{
		MeetingKey: p.MeetingKey,
		Success:    true,
		Message:    "joined",
	})
	return nil
}

func (d *Dispatcher) handleAudioChunk(p events.AudioChunkPayload) error {
	if p.MeetingKey == "" || len(p.AudioBytes) == 0 {
		return fmt.Errorf("audio chunk missing meetingKey or audio data")
	}
	capturedAt := p.CaptureTimestamp
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	d.coord.Submit(transcribe.Chunk{
		MeetingKey:    p.MeetingKey,
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Audio:         p.AudioBytes,
		Language:      d.language,
		CapturedAt:    capturedAt,
	})
	return nil
}

func (d *Dispatcher) handleChat(conn hub.Conn, p events.ChatMessagePayload) error {
	if p.MeetingKey == "" || p.Text == "" {
		return fmt.Errorf("chat message missing meetingKey or text")
	}
	sentAt := p.Timestamp
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	d.store.MutateEnsure(p.MeetingKey, func(s *session.Session) {
		s.AppendChat(session.ChatEntry{
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			Text:          p.Text,
			SentAt:        sentAt,
		})
	})

	// The sender gets an ack; clients render their own chat locally, so
	// no group broadcast happens here.
	conn.Send(events.EventChatReceived, events.ChatReceivedAck{
		Success:   true,
		Timestamp: sentAt,
	})
	return nil
}

func (d *Dispatcher) handleLeave(conn hub.Conn, p events.LeavePayload) error {
	if p.MeetingKey == "" {
		return fmt.Errorf("leave missing meetingKey")
	}
	d.fanout.Leave(p.MeetingKey, conn.ID())
	d.audit.LogEvent(p.MeetingKey, events.EventLeave, p.ParticipantID, p.DisplayName)

	// The departure notice goes out even for a participant that never
	// joined; the group simply learns nothing new. The participant log
	// keeps everyone who ever attended.
	d.fanout.Broadcast(p.MeetingKey, events.EventParticipantLeft, events.ParticipantNotice{
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Timestamp:     time.Now(),
	})
	return nil
}

// HandleDisconnect cleans up after a transport-level drop: the
// connection leaves every fanout group it was subscribed to. Session
// participant logs are untouched; a disconnect is not a leave.
func (d *Dispatcher) HandleDisconnect(conn hub.Conn) {
	keys := d.fanout.DropConn(conn.ID())
	if len(keys) > 0 {
		d.logger.Info("connection dropped from fanout groups",
			"conn_id", conn.ID(),
			"meetings", len(keys),
		)
	}
}
