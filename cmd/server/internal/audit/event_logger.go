// Package audit records session events and lifecycle transitions to a
// rotating JSONL file for offline inspection.
package audit

import (
	"encoding/json"
	"log"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventLogger appends one JSON record per line. A nil *EventLogger is
// valid and disables auditing, so call sites never need to guard.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger creates an EventLogger writing to logPath with size and
// age based rotation. An empty path returns nil (auditing disabled).
func NewEventLogger(logPath string) *EventLogger {
	if logPath == "" {
		return nil
	}
	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
	return &EventLogger{
		logger: log.New(writer, "", 0), // records carry their own timestamp
	}
}

// LogEvent records one inbound realtime event.
func (a *EventLogger) LogEvent(meetingKey, event, participantID, detail string) {
	if a == nil {
		return
	}
	record := map[string]interface{}{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"kind":        "event",
		"meeting_key": meetingKey,
		"event":       event,
	}
	if participantID != "" {
		record["participant_id"] = participantID
	}
	if detail != "" {
		record["detail"] = detail
	}
	data, _ := json.Marshal(record)
	a.logger.Println(string(data))
}

// LogTransition records one lifecycle state transition.
func (a *EventLogger) LogTransition(meetingKey, from, to, detail string) {
	if a == nil {
		return
	}
	record := map[string]interface{}{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"kind":        "transition",
		"meeting_key": meetingKey,
		"from":        from,
		"to":          to,
	}
	if detail != "" {
		record["detail"] = detail
	}
	data, _ := json.Marshal(record)
	a.logger.Println(string(data))
}
