// Package metrics provides Prometheus metrics for the meeting session server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// eventsIngestedTotal records every inbound realtime event by type.
	// Labels:
	//   - event: Inbound event name (join, audio-chunk, chat-message, ...)
	eventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joingo_events_ingested_total",
			Help: "Total number of inbound realtime events by event type",
		},
		[]string{"event"},
	)

	// transcriptionsTotal records completed transcription units of work.
	// Labels:
	//   - status: success, error or dropped (late result after end snapshot)
	transcriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joingo_transcriptions_total",
			Help: "Total number of audio chunk transcriptions by outcome",
		},
		[]string{"status"},
	)

	// transcriptionDuration records the transcription collaborator latency.
	// Buckets cover sub-second streaming chunks up to slow remote calls.
	transcriptionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "joingo_transcription_duration_seconds",
			Help:    "Transcription collaborator call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// summariesTotal records summary generations.
	// Labels:
	//   - mode: full, quick or fallback
	//   - status: success or error
	summariesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joingo_summaries_total",
			Help: "Total number of summary generations by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	// broadcastsTotal records fanout deliveries.
	// Labels:
	//   - event: Outbound event name
	//   - status: delivered or failed (per-connection)
	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joingo_broadcast_deliveries_total",
			Help: "Total number of per-connection broadcast deliveries",
		},
		[]string{"event", "status"},
	)

	// activeSessions tracks the number of sessions currently held in memory.
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "joingo_active_sessions",
			Help: "Number of meeting sessions currently held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsIngestedTotal)
	prometheus.MustRegister(transcriptionsTotal)
	prometheus.MustRegister(transcriptionDuration)
	prometheus.MustRegister(summariesTotal)
	prometheus.MustRegister(broadcastsTotal)
	prometheus.MustRegister(activeSessions)
}

// RecordEventIngested counts one inbound realtime event.
func RecordEventIngested(event string) {
	eventsIngestedTotal.WithLabelValues(event).Inc()
}

// RecordTranscription counts one finished transcription unit of work.
// status is success, error or dropped.
func RecordTranscription(status string) {
	transcriptionsTotal.WithLabelValues(status).Inc()
}

// RecordTranscriptionDuration records the collaborator call latency in seconds.
func RecordTranscriptionDuration(durationSeconds float64) {
	transcriptionDuration.Observe(durationSeconds)
}

// RecordSummary counts one summary generation.
// mode is full, quick or fallback; status is success or error.
func RecordSummary(mode, status string) {
	summariesTotal.WithLabelValues(mode, status).Inc()
}

// RecordBroadcastDelivery counts one per-connection delivery attempt.
func RecordBroadcastDelivery(event string, delivered bool) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	broadcastsTotal.WithLabelValues(event, status).Inc()
}

// SetActiveSessions sets the in-memory session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
