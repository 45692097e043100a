// Package metrics holds the Prometheus collectors shared by the recognition and
// broadcast pipelines. Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recognition pipeline metrics
var (
	// FramesProcessedTotal counts frames that went through detection.
	FramesProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gesturecast_frames_processed_total",
			Help: "Total frames run through hand detection",
		},
	)

	// FramesSkippedTotal counts frames dropped before recognition, by reason
	// (no_motion, capture_error, detect_error, disabled).
	FramesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesturecast_frames_skipped_total",
			Help: "Total frames skipped before recognition by reason",
		},
		[]string{"reason"},
	)

	// HandsPerFrame tracks how many hands the detector reports.
	HandsPerFrame = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gesturecast_hands_per_frame",
			Help:    "Number of hands detected per processed frame",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)

	// GestureEventsTotal counts emitted gesture events by kind.
	GestureEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesturecast_gesture_events_total",
			Help: "Total gesture events emitted by kind",
		},
		[]string{"kind"},
	)

	// EventQueueDepth is the number of events waiting for broadcast.
	EventQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gesturecast_event_queue_depth",
			Help: "Current number of gesture events waiting to be broadcast",
		},
	)
)

// Broadcast metrics
var (
	// WebSocketConnectionsCurrent tracks registered subscribers.
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gesturecast_websocket_connections_current",
			Help: "Current number of registered WebSocket subscribers",
		},
	)

	// WebSocketConnectionsTotal counts connection attempts by result (success/error).
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesturecast_websocket_connections_total",
			Help: "Total WebSocket connection attempts by result",
		},
		[]string{"result"},
	)

	// BroadcastDeliveryFailuresTotal counts writes that failed and evicted a subscriber.
	BroadcastDeliveryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gesturecast_broadcast_delivery_failures_total",
			Help: "Total failed event deliveries; each one deregisters the subscriber",
		},
	)

	// WebSocketMessageSendDuration tracks a single subscriber write.
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gesturecast_websocket_message_send_duration_seconds",
			Help:    "Time to write one event to one subscriber",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// EventBroadcastLatency tracks the time from release frame to fan-out completion.
	EventBroadcastLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gesturecast_event_broadcast_latency_seconds",
			Help:    "Latency from gesture release frame to completed fan-out",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Action metrics
var (
	// ActionExecutionsTotal counts bound plugin actions by status (success/error).
	ActionExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesturecast_action_executions_total",
			Help: "Total plugin actions run in response to gestures by status",
		},
		[]string{"status"},
	)
)
