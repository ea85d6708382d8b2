package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionMetrics aggregates counters across every session in the
// process. A nil *SessionMetrics disables collection.
type SessionMetrics struct {
	ActiveSessions    prometheus.Gauge
	SessionsStarted   prometheus.Counter
	SessionsClosed    prometheus.Counter
	WidgetsMounted    prometheus.Counter
	FramesReceived    prometheus.Counter
	FramesSent        prometheus.Counter
	DroppedFrames     prometheus.Counter
	DroppedDispatches prometheus.Counter
	BytesReceived     prometheus.Counter
	BytesSent         prometheus.Counter
}

// NewSessionMetrics registers the session metric family with reg.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	f := promauto.With(reg)
	return &SessionMetrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "active_sessions",
			Help: "Sessions currently connected.",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "sessions_started_total",
			Help: "Sessions accepted since start.",
		}),
		SessionsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "sessions_closed_total",
			Help: "Sessions shut down since start.",
		}),
		WidgetsMounted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "widgets_mounted_total",
			Help: "Widget instances mounted across all sessions.",
		}),
		FramesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "frames_received_total",
			Help: "Frames decoded from clients.",
		}),
		FramesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "frames_sent_total",
			Help: "Frames written to clients.",
		}),
		DroppedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "dropped_frames_total",
			Help: "Client frames dropped due to a full event queue.",
		}),
		DroppedDispatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "dropped_dispatches_total",
			Help: "Event-loop dispatches dropped due to a full queue.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "bytes_received_total",
			Help: "Websocket payload bytes received.",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell", Subsystem: "server",
			Name: "bytes_sent_total",
			Help: "Websocket payload bytes sent.",
		}),
	}
}
