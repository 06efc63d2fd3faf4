package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionIntake   = "intake"

	DropQueueFull  = "queue_full"
	DropNoSession  = "no_session"
	DropSendFailed = "send_failed"
	DropCleared    = "cleared"
)

var (
	registerOnce sync.Once

	eventsQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "events",
			Name:      "queued_total",
			Help:      "Events accepted into a session or intake queue.",
		},
		[]string{"direction"},
	)
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped by the lossy delivery contract.",
		},
		[]string{"direction", "reason"},
	)
	eventsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "events",
			Name:      "sent_total",
			Help:      "Events written to the transport.",
		},
	)
	chunksEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "events",
			Name:      "chunks_emitted_total",
			Help:      "Fragments produced by splitting oversized events.",
		},
	)
	sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "assurance",
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the current connection state of the active session.",
		},
		[]string{"state"},
	)
	sessionCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "session",
			Name:      "closes_total",
			Help:      "Transport closures by classified reason.",
		},
		[]string{"reason", "code"},
	)
	reconnectsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "session",
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled after abnormal closure.",
		},
		[]string{"immediate"},
	)
	pluginNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "plugins",
			Name:      "notifications_total",
			Help:      "Plugin notifications delivered by kind.",
		},
		[]string{"kind"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assurance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assurance",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			eventsQueued,
			eventsDropped,
			eventsSent,
			chunksEmitted,
			sessionState,
			sessionCloses,
			reconnectsScheduled,
			pluginNotifications,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordQueued(direction string) {
	RegisterMetrics()
	eventsQueued.WithLabelValues(direction).Inc()
}

func RecordDropped(direction, reason string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	eventsDropped.WithLabelValues(direction, reason).Add(float64(n))
}

func RecordSent() {
	RegisterMetrics()
	eventsSent.Inc()
}

func RecordChunks(n int) {
	RegisterMetrics()
	chunksEmitted.Add(float64(n))
}

// SetSessionState marks state as the only active state label.
func SetSessionState(state string, all []string) {
	RegisterMetrics()
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

func RecordClose(reason string, code int) {
	RegisterMetrics()
	sessionCloses.WithLabelValues(reason, strconv.Itoa(code)).Inc()
}

func RecordReconnect(immediate bool) {
	RegisterMetrics()
	reconnectsScheduled.WithLabelValues(strconv.FormatBool(immediate)).Inc()
}

func RecordPluginNotification(kind string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	pluginNotifications.WithLabelValues(kind).Add(float64(n))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
