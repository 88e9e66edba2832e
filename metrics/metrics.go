package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkshare",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sparkshare",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	invitations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkshare",
			Subsystem: "friends",
			Name:      "invitations_total",
			Help:      "Friend invitation lifecycle events.",
		},
		[]string{"event"},
	)

	friendships = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkshare",
			Subsystem: "friends",
			Name:      "friendships_total",
			Help:      "Friendships created and removed.",
		},
		[]string{"event"},
	)

	shares = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparkshare",
			Subsystem: "mailbox",
			Name:      "envelopes_total",
			Help:      "Shared item envelope events per spark.",
		},
		[]string{"spark_id", "event"},
	)

	pendingInvitations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sparkshare",
			Subsystem: "friends",
			Name:      "pending_invitations",
			Help:      "Invitations waiting for a response.",
		},
	)

	pendingEnvelopes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sparkshare",
			Subsystem: "mailbox",
			Name:      "pending_envelopes",
			Help:      "Shared item envelopes not yet accepted or rejected.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		invitations,
		friendships,
		shares,
		pendingInvitations,
		pendingEnvelopes,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordInvitation(event string) {
	invitations.WithLabelValues(event).Inc()
}

func RecordFriendship(event string) {
	friendships.WithLabelValues(event).Inc()
}

func RecordEnvelope(sparkID, event string) {
	shares.WithLabelValues(sparkID, event).Inc()
}

func SetPendingInvitations(n int64) {
	pendingInvitations.Set(float64(n))
}

func SetPendingEnvelopes(n int64) {
	pendingEnvelopes.Set(float64(n))
}
