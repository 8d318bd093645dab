package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	Requests   *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	PollVotes  *prometheus.CounterVec
	WorkerJobs *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PollVotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_poll_votes_total",
			Help: "Poll votes by outcome.",
		}, []string{"result"}),
		WorkerJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_worker_jobs_total",
			Help: "Background jobs by type and outcome.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.Requests, m.Duration, m.PollVotes, m.WorkerJobs)
	return m
}

// Middleware records request count and latency under the matched route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.Requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.Duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Vote records the outcome of a poll vote.
func (m *Metrics) Vote(result string) {
	if m == nil {
		return
	}
	m.PollVotes.WithLabelValues(result).Inc()
}

// Job records the outcome of a background job.
func (m *Metrics) Job(typ, result string) {
	if m == nil {
		return
	}
	m.WorkerJobs.WithLabelValues(typ, result).Inc()
}
