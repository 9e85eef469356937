package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	authAttempts  *prometheus.CounterVec
	messagesSent  prometheus.Counter
	chatsCreated  prometheus.Counter
	chatsDeleted  prometheus.Counter
	searchQueries prometheus.Counter
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msgrd_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "msgrd_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msgrd_auth_attempts_total",
			Help: "Login and register attempts by outcome.",
		}, []string{"action", "result"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgrd_messages_sent_total",
			Help: "Messages stored.",
		}),
		chatsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgrd_chats_created_total",
			Help: "Chats created.",
		}),
		chatsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgrd_chats_deleted_total",
			Help: "Chats deleted.",
		}),
		searchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgrd_search_queries_total",
			Help: "User searches served.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.authAttempts,
		m.messagesSent, m.chatsCreated, m.chatsDeleted, m.searchQueries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
