// metrics содержит Prometheus-коллекторы feed-service:
//   - feed_http_requests_total / feed_http_request_duration_seconds — REST API;
//   - feed_interactions_total — исходы лайков, комментариев и подписок;
//   - feed_counter_repairs_total — профили, исправленные реконсилером.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	interactions *prometheus.CounterVec
	repairs      prometheus.Counter
}

// New создаёт коллекторы и регистрирует их в reg.
// reg == nil — используется prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the interaction API.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feed",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency of the interaction API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed",
			Name:      "interactions_total",
			Help:      "Likes, comments and follows by outcome.",
		}, []string{"kind", "outcome"}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feed",
			Name:      "counter_repairs_total",
			Help:      "Profiles whose follow counters were repaired from the edge set.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.interactions, m.repairs)

	return m
}

// ObserveHTTP фиксирует завершённый HTTP-запрос.
// route — шаблон маршрута chi (например, "/api/videos/{videoId}/comments").
func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// Interaction реализует service.Recorder.
func (m *Metrics) Interaction(kind, outcome string) {
	m.interactions.WithLabelValues(kind, outcome).Inc()
}

// CounterRepairs увеличивает счётчик исправленных профилей на n.
func (m *Metrics) CounterRepairs(n int) {
	if n <= 0 {
		return
	}

	m.repairs.Add(float64(n))
}
