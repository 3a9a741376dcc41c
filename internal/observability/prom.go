package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "taskmanager"

// Prom holds the service's collectors. HTTP series are labelled by route
// template, so /tasks/:id is one series no matter how many ids are hit.
type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	AuthFailures *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	f := promauto.With(reg)
	httpLabels := []string{"method", "route", "status"}

	return &Prom{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status.",
		}, httpLabels),
		RequestsDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route template and status.",
			Buckets:   prometheus.ExponentialBucketsRange(0.002, 5, 12),
		}, httpLabels),
		InFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served.",
		}, []string{"method", "route"}),

		DbQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Store operation latency by logical op and status (ok|no_rows|error).",
			Buckets:   prometheus.ExponentialBucketsRange(0.001, 2, 12),
		}, []string{"op", "status"}),
		DbErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Store errors by logical op and class.",
		}, []string{"op", "class"}),

		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentication attempts by reason.",
		}, []string{"reason"}), // missing|format|expired|invalid|user_not_found|forbidden|bad_credentials
	}
}

// AuthFailure is nil-safe so callers without metrics can pass a nil *Prom.
func (p *Prom) AuthFailure(reason string) {
	if p == nil {
		return
	}
	p.AuthFailures.WithLabelValues(reason).Inc()
}

// GinHandleMiddleware records request count, latency and in-flight gauge.
// Requests that match no route share the "unmatched" label.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method

		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
