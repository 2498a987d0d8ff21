package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute labels requests no route matched, so arbitrary 404 paths
// cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

var (
	// httpRequests counts finished requests.
	// Labels: method, route (chi pattern such as /api/projects/{id}), status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devpulse",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	// httpDuration measures request latency. The top buckets leave room for
	// commit analysis, which makes several LLM calls in one request.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "devpulse",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds by method and route pattern",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route"})
)

// Metrics records a request counter and latency histogram per chi route.
//
// The route pattern is only known after chi has routed the request, so it is
// read once the handler returns. Mount Metrics on the top-level router.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
