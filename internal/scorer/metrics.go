package scorer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opScore    = "score"
	opInsights = "insights"

	outcomeOK           = "ok"
	outcomeTransport    = "transport_error"
	outcomeEmpty        = "empty_response"
	outcomeParse        = "parse_error"
	outcomeInvalid      = "invalid_schema"
	outcomeUnconfigured = "unconfigured"
)

// scorerResults counts scorer calls by operation and how they ended.
// Anything other than "ok" means the fallback was served.
var scorerResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "devpulse",
	Subsystem: "scorer",
	Name:      "results_total",
	Help:      "Scorer calls by operation and outcome",
}, []string{"operation", "outcome"})

func recordResult(operation, outcome string) {
	scorerResults.WithLabelValues(operation, outcome).Inc()
}
