package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/saga"
)

var (
	sagaStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_steps_total",
			Help: "Total number of saga step outcomes labeled by saga, step and status",
		},
		[]string{"saga", "step", "status"},
	)
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of gateway requests labeled by method and status class",
		},
		[]string{"method", "status"},
	)
	gatewayRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of gateway requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
	rewardEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_events_total",
			Help: "Total number of reward event emissions labeled by key and status",
		},
		[]string{"key", "status"},
	)
	toastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toasts_total",
			Help: "Total number of transient user notices labeled by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	saga.RegisterStepRecorder(RecordSagaStep)
	apperrors.RegisterBreakerStateRecorder(RecordBreakerState)
	apperrors.RegisterErrorRecorder(RecordError)
}

// RecordSagaStep counts one saga step outcome.
func RecordSagaStep(sagaName, step, status string) {
	if sagaName == "" {
		sagaName = "unknown"
	}
	if step == "" {
		step = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	sagaStepsTotal.WithLabelValues(sagaName, step, status).Inc()
}

// RecordGatewayRequest counts one gateway round trip and its duration.
func RecordGatewayRequest(method, status string, duration time.Duration) {
	if method == "" {
		method = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	gatewayRequestsTotal.WithLabelValues(method, status).Inc()
	gatewayRequestDurationSeconds.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// RecordBreakerState maps a breaker state change onto the gauge.
func RecordBreakerState(name, state string) {
	if name == "" {
		name = "unknown"
	}

	var value float64
	switch state {
	case "half_open":
		value = 1
	case "open":
		value = 2
	}

	breakerState.WithLabelValues(name).Set(value)
}

// RecordRewardEvent counts one reward emission attempt.
func RecordRewardEvent(key, status string) {
	if key == "" {
		key = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	rewardEventsTotal.WithLabelValues(key, status).Inc()
}

// RecordToast counts one transient notice. kind is "success" or "error".
func RecordToast(kind string) {
	if kind == "" {
		kind = "unknown"
	}

	toastsTotal.WithLabelValues(kind).Inc()
}
