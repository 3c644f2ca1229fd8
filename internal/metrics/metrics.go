// Package metrics holds the Prometheus collectors for the floor service.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)

	ledgerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_ledger_events_total",
			Help: "Events published by the order ledger",
		},
		[]string{"type"},
	)

	integrityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_integrity_warnings_total",
			Help: "Data integrity warnings raised by the order ledger",
		},
		[]string{"code"},
	)

	ledgerCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floor_ledger_commands_total",
			Help: "Order ledger commands by outcome",
		},
		[]string{"command", "result"},
	)
)

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

// RecordCommand counts a ledger command by the kind of its outcome.
func RecordCommand(command string, err error) {
	ledgerCommands.WithLabelValues(command, Result(err)).Inc()
}

// Result maps a ledger error to its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrGuardViolation):
		return "guard_violation"
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ledger.ErrNotReady):
		return "not_ready"
	default:
		return "error"
	}
}

// Observer counts ledger events and integrity warnings.
type Observer struct{}

func (Observer) Notify(e ledger.Event) {
	ledgerEvents.WithLabelValues(e.Type).Inc()
	if e.Warning != nil {
		integrityWarnings.WithLabelValues(e.Warning.Code).Inc()
	}
}
