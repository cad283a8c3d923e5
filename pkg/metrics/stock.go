package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics records ledger movement outcomes and transfer latencies.
type StockMetrics struct {
	applied      *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	deduplicated *prometheus.CounterVec
	retries      prometheus.Counter
	duration     *prometheus.HistogramVec
}

// NewStockMetrics registers the stock metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_applied_total",
		Help: "Movements committed to the ledger, by movement type.",
	}, []string{"type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_rejected_total",
		Help: "Movements rejected before commit, by movement type and error code.",
	}, []string{"type", "code"})
	deduplicated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_deduplicated_total",
		Help: "Replayed movements answered from the existing ledger row.",
	}, []string{"type"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_transfer_retries_total",
		Help: "Read-check-write retries after a detected write race.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_operation_duration_seconds",
		Help:    "Duration of transfer protocol operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(applied, rejected, deduplicated, retries, duration)
	return &StockMetrics{
		applied:      applied,
		rejected:     rejected,
		deduplicated: deduplicated,
		retries:      retries,
		duration:     duration,
	}
}

// IncApplied increments the applied counter for the movement type.
func (s *StockMetrics) IncApplied(movementType string) {
	if s == nil || s.applied == nil {
		return
	}
	s.applied.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncRejected increments the rejected counter for the movement type and code.
func (s *StockMetrics) IncRejected(movementType, code string) {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.WithLabelValues(normalizeLabel(movementType), normalizeLabel(code)).Inc()
}

// IncDeduplicated increments the dedup counter for the movement type.
func (s *StockMetrics) IncDeduplicated(movementType string) {
	if s == nil || s.deduplicated == nil {
		return
	}
	s.deduplicated.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncRetry increments the transfer retry counter.
func (s *StockMetrics) IncRetry() {
	if s == nil || s.retries == nil {
		return
	}
	s.retries.Inc()
}

// ObserveDuration records the duration for the named operation.
func (s *StockMetrics) ObserveDuration(operation string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
