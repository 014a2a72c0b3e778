package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
)

var (
	// EngineOperations counts public engine operations by outcome
	EngineOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintera_engine_operations_total",
			Help: "Engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// InstallmentsPosted counts postings, separating first posts from idempotent replays
	InstallmentsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintera_installments_posted_total",
			Help: "Installment postings by result",
		},
		[]string{"result"},
	)

	// PaymentAllocations counts BNPL allocations by strategy
	PaymentAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintera_payment_allocations_total",
			Help: "BNPL payment allocations by strategy",
		},
		[]string{"strategy"},
	)

	// OperationDuration observes engine operation latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintera_engine_operation_duration_seconds",
			Help:    "Engine operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ObserveOperation records one finished operation. It never panics.
func ObserveOperation(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	safely(func() {
		EngineOperations.WithLabelValues(operation, outcome).Inc()
		OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	})
}

// ObservePosting records a posting result: "posted" or "idempotent"
func ObservePosting(result string) {
	safely(func() {
		InstallmentsPosted.WithLabelValues(result).Inc()
	})
}

// ObserveAllocation records the strategy that served a payment
func ObserveAllocation(strategy string) {
	safely(func() {
		PaymentAllocations.WithLabelValues(strategy).Inc()
	})
}

func safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("metrics recording failed", "panic", r)
		}
	}()
	fn()
}
