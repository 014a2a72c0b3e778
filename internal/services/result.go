package services

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sjperalta/fintera-ledger/internal/metrics"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
)

// Result is the envelope returned by every public engine operation.
// Data is only set when Success is true.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

// Err returns the underlying error of a failed result
func (r Result[T]) Err() error {
	return r.err
}

// run executes one public operation and converts its outcome into a Result.
// Panics are converted too; transactions have already rolled back by then.
func run[T any](operation string, accountID uint, fn func() (T, error)) (res Result[T]) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = failure[T](operation, accountID, started, fmt.Errorf("%s failed unexpectedly: %v", operation, r))
		}
	}()

	data, err := fn()
	if err != nil {
		return failure[T](operation, accountID, started, err)
	}

	metrics.ObserveOperation(operation, started, nil)
	logger.Operation(operation, accountID).Info("engine operation completed", "outcome", metrics.OutcomeSuccess)
	return Result[T]{Success: true, Data: data}
}

func failure[T any](operation string, accountID uint, started time.Time, err error) Result[T] {
	metrics.ObserveOperation(operation, started, err)
	log := logger.Operation(operation, accountID)
	if isExpected(err) {
		log.Warn("engine operation rejected", "error", err.Error())
	} else {
		log.Error("engine operation failed", "error", err.Error())
		report(operation, accountID, err)
	}
	return Result[T]{Success: false, Error: err.Error(), err: err}
}

// report sends collaborator failures to sentry. It never fails the caller.
func report(operation string, accountID uint, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("error report failed", "operation", operation, "panic", r)
		}
	}()

	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		scope.SetTag("account_id", fmt.Sprint(accountID))
		hub.CaptureException(err)
	})
}
