package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/fintera-ledger/internal/schedule"
	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrConflict        = errors.New("conflicting concurrent update")
	ErrWrongInstrument = errors.New("operation not supported for this account type")
	ErrNothingToPay    = errors.New("no outstanding installments")
	ErrValidation      = errors.New("validation failed")
)

// ValidationError describes a rejected request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is the caller's fault and happened before any mutation
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, schedule.ErrInvalidTerms) ||
		errors.Is(err, ErrWrongInstrument)
}

// isExpected reports errors that are part of the contract rather than collaborator faults
func isExpected(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNothingToPay) ||
		errors.Is(err, ErrConflict)
}

// notFound turns a missing row into ErrNotFound, naming what was looked up
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return err
}
