package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTerms is wrapped by every ValidationError returned from this package
var ErrInvalidTerms = errors.New("invalid debt terms")

// ValidationError describes a rejected term field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTerms
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Frequency is the payment cadence of a schedule
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

// ParseFrequency accepts the canonical names only; an empty value means monthly
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FrequencyMonthly, nil
	}
	if !f.Valid() {
		return "", invalid("frequency", "%q is not supported", s)
	}
	return f, nil
}

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyBiweekly,
		FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return true
	}
	return false
}

// PeriodsPerYear is the divisor used to turn an annual rate into a period rate
func (f Frequency) PeriodsPerYear() int64 {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyQuarterly:
		return 4
	case FrequencySemiannual:
		return 2
	case FrequencyAnnual:
		return 1
	default:
		return 12
	}
}

// flatFraction is the share of a year's flat interest charged per period.
// Weekly and biweekly are expressed as fractions of a month.
func (f Frequency) flatFraction() decimal.Decimal {
	switch f {
	case FrequencyWeekly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(48))
	case FrequencyBiweekly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(24))
	case FrequencyQuarterly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(4))
	case FrequencySemiannual:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(2))
	case FrequencyAnnual:
		return decimal.NewFromInt(1)
	default:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(12))
	}
}

// RowCount is the number of schedule rows produced for a term.
// Weekly and biweekly terms are given in months.
func RowCount(f Frequency, term int) int {
	switch f {
	case FrequencyWeekly:
		return term * 4
	case FrequencyBiweekly:
		return term * 2
	default:
		return term
	}
}

// TermForPeriods is the inverse of RowCount, rounding up
func TermForPeriods(f Frequency, periods int) int {
	if periods < 1 {
		periods = 1
	}
	switch f {
	case FrequencyWeekly:
		return (periods + 3) / 4
	case FrequencyBiweekly:
		return (periods + 1) / 2
	default:
		return periods
	}
}

// DueDate returns the date of the given 1-based period
func (f Frequency) DueDate(start time.Time, period int) time.Time {
	switch f {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*period)
	case FrequencyBiweekly:
		return start.AddDate(0, 0, 14*period)
	case FrequencyQuarterly:
		return start.AddDate(0, 3*period, 0)
	case FrequencySemiannual:
		return start.AddDate(0, 6*period, 0)
	case FrequencyAnnual:
		return start.AddDate(period, 0, 0)
	default:
		return start.AddDate(0, period, 0)
	}
}

// Method is the amortization method of a loan schedule
type Method string

const (
	MethodAnnuity  Method = "annuity"
	MethodFlat     Method = "flat"
	MethodBalloon  Method = "balloon"
	MethodZeroRate Method = "zero_rate"
)

// ParseMethod accepts "effective" and "linear" as aliases of annuity and flat
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annuity", "effective":
		return MethodAnnuity, nil
	case "flat", "linear":
		return MethodFlat, nil
	case "balloon":
		return MethodBalloon, nil
	case "zero_rate", "zero":
		return MethodZeroRate, nil
	}
	return "", invalid("method", "%q is not supported", s)
}

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	switch m {
	case MethodAnnuity, MethodFlat, MethodBalloon, MethodZeroRate:
		return true
	}
	return false
}

// Terms holds everything needed to generate a loan schedule
type Terms struct {
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal // percent, 12 means 12%
	Term       int
	Frequency  Frequency
	Method     Method
	StartDate  time.Time
	Balloon    decimal.Decimal
}

// AmortizingBase is the principal repaid through regular rows
func (t Terms) AmortizingBase() decimal.Decimal {
	return t.Principal.Sub(t.Balloon)
}

// Validate rejects terms that cannot produce a schedule
func (t Terms) Validate() error {
	if t.Principal.IsNegative() {
		return invalid("principal", "must not be negative")
	}
	if t.Balloon.IsNegative() || t.Balloon.GreaterThan(t.Principal) {
		return invalid("balloon", "must be between 0 and the principal")
	}
	if t.AnnualRate.IsNegative() {
		return invalid("annual_rate", "must not be negative")
	}
	if t.Term <= 0 {
		return invalid("term", "must be greater than 0")
	}
	if !t.Frequency.Valid() {
		return invalid("frequency", "%q is not supported", string(t.Frequency))
	}
	if !t.Method.Valid() {
		return invalid("method", "%q is not supported", string(t.Method))
	}
	if t.Method == MethodZeroRate && t.AnnualRate.IsPositive() {
		return invalid("method", "zero_rate requires an annual rate of 0")
	}
	if t.Method == MethodBalloon && !t.Balloon.IsPositive() {
		return invalid("balloon", "is required by the balloon method")
	}
	if t.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	return nil
}
