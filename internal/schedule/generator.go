// Package schedule generates payment schedules for loans and
// buy-now-pay-later plans. Everything here is pure: no I/O, no clock.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimals carried by schedule rows
const Precision = 4

// centPrecision is used for straight-line shares
const centPrecision = 2

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Row is one period of a schedule. Principal includes Balloon on the last row.
type Row struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Balloon          decimal.Decimal `json:"balloon"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Generate builds the schedule for terms. Invalid terms return an error and no rows.
func Generate(terms Terms) ([]Row, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	periods := RowCount(terms.Frequency, terms.Term)
	base := terms.AmortizingBase()

	var rows []Row
	switch {
	case terms.AnnualRate.IsZero():
		rows = straightLine(base, periods)
	case terms.Method == MethodFlat:
		rows = flat(base, terms.Principal, terms.AnnualRate, terms.Frequency, periods)
	default:
		// annuity and balloon share the annuity engine
		rate := periodRate(terms.AnnualRate, terms.Frequency)
		rows = annuity(base, rate, periods)
	}

	correctDrift(rows, base)
	addBalloon(rows, terms.Balloon)
	finalize(rows, terms.Principal, terms.Frequency, terms.StartDate)
	return rows, nil
}

// TotalPrincipal sums the Principal column, balloon included
func TotalPrincipal(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Principal)
	}
	return total
}

// TotalInterest sums the Interest column
func TotalInterest(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Interest)
	}
	return total
}

func periodRate(annualRate decimal.Decimal, f Frequency) decimal.Decimal {
	return annualRate.Div(hundred).Div(decimal.NewFromInt(f.PeriodsPerYear()))
}

func straightLine(base decimal.Decimal, periods int) []Row {
	share := base.Div(decimal.NewFromInt(int64(periods))).Round(centPrecision)
	rows := make([]Row, periods)
	for i := range rows {
		rows[i] = Row{Principal: share, Interest: decimal.Zero}
	}
	return rows
}

func flat(base, principal, annualRate decimal.Decimal, f Frequency, periods int) []Row {
	share := base.Div(decimal.NewFromInt(int64(periods))).Round(Precision)
	interest := principal.Mul(annualRate).Div(hundred).Mul(f.flatFraction()).Round(Precision)
	rows := make([]Row, periods)
	for i := range rows {
		rows[i] = Row{Principal: share, Interest: interest}
	}
	return rows
}

func annuity(base, rate decimal.Decimal, periods int) []Row {
	payment := annuityPayment(base, rate, periods)
	balance := base
	rows := make([]Row, periods)
	for i := range rows {
		interest := balance.Mul(rate).Round(Precision)
		portion := payment.Sub(interest).Round(Precision)
		if portion.GreaterThan(balance) {
			portion = balance
		}
		if portion.IsNegative() {
			portion = decimal.Zero
		}
		balance = balance.Sub(portion)
		rows[i] = Row{Principal: portion, Interest: interest}
	}
	return rows
}

// annuityPayment is P * r * (1+r)^n / ((1+r)^n - 1)
func annuityPayment(base, rate decimal.Decimal, periods int) decimal.Decimal {
	if rate.IsZero() {
		return base.Div(decimal.NewFromInt(int64(periods)))
	}
	factor := powInt(one.Add(rate), periods)
	return base.Mul(rate).Mul(factor).Div(factor.Sub(one))
}

func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(18)
	}
	return result
}

// correctDrift pushes the rounding remainder into the last row
func correctDrift(rows []Row, base decimal.Decimal) {
	if len(rows) == 0 {
		return
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Principal)
	}
	last := &rows[len(rows)-1]
	last.Principal = last.Principal.Add(base.Sub(sum))
}

func addBalloon(rows []Row, balloon decimal.Decimal) {
	for i := range rows {
		rows[i].Balloon = decimal.Zero
	}
	if len(rows) == 0 || !balloon.IsPositive() {
		return
	}
	last := &rows[len(rows)-1]
	last.Balloon = balloon
	last.Principal = last.Principal.Add(balloon)
}

func finalize(rows []Row, principal decimal.Decimal, f Frequency, start time.Time) {
	remaining := principal
	for i := range rows {
		r := &rows[i]
		r.Period = i + 1
		r.DueDate = f.DueDate(start, i+1)
		r.Total = r.Principal.Add(r.Interest)
		remaining = remaining.Sub(r.Principal)
		r.RemainingBalance = remaining
	}
}
