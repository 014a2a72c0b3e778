package schedule

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Calculation is how a BNPL plan prices its financing
type Calculation string

const (
	CalculationFlat        Calculation = "flat"
	CalculationCompounding Calculation = "compounding"
	CalculationSharia      Calculation = "sharia"
)

// ParseCalculation accepts "murabaha" as an alias of sharia
func ParseCalculation(s string) (Calculation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat":
		return CalculationFlat, nil
	case "compounding", "compound":
		return CalculationCompounding, nil
	case "sharia", "murabaha":
		return CalculationSharia, nil
	}
	return "", invalid("calculation", "%q is not supported", s)
}

// Valid reports whether c is a known calculation
func (c Calculation) Valid() bool {
	switch c {
	case CalculationFlat, CalculationCompounding, CalculationSharia:
		return true
	}
	return false
}

// InstallmentPlanTerms describes a buy-now-pay-later plan
type InstallmentPlanTerms struct {
	Principal          decimal.Decimal
	Rate               decimal.Decimal // annual percent; total markup percent for sharia
	Installments       int
	Frequency          Frequency
	Calculation        Calculation
	FreeInterestMonths int
	StartDate          time.Time
}

// Validate rejects plans that cannot be generated
func (t InstallmentPlanTerms) Validate() error {
	if t.Principal.IsNegative() {
		return invalid("principal", "must not be negative")
	}
	if t.Rate.IsNegative() {
		return invalid("rate", "must not be negative")
	}
	if t.Installments <= 0 {
		return invalid("installments", "must be greater than 0")
	}
	if !t.Frequency.Valid() {
		return invalid("frequency", "%q is not supported", string(t.Frequency))
	}
	if !t.Calculation.Valid() {
		return invalid("calculation", "%q is not supported", string(t.Calculation))
	}
	if t.FreeInterestMonths < 0 || t.FreeInterestMonths > t.Installments {
		return invalid("free_interest_months", "must be between 0 and the number of installments")
	}
	if t.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	return nil
}

// InstallmentPlan is a generated BNPL schedule
type InstallmentPlan struct {
	Rows          []Row           `json:"rows"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Discount      decimal.Decimal `json:"discount"`
}

// GenerateInstallmentPlan builds a BNPL schedule. The first FreeInterestMonths
// installments carry no interest; the waived amount is reported as Discount.
func GenerateInstallmentPlan(terms InstallmentPlanTerms) (*InstallmentPlan, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	n := terms.Installments
	var rows []Row
	switch {
	case terms.Rate.IsZero():
		rows = straightLine(terms.Principal, n)
	case terms.Calculation == CalculationCompounding:
		rows = annuity(terms.Principal, periodRate(terms.Rate, terms.Frequency), n)
	case terms.Calculation == CalculationSharia:
		markup := terms.Principal.Mul(terms.Rate).Div(hundred)
		rows = evenSplit(terms.Principal, markup, n)
	default:
		years := decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(terms.Frequency.PeriodsPerYear()))
		interest := terms.Principal.Mul(terms.Rate).Div(hundred).Mul(years)
		rows = evenSplit(terms.Principal, interest, n)
	}

	correctDrift(rows, terms.Principal)

	discount := decimal.Zero
	for i := 0; i < terms.FreeInterestMonths && i < len(rows); i++ {
		discount = discount.Add(rows[i].Interest)
		rows[i].Interest = decimal.Zero
	}

	addBalloon(rows, decimal.Zero)
	finalize(rows, terms.Principal, terms.Frequency, terms.StartDate)

	return &InstallmentPlan{
		Rows:          rows,
		TotalInterest: TotalInterest(rows),
		Discount:      discount,
	}, nil
}

// evenSplit spreads principal and a fixed financing charge over n rows.
// The charge remainder lands on the last row like the principal drift.
func evenSplit(principal, charge decimal.Decimal, n int) []Row {
	count := decimal.NewFromInt(int64(n))
	share := principal.Div(count).Round(Precision)
	chargeShare := charge.Div(count).Round(Precision)
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{Principal: share, Interest: chargeShare}
	}
	charged := chargeShare.Mul(count)
	last := &rows[n-1]
	last.Interest = last.Interest.Add(charge.Round(Precision).Sub(charged))
	return rows
}
