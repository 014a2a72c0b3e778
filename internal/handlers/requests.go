package handlers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

const dateLayout = "2006-01-02"

// LoanTermsRequest is the body of a loan schedule preview or plan build
type LoanTermsRequest struct {
	Principal  decimal.Decimal `json:"principal"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
	Term       int             `json:"term"`
	Frequency  string          `json:"frequency"`
	Method     string          `json:"method"`
	StartDate  string          `json:"start_date"`
	Balloon    decimal.Decimal `json:"balloon"`
}

func (r LoanTermsRequest) terms() (schedule.Terms, error) {
	frequency, err := schedule.ParseFrequency(r.Frequency)
	if err != nil {
		return schedule.Terms{}, err
	}
	method, err := schedule.ParseMethod(r.Method)
	if err != nil {
		return schedule.Terms{}, err
	}
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return schedule.Terms{}, err
	}
	return schedule.Terms{
		Principal:  r.Principal,
		AnnualRate: r.AnnualRate,
		Term:       r.Term,
		Frequency:  frequency,
		Method:     method,
		StartDate:  start,
		Balloon:    r.Balloon,
	}, nil
}

// InstallmentPlanRequest is the body of a BNPL preview or plan build
type InstallmentPlanRequest struct {
	Principal          decimal.Decimal `json:"principal"`
	Rate               decimal.Decimal `json:"rate"`
	Installments       int             `json:"installments"`
	Frequency          string          `json:"frequency"`
	Calculation        string          `json:"calculation"`
	FreeInterestMonths int             `json:"free_interest_months"`
	StartDate          string          `json:"start_date"`
}

func (r InstallmentPlanRequest) terms() (schedule.InstallmentPlanTerms, error) {
	frequency, err := schedule.ParseFrequency(r.Frequency)
	if err != nil {
		return schedule.InstallmentPlanTerms{}, err
	}
	calculation, err := schedule.ParseCalculation(r.Calculation)
	if err != nil {
		return schedule.InstallmentPlanTerms{}, err
	}
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return schedule.InstallmentPlanTerms{}, err
	}
	return schedule.InstallmentPlanTerms{
		Principal:          r.Principal,
		Rate:               r.Rate,
		Installments:       r.Installments,
		Frequency:          frequency,
		Calculation:        calculation,
		FreeInterestMonths: r.FreeInterestMonths,
		StartDate:          start,
	}, nil
}

// ExtraPaymentRequest is a lump-sum principal payment
type ExtraPaymentRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Date             string          `json:"date"`
	Mode             string          `json:"mode"`
	FundingAccountID *uint           `json:"funding_account_id"`
}

// PostInstallmentRequest realizes one loan installment. Without a
// sequence the next planned installment is posted.
type PostInstallmentRequest struct {
	FundingAccountID uint            `json:"funding_account_id"`
	Sequence         *int            `json:"sequence"`
	Date             string          `json:"date"`
	LateFee          decimal.Decimal `json:"late_fee"`
}

// PaymentRequest is an arbitrary amount paid against a BNPL plan
type PaymentRequest struct {
	FundingAccountID uint            `json:"funding_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Date             string          `json:"date"`
}

// parseDate accepts an empty value, which leaves the date to the engine clock
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &services.ValidationError{Field: field, Message: fmt.Sprintf("must be a date formatted as %s", dateLayout)}
	}
	return t, nil
}
