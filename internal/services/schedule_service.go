package services

import (
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
)

// ScheduleService previews schedules without touching any account
type ScheduleService struct{}

// SchedulePreview is a generated schedule with its totals
type SchedulePreview struct {
	Rows           []schedule.Row  `json:"rows"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalPayment   decimal.Decimal `json:"total_payment"`
	Discount       decimal.Decimal `json:"discount"`
}

func NewScheduleService() *ScheduleService {
	return &ScheduleService{}
}

// GenerateSchedule returns the rows for loan terms, or the validation error
func (s *ScheduleService) GenerateSchedule(terms schedule.Terms) ([]schedule.Row, error) {
	return schedule.Generate(terms)
}

// Preview wraps GenerateSchedule in the result envelope
func (s *ScheduleService) Preview(terms schedule.Terms) Result[*SchedulePreview] {
	return run("generate_schedule", 0, func() (*SchedulePreview, error) {
		rows, err := schedule.Generate(terms)
		if err != nil {
			return nil, err
		}
		return newPreview(rows, decimal.Zero), nil
	})
}

// PreviewInstallmentPlan generates a BNPL plan without persisting it
func (s *ScheduleService) PreviewInstallmentPlan(terms schedule.InstallmentPlanTerms) Result[*SchedulePreview] {
	return run("generate_installment_plan", 0, func() (*SchedulePreview, error) {
		plan, err := schedule.GenerateInstallmentPlan(terms)
		if err != nil {
			return nil, err
		}
		return newPreview(plan.Rows, plan.Discount), nil
	})
}

func newPreview(rows []schedule.Row, discount decimal.Decimal) *SchedulePreview {
	principal := schedule.TotalPrincipal(rows)
	interest := schedule.TotalInterest(rows)
	return &SchedulePreview{
		Rows:           rows,
		TotalPrincipal: principal,
		TotalInterest:  interest,
		TotalPayment:   principal.Add(interest),
		Discount:       discount,
	}
}
