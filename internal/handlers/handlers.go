package handlers

import (
	"github.com/sjperalta/fintera-ledger/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health      *HealthHandler
	Schedule    *ScheduleHandler
	Plan        *PlanHandler
	Installment *InstallmentHandler
	Payment     *PaymentHandler
	Job         *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(),
		Schedule:    NewScheduleHandler(svcs.Schedule),
		Plan:        NewPlanHandler(svcs.Plan),
		Installment: NewInstallmentHandler(svcs.Installments, svcs.Principal, svcs.Poster),
		Payment:     NewPaymentHandler(svcs.ExtraPayment, svcs.Allocation),
		Job:         NewJobHandler(svcs.Job),
	}
}
