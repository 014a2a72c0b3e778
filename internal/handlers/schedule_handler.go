package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

type ScheduleHandler struct {
	scheduleService *services.ScheduleService
}

func NewScheduleHandler(scheduleService *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// @Summary Preview Loan Schedule
// @Description Generates an amortization schedule without touching any account
// @Tags Schedules
// @Accept json
// @Produce json
// @Param terms body LoanTermsRequest true "Loan terms"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /schedules/preview [post]
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req LoanTermsRequest
	if err := BindNestedOrFlat(c, "terms", &req); err != nil {
		badRequest(c, err)
		return
	}
	terms, err := req.terms()
	if err != nil {
		reject(c, err)
		return
	}
	respond(c, h.scheduleService.Preview(terms))
}

// @Summary Preview BNPL Plan
// @Description Generates a buy-now-pay-later plan without touching any account
// @Tags Schedules
// @Accept json
// @Produce json
// @Param terms body InstallmentPlanRequest true "Plan terms"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /bnpl/schedules/preview [post]
func (h *ScheduleHandler) PreviewInstallmentPlan(c *gin.Context) {
	var req InstallmentPlanRequest
	if err := BindNestedOrFlat(c, "terms", &req); err != nil {
		badRequest(c, err)
		return
	}
	terms, err := req.terms()
	if err != nil {
		reject(c, err)
		return
	}
	respond(c, h.scheduleService.PreviewInstallmentPlan(terms))
}
