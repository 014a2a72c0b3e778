package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

type PlanHandler struct {
	planBuilder *services.PlanBuilder
}

func NewPlanHandler(planBuilder *services.PlanBuilder) *PlanHandler {
	return &PlanHandler{planBuilder: planBuilder}
}

// @Summary Build Loan Plan
// @Description Regenerates the installment plan of a loan. Posted installments are kept.
// @Tags Plans
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param terms body LoanTermsRequest true "Loan terms"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /accounts/{account_id}/plan [put]
func (h *PlanHandler) BuildPlan(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
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
	respond(c, h.planBuilder.BuildPlan(c.Request.Context(), id, terms))
}

// @Summary Build BNPL Plan
// @Description Regenerates the installment plan of a BNPL account and refreshes its available credit
// @Tags Plans
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param terms body InstallmentPlanRequest true "Plan terms"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /accounts/{account_id}/bnpl_plan [put]
func (h *PlanHandler) BuildInstallmentPlan(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
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
	respond(c, h.planBuilder.BuildInstallmentPlan(c.Request.Context(), id, terms))
}
