package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

type PaymentHandler struct {
	extraPayments *services.ExtraPaymentAllocator
	allocation    *services.PaymentAllocationEngine
}

func NewPaymentHandler(extraPayments *services.ExtraPaymentAllocator, allocation *services.PaymentAllocationEngine) *PaymentHandler {
	return &PaymentHandler{extraPayments: extraPayments, allocation: allocation}
}

// @Summary Extra Payment
// @Description Applies a lump sum to a loan and re-amortizes the rest of the plan
// @Tags Payments
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param payment body ExtraPaymentRequest true "Extra payment"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /accounts/{account_id}/extra_payments [post]
func (h *PaymentHandler) ExtraPayment(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req ExtraPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err)
		return
	}
	mode, err := services.ParseAllocationMode(req.Mode)
	if err != nil {
		reject(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		reject(c, err)
		return
	}
	respond(c, h.extraPayments.ApplyExtraPayment(c.Request.Context(), services.ExtraPaymentRequest{
		AccountID:        id,
		Amount:           req.Amount,
		Date:             date,
		Mode:             mode,
		FundingAccountID: req.FundingAccountID,
	}))
}

// @Summary BNPL Payment
// @Description Allocates an arbitrary amount across the outstanding installments of a BNPL plan
// @Tags Payments
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param payment body PaymentRequest true "Payment"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /accounts/{account_id}/payments [post]
func (h *PaymentHandler) Allocate(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		reject(c, err)
		return
	}
	respond(c, h.allocation.AllocatePayment(c.Request.Context(), services.PaymentRequest{
		AccountID:        id,
		FundingAccountID: req.FundingAccountID,
		Amount:           req.Amount,
		Date:             date,
	}))
}
