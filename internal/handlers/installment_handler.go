package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InstallmentHandler struct {
	installmentService *services.InstallmentService
	principal          *services.RemainingPrincipalCalculator
	poster             *services.InstallmentPoster
}

func NewInstallmentHandler(installmentService *services.InstallmentService, principal *services.RemainingPrincipalCalculator, poster *services.InstallmentPoster) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService, principal: principal, poster: poster}
}

// @Summary List Installments
// @Description Returns the installment plan of a debt account with its summary
// @Tags Installments
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /accounts/{account_id}/installments [get]
func (h *InstallmentHandler) Index(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	respond(c, h.installmentService.ListInstallments(c.Request.Context(), id))
}

// @Summary Export Installments
// @Description Downloads the installment plan as an xlsx workbook
// @Tags Installments
// @Produce application/octet-stream
// @Param account_id path int true "Account ID"
// @Router /accounts/{account_id}/installments/export [get]
func (h *InstallmentHandler) Export(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	res := h.installmentService.ExportSchedule(c.Request.Context(), id)
	if !res.Success {
		respond(c, res)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", res.Data.Filename))
	c.Data(http.StatusOK, xlsxContentType, res.Data.Content)
}

// @Summary Remaining Principal
// @Description Replays the ledger to find the principal still owed
// @Tags Installments
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} map[string]interface{}
// @Router /accounts/{account_id}/remaining_principal [get]
func (h *InstallmentHandler) RemainingPrincipal(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	respond(c, h.principal.RemainingPrincipal(c.Request.Context(), id))
}

// @Summary Post Installment
// @Description Realizes a loan installment in the ledger. Posting twice returns the first link.
// @Tags Installments
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body PostInstallmentRequest true "Posting request"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /accounts/{account_id}/installments/post [post]
func (h *InstallmentHandler) Post(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req PostInstallmentRequest
	if err := BindNestedOrFlat(c, "installment", &req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		reject(c, err)
		return
	}
	respond(c, h.poster.PostInstallment(c.Request.Context(), services.PostRequest{
		AccountID:        id,
		FundingAccountID: req.FundingAccountID,
		Sequence:         req.Sequence,
		Date:             date,
		LateFee:          req.LateFee,
	}))
}
