package handlers

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the engine routes on the API group
func Register(v1 *gin.RouterGroup, h *Handlers) {
	v1.GET("/health", h.Health.Index)

	v1.POST("/schedules/preview", h.Schedule.Preview)
	v1.POST("/bnpl/schedules/preview", h.Schedule.PreviewInstallmentPlan)

	accounts := v1.Group("/accounts/:account_id")
	{
		accounts.PUT("/plan", h.Plan.BuildPlan)
		accounts.PUT("/bnpl_plan", h.Plan.BuildInstallmentPlan)

		accounts.GET("/installments/export", h.Installment.Export)
		accounts.POST("/installments/post", h.Installment.Post)
		accounts.GET("/installments", h.Installment.Index)
		accounts.GET("/remaining_principal", h.Installment.RemainingPrincipal)

		accounts.POST("/extra_payments", h.Payment.ExtraPayment)
		accounts.POST("/payments", h.Payment.Allocate)
	}

	v1.GET("/jobs/status", h.Job.Status)
}
