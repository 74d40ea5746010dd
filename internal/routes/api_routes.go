// credinet/internal/routes/api_routes.go
package routes

import (
	"github.com/JairFC/credinet-v2-sub000/internal/handlers"
	"github.com/JairFC/credinet-v2-sub000/internal/middleware"
	"github.com/JairFC/credinet-v2-sub000/models"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes registra los endpoints del motor financiero. La operación
// de escritura queda en manos de administración y auxiliares; las asociadas
// consultan su propia información.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	staff := middleware.RoleMiddleware(models.RoleAuxiliary)
	adminOnly := middleware.RoleMiddleware()

	// Perfiles de tasas y cotizaciones.
	rates := api.Group("/rate-profiles")
	{
		rates.GET("", handlers.GetRateProfilesHandler)
		rates.POST("/calculate", handlers.CalculatePlanHandler)
		rates.POST("/compare", handlers.ComparePlansHandler)
		rates.POST("/preview-schedule", handlers.PreviewScheduleHandler)
	}

	// Ciclo de vida del préstamo.
	loans := api.Group("/loans")
	{
		loans.GET("", handlers.GetLoansHandler)
		loans.GET("/:id", handlers.GetLoanHandler)
		loans.GET("/:id/payments", handlers.GetLoanPaymentsHandler)
		loans.GET("/:id/summary", handlers.GetLoanSummaryHandler)
		loans.POST("", staff, handlers.CreateLoanHandler)
		loans.PUT("/:id", staff, handlers.UpdateLoanHandler)
		loans.POST("/:id/approve", adminOnly, handlers.ApproveLoanHandler)
		loans.POST("/:id/reject", adminOnly, handlers.RejectLoanHandler)
		loans.POST("/:id/cancel", adminOnly, handlers.CancelLoanHandler)
	}

	// Parcialidades.
	payments := api.Group("/payments")
	{
		payments.GET("/overdue", handlers.GetOverduePaymentsHandler)
		payments.POST("/:id/mark", staff, handlers.MarkPaymentHandler)
	}

	// Períodos de corte.
	periods := api.Group("/cut-periods")
	{
		periods.GET("", handlers.GetCutPeriodsHandler)
		periods.GET("/active", handlers.GetActiveCutPeriodHandler)
		periods.GET("/:id", handlers.GetCutPeriodHandler)
		periods.GET("/:id/payments", handlers.GetCutPeriodPaymentsHandler)
		periods.GET("/:id/statements", handlers.GetCutPeriodStatementsHandler)
		periods.GET("/:id/statements/export", staff, handlers.ExportStatementsHandler)
		periods.POST("/backfill", adminOnly, handlers.BackfillCutPeriodsHandler)
		periods.POST("/advance", adminOnly, handlers.AdvanceCutPeriodsHandler)
		periods.POST("/:id/transition", adminOnly, handlers.TransitionCutPeriodHandler)
		periods.POST("/:id/close", adminOnly, handlers.CloseCutPeriodHandler)
	}

	// Estados de cuenta de asociadas.
	statements := api.Group("/statements")
	{
		statements.GET("", handlers.GetStatementsHandler)
		statements.GET("/:id", handlers.GetStatementHandler)
		statements.POST("/:id/pay", staff, handlers.PayStatementHandler)
		statements.POST("/:id/late-fee", adminOnly, handlers.ApplyLateFeeHandler)
	}

	// Crédito y deuda acumulada de asociadas.
	associates := api.Group("/associates")
	{
		associates.GET("/:id/credit", handlers.GetCreditProfileHandler)
		associates.GET("/:id/debt", handlers.GetDebtSummaryHandler)
		associates.POST("/:id/debt-payments", staff, handlers.RegisterDebtPaymentHandler)
	}
}
