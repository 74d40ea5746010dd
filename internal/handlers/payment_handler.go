// credinet/internal/handlers/payment_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type markPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate string          `json:"paymentDate" binding:"required"`
	Notes       string          `json:"notes"`
}

// MarkPaymentHandler registra un abono del cliente sobre una parcialidad.
func MarkPaymentHandler(c *gin.Context) {
	var req markPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos del abono inválidos"})
		return
	}
	paymentDate, err := time.ParseInLocation("2006-01-02", req.PaymentDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentDate debe tener formato YYYY-MM-DD"})
		return
	}

	svc := services.NewPaymentService(config.DB)
	payment, err := svc.MarkPayment(services.MarkPaymentInput{
		PaymentID:   paramID(c, "id"),
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		ActorID:     currentUserID(c),
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetLoanPaymentsHandler devuelve el calendario de un préstamo; con
// pending=true solo las parcialidades con saldo.
func GetLoanPaymentsHandler(c *gin.Context) {
	svc := services.NewPaymentService(config.DB)
	loanID := paramID(c, "id")

	if c.Query("pending") == "true" {
		payments, err := svc.ListPendingByLoan(loanID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payments)
		return
	}

	payments, err := svc.ListByLoan(loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetOverduePaymentsHandler lista las parcialidades vencidas del sistema.
func GetOverduePaymentsHandler(c *gin.Context) {
	svc := services.NewPaymentService(config.DB)
	payments, err := svc.ListOverdue()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
