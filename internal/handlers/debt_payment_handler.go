// credinet/internal/handlers/debt_payment_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type registerDebtPaymentRequest struct {
	PaymentAmount    decimal.Decimal `json:"paymentAmount" binding:"required"`
	PaymentDate      string          `json:"paymentDate" binding:"required"`
	PaymentMethodID  uint            `json:"paymentMethodId" binding:"required"`
	PaymentReference string          `json:"paymentReference"`
}

// RegisterDebtPaymentHandler aplica un abono FIFO a la deuda acumulada de la
// asociada.
func RegisterDebtPaymentHandler(c *gin.Context) {
	var req registerDebtPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos del abono inválidos"})
		return
	}
	paymentDate, err := time.ParseInLocation("2006-01-02", req.PaymentDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentDate debe tener formato YYYY-MM-DD"})
		return
	}

	svc := services.NewDebtService(config.DB)
	payment, err := svc.RegisterPayment(services.RegisterDebtPaymentInput{
		AssociateUserID:  paramID(c, "id"),
		PaymentAmount:    req.PaymentAmount,
		PaymentDate:      paymentDate,
		PaymentMethodID:  req.PaymentMethodID,
		PaymentReference: req.PaymentReference,
		RegisteredBy:     currentUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetDebtSummaryHandler devuelve los saldos abiertos en orden FIFO y el
// historial de abonos de la asociada.
func GetDebtSummaryHandler(c *gin.Context) {
	svc := services.NewDebtService(config.DB)
	summary, err := svc.AssociateSummary(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetCreditProfileHandler devuelve el perfil de crédito de la asociada con el
// disponible calculado.
func GetCreditProfileHandler(c *gin.Context) {
	svc := services.NewCreditService(config.DB)
	profile, err := svc.Profile(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"associateUserId":      profile.UserID,
		"creditLimit":          profile.CreditLimit,
		"pendingPaymentsTotal": profile.PendingPaymentsTotal,
		"consolidatedDebt":     profile.ConsolidatedDebt,
		"availableCredit":      profile.AvailableCredit(),
	})
}
