// credinet/internal/handlers/loan_handler.go
package handlers

import (
	"net/http"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"
	"github.com/JairFC/credinet-v2-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createLoanRequest struct {
	ClientID       uint             `json:"clientId" binding:"required"`
	AssociateID    *uint            `json:"associateId"`
	Amount         decimal.Decimal  `json:"amount" binding:"required"`
	TermBiweeks    int              `json:"termBiweeks" binding:"required"`
	ProfileCode    string           `json:"profileCode" binding:"required"`
	InterestRate   *decimal.Decimal `json:"interestRate"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	Notes          string           `json:"notes"`
}

// CreateLoanHandler registra una solicitud de préstamo en PENDING.
func CreateLoanHandler(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de la solicitud inválidos"})
		return
	}

	svc := services.NewLoanService(config.DB)
	loan, err := svc.CreateLoan(services.CreateLoanInput{
		ClientID:       req.ClientID,
		AssociateID:    req.AssociateID,
		Amount:         req.Amount,
		TermBiweeks:    req.TermBiweeks,
		ProfileCode:    req.ProfileCode,
		InterestRate:   req.InterestRate,
		CommissionRate: req.CommissionRate,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// GetLoansHandler lista préstamos con filtros y paginación.
func GetLoansHandler(c *gin.Context) {
	query := config.DB.Model(&models.Loan{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if associateID := c.Query("associate_id"); associateID != "" {
		query = query.Where("associate_id = ?", associateID)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron contar los préstamos"})
		return
	}

	var loans []models.Loan
	err := query.Scopes(Paginate(c)).Order("created_at DESC").Find(&loans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron consultar los préstamos"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, loans, totalRows))
}

// GetLoanHandler devuelve un préstamo con su calendario completo.
func GetLoanHandler(c *gin.Context) {
	svc := services.NewLoanService(config.DB)
	loan, err := svc.GetLoan(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

type approveLoanRequest struct {
	Notes string `json:"notes"`
}

// ApproveLoanHandler aprueba la solicitud: genera calendario y reserva crédito.
func ApproveLoanHandler(c *gin.Context) {
	var req approveLoanRequest
	_ = c.ShouldBindJSON(&req)

	svc := services.NewLoanService(config.DB)
	loan, err := svc.ApproveLoan(paramID(c, "id"), currentUserID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectLoanHandler rechaza una solicitud PENDING con motivo obligatorio.
func RejectLoanHandler(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El rechazo requiere un motivo"})
		return
	}

	svc := services.NewLoanService(config.DB)
	loan, err := svc.RejectLoan(paramID(c, "id"), currentUserID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// CancelLoanHandler cancela un préstamo activo con motivo obligatorio.
func CancelLoanHandler(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La cancelación requiere un motivo"})
		return
	}

	svc := services.NewLoanService(config.DB)
	loan, err := svc.CancelLoan(paramID(c, "id"), currentUserID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

type updateLoanRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	TermBiweeks    *int             `json:"termBiweeks"`
	ProfileCode    *string          `json:"profileCode"`
	InterestRate   *decimal.Decimal `json:"interestRate"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	Notes          *string          `json:"notes"`
}

// UpdateLoanHandler edita una solicitud PENDING y recalcula el plan.
func UpdateLoanHandler(c *gin.Context) {
	var req updateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de edición inválidos"})
		return
	}

	svc := services.NewLoanService(config.DB)
	loan, err := svc.UpdateLoan(paramID(c, "id"), services.UpdateLoanInput{
		Amount:         req.Amount,
		TermBiweeks:    req.TermBiweeks,
		ProfileCode:    req.ProfileCode,
		InterestRate:   req.InterestRate,
		CommissionRate: req.CommissionRate,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GetLoanSummaryHandler devuelve el resumen de cobranza del préstamo.
func GetLoanSummaryHandler(c *gin.Context) {
	svc := services.NewPaymentService(config.DB)
	summary, err := svc.Summary(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
