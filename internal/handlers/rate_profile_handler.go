// credinet/internal/handlers/rate_profile_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"
	"github.com/JairFC/credinet-v2-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetRateProfilesHandler lista los perfiles de tasas habilitados.
func GetRateProfilesHandler(c *gin.Context) {
	var profiles []models.RateProfile
	query := config.DB.Order("code asc")
	if c.Query("all") != "true" {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Find(&profiles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron consultar los perfiles de tasas"})
		return
	}
	c.JSON(http.StatusOK, profiles)
}

type calculateRequest struct {
	ProfileCode    string           `json:"profileCode" binding:"required"`
	Amount         decimal.Decimal  `json:"amount" binding:"required"`
	TermBiweeks    int              `json:"termBiweeks" binding:"required"`
	InterestRate   *decimal.Decimal `json:"interestRate"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
}

// CalculatePlanHandler cotiza un plan de pagos sin persistir nada.
func CalculatePlanHandler(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de cotización inválidos"})
		return
	}

	svc := services.NewLoanService(config.DB)
	plan, err := svc.PreviewPlan(req.ProfileCode, req.Amount, req.TermBiweeks, req.InterestRate, req.CommissionRate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

type previewScheduleRequest struct {
	ProfileCode    string           `json:"profileCode" binding:"required"`
	Amount         decimal.Decimal  `json:"amount" binding:"required"`
	TermBiweeks    int              `json:"termBiweeks" binding:"required"`
	InterestRate   *decimal.Decimal `json:"interestRate"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	// ApprovalDate opcional (YYYY-MM-DD); por omisión, hoy.
	ApprovalDate string `json:"approvalDate"`
}

// PreviewScheduleHandler cotiza plan y tabla de amortización completa como si
// el préstamo se aprobara en la fecha dada, sin persistir nada.
func PreviewScheduleHandler(c *gin.Context) {
	var req previewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de cotización inválidos"})
		return
	}

	approvalDate := time.Now().UTC()
	if req.ApprovalDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.ApprovalDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "approvalDate debe tener formato YYYY-MM-DD"})
			return
		}
		approvalDate = parsed
	}

	svc := services.NewLoanService(config.DB)
	preview, err := svc.PreviewSchedule(req.ProfileCode, req.Amount, req.TermBiweeks,
		req.InterestRate, req.CommissionRate, approvalDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

type compareRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	TermBiweeks int             `json:"termBiweeks" binding:"required"`
}

// ComparePlansHandler cotiza el mismo (monto, plazo) bajo todos los perfiles
// habilitados. Los perfiles que no soportan la combinación se reportan con su
// motivo en lugar de excluirse en silencio.
func ComparePlansHandler(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de comparación inválidos"})
		return
	}

	var profiles []models.RateProfile
	if err := config.DB.Where("enabled = ?", true).Order("code asc").Find(&profiles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron consultar los perfiles de tasas"})
		return
	}

	svc := services.NewLoanService(config.DB)
	type comparison struct {
		ProfileCode string      `json:"profileCode"`
		ProfileName string      `json:"profileName"`
		Plan        interface{} `json:"plan,omitempty"`
		Error       string      `json:"error,omitempty"`
	}
	results := make([]comparison, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		entry := comparison{ProfileCode: p.Code, ProfileName: p.Name}
		plan, err := svc.PreviewPlan(p.Code, req.Amount, req.TermBiweeks, nil, nil)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Plan = plan
		}
		results = append(results, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"amount":      req.Amount,
		"termBiweeks": req.TermBiweeks,
		"results":     results,
	})
}
