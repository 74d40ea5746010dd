// credinet/internal/handlers/cut_period_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"github.com/gin-gonic/gin"
)

// GetCutPeriodsHandler lista los períodos de corte, más reciente primero.
func GetCutPeriodsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	svc := services.NewCutPeriodService(config.DB)
	periods, err := svc.ListPeriods(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, periods)
}

// GetActiveCutPeriodHandler devuelve el período que contiene la fecha actual.
func GetActiveCutPeriodHandler(c *gin.Context) {
	svc := services.NewCutPeriodService(config.DB)
	period, err := svc.ActivePeriod()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

// GetCutPeriodHandler devuelve un período por id.
func GetCutPeriodHandler(c *gin.Context) {
	svc := services.NewCutPeriodService(config.DB)
	period, err := svc.GetPeriod(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

type backfillRequest struct {
	Years []int `json:"years" binding:"required"`
}

// BackfillCutPeriodsHandler genera el calendario de cortes de los años dados.
func BackfillCutPeriodsHandler(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere la lista de años"})
		return
	}

	svc := services.NewCutPeriodService(config.DB)
	created, err := svc.BackfillPeriods(req.Years...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

type transitionRequest struct {
	Target string `json:"target" binding:"required"`
	Force  bool   `json:"force"`
}

// TransitionCutPeriodHandler aplica un cambio de estado manual al período.
func TransitionCutPeriodHandler(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el estado destino"})
		return
	}

	svc := services.NewCutPeriodService(config.DB)
	period, err := svc.Transition(paramID(c, "id"), req.Target, req.Force, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

// AdvanceCutPeriodsHandler corre el avance quincenal. Con dry_run=true
// reporta los cambios sin aplicarlos.
func AdvanceCutPeriodsHandler(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	today := time.Now().UTC()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date debe tener formato YYYY-MM-DD"})
			return
		}
		today = parsed
	}

	svc := services.NewCutPeriodService(config.DB)
	result, err := svc.AdvancePeriods(today, dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CloseCutPeriodHandler ejecuta el cierre final SETTLING -> CLOSED con el
// roll-over de saldos impagos a deuda acumulada.
func CloseCutPeriodHandler(c *gin.Context) {
	svc := services.NewCutPeriodService(config.DB)
	result, err := svc.ClosePeriod(paramID(c, "id"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCutPeriodPaymentsHandler lista las parcialidades asignadas al período
// (vista previa de lo que entrará al corte).
func GetCutPeriodPaymentsHandler(c *gin.Context) {
	svc := services.NewPaymentService(config.DB)
	payments, err := svc.ListByPeriod(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
