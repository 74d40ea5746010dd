// credinet/internal/handlers/statement_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// GetStatementsHandler lista estados de cuenta con filtros.
func GetStatementsHandler(c *gin.Context) {
	filters := services.StatementFilters{
		Status:      c.Query("status"),
		OverdueOnly: c.Query("overdue") == "true",
	}
	if v := c.Query("associate_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			associateID := uint(id)
			filters.AssociateUserID = &associateID
		}
	}
	if v := c.Query("cut_period_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			periodID := uint(id)
			filters.CutPeriodID = &periodID
		}
	}

	svc := services.NewStatementService(config.DB)
	statements, err := svc.ListStatements(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statements)
}

// GetStatementHandler devuelve un estado de cuenta con su período.
func GetStatementHandler(c *gin.Context) {
	svc := services.NewStatementService(config.DB)
	statement, err := svc.GetStatement(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

type payStatementRequest struct {
	PaidAmount       decimal.Decimal `json:"paidAmount" binding:"required"`
	PaidDate         string          `json:"paidDate" binding:"required"`
	PaymentMethodID  uint            `json:"paymentMethodId" binding:"required"`
	PaymentReference string          `json:"paymentReference"`
}

// PayStatementHandler registra el pago de la asociada contra su estado de cuenta.
func PayStatementHandler(c *gin.Context) {
	var req payStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos del pago inválidos"})
		return
	}
	paidDate, err := time.ParseInLocation("2006-01-02", req.PaidDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paidDate debe tener formato YYYY-MM-DD"})
		return
	}

	svc := services.NewStatementService(config.DB)
	statement, err := svc.PayStatement(services.PayStatementInput{
		StatementID:      paramID(c, "id"),
		PaidAmount:       req.PaidAmount,
		PaidDate:         paidDate,
		PaymentMethodID:  req.PaymentMethodID,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

type lateFeeRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ApplyLateFeeHandler aplica el recargo por mora a un estado de cuenta vencido.
func ApplyLateFeeHandler(c *gin.Context) {
	var req lateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el monto del recargo"})
		return
	}

	svc := services.NewStatementService(config.DB)
	statement, err := svc.ApplyLateFee(paramID(c, "id"), req.Amount, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// GetCutPeriodStatementsHandler lista los estados de cuenta de un período.
func GetCutPeriodStatementsHandler(c *gin.Context) {
	svc := services.NewStatementService(config.DB)
	statements, err := svc.ListByPeriod(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statements)
}

// ExportStatementsHandler descarga los estados de cuenta de un período en
// formato Excel.
func ExportStatementsHandler(c *gin.Context) {
	periodSvc := services.NewCutPeriodService(config.DB)
	period, err := periodSvc.GetPeriod(paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}

	svc := services.NewStatementService(config.DB)
	statements, err := svc.ListByPeriod(period.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	sheetName := "Estados de cuenta"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Número", "Asociada", "Parcialidades", "Monto cobrado",
		"Total a CrediCuenta", "Comisión ganada", "Pagado", "Recargo", "Estado", "Vencimiento"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i := range statements {
		st := &statements[i]
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), st.StatementNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), st.AssociateUserID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), st.TotalPaymentsCount)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), st.TotalAmountCollected.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), st.TotalToCredicuenta.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), st.CommissionEarned.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), st.PaidAmount.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), st.LateFeeAmount.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), st.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), st.DueDate.Format("02/01/2006"))
	}

	fileName := fmt.Sprintf("estados_cuenta_%s.xlsx", period.CutCode)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo escribir el archivo Excel"})
	}
}
