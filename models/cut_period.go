// credinet/models/cut_period.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados del período de corte quincenal.
const (
	CutPeriodStatusPending    = "PENDING"
	CutPeriodStatusCutoff     = "CUTOFF"
	CutPeriodStatusCollecting = "COLLECTING"
	CutPeriodStatusSettling   = "SETTLING"
	CutPeriodStatusClosed     = "CLOSED"
)

// CutPeriod es una quincena del calendario estático (24 por año).
// CutCode tiene el formato YYYY-QNN y es el identificador externo estable.
type CutPeriod struct {
	gorm.Model
	CutCode         string    `json:"cutCode" gorm:"uniqueIndex;not null"`
	PeriodStartDate time.Time `json:"periodStartDate" gorm:"not null;index"`
	PeriodEndDate   time.Time `json:"periodEndDate" gorm:"not null"`
	Status          string    `json:"status" gorm:"not null;default:PENDING;index"`

	TotalPaymentsExpected decimal.Decimal `json:"totalPaymentsExpected" gorm:"type:numeric(14,2);default:0"`
	TotalPaymentsReceived decimal.Decimal `json:"totalPaymentsReceived" gorm:"type:numeric(14,2);default:0"`
	TotalCommission       decimal.Decimal `json:"totalCommission" gorm:"type:numeric(14,2);default:0"`

	CutBy    *uint      `json:"cutBy"`
	CutAt    *time.Time `json:"cutAt"`
	ClosedBy *uint      `json:"closedBy"`
	ClosedAt *time.Time `json:"closedAt"`
}

func (CutPeriod) TableName() string { return "cut_periods" }

// Contains indica si la fecha cae dentro del período (inclusive).
func (p *CutPeriod) Contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(p.PeriodStartDate) && !day.After(p.PeriodEndDate)
}
