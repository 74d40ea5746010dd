// credinet/models/statement.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados de un estado de cuenta de asociada.
const (
	StatementStatusCollecting  = "COLLECTING"
	StatementStatusPartialPaid = "PARTIAL_PAID"
	StatementStatusPaid        = "PAID"
	StatementStatusOverdue     = "OVERDUE"
	StatementStatusSettling    = "SETTLING"
	StatementStatusClosed      = "CLOSED"
)

// Statement es el estado de cuenta de una asociada para un período de corte:
// cuánto cobró a sus clientes y cuánto de eso debe entregar a la cooperativa.
type Statement struct {
	gorm.Model
	StatementNumber string `json:"statementNumber" gorm:"uniqueIndex;not null"`

	AssociateUserID uint  `json:"associateUserId" gorm:"not null;index;uniqueIndex:idx_statement_associate_period"`
	Associate       *User `json:"associate,omitempty" gorm:"foreignKey:AssociateUserID"`

	CutPeriodID uint       `json:"cutPeriodId" gorm:"not null;uniqueIndex:idx_statement_associate_period"`
	CutPeriod   *CutPeriod `json:"cutPeriod,omitempty" gorm:"foreignKey:CutPeriodID"`

	TotalPaymentsCount    int             `json:"totalPaymentsCount"`
	TotalAmountCollected  decimal.Decimal `json:"totalAmountCollected" gorm:"type:numeric(12,2)"`
	TotalToCredicuenta    decimal.Decimal `json:"totalToCredicuenta" gorm:"type:numeric(12,2)"`
	CommissionEarned      decimal.Decimal `json:"commissionEarned" gorm:"type:numeric(12,2)"`
	CommissionRateApplied decimal.Decimal `json:"commissionRateApplied" gorm:"type:numeric(5,2)"`

	PaidAmount     decimal.Decimal `json:"paidAmount" gorm:"type:numeric(12,2);default:0"`
	LateFeeAmount  decimal.Decimal `json:"lateFeeAmount" gorm:"type:numeric(12,2);default:0"`
	LateFeeApplied bool            `json:"lateFeeApplied" gorm:"default:false"`

	Status  string    `json:"status" gorm:"not null;default:COLLECTING;index"`
	DueDate time.Time `json:"dueDate"`

	PaidDate         *time.Time `json:"paidDate"`
	PaymentMethodID  *uint      `json:"paymentMethodId"`
	PaymentReference string     `json:"paymentReference"`

	GeneratedAt time.Time `json:"generatedAt"`
}

func (Statement) TableName() string { return "associate_payment_statements" }

// Remaining es lo que falta por liquidar del estado de cuenta.
func (s *Statement) Remaining() decimal.Decimal {
	return s.TotalToCredicuenta.Add(s.LateFeeAmount).Sub(s.PaidAmount)
}
