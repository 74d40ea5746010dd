// credinet/models/payment.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados de una parcialidad.
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// Payment es una parcialidad quincenal del calendario de un préstamo.
// AssociatePayment es lo que la asociada debe entregar a la cooperativa por
// esta parcialidad (monto esperado menos su comisión).
type Payment struct {
	gorm.Model
	LoanID        uint  `json:"loanId" gorm:"not null;index;uniqueIndex:idx_loan_payment_number"`
	Loan          *Loan `json:"-" gorm:"foreignKey:LoanID"`
	PaymentNumber int   `json:"paymentNumber" gorm:"not null;uniqueIndex:idx_loan_payment_number"`

	ExpectedAmount   decimal.Decimal `json:"expectedAmount" gorm:"type:numeric(12,2);not null"`
	InterestAmount   decimal.Decimal `json:"interestAmount" gorm:"type:numeric(12,2)"`
	PrincipalAmount  decimal.Decimal `json:"principalAmount" gorm:"type:numeric(12,2)"`
	CommissionAmount decimal.Decimal `json:"commissionAmount" gorm:"type:numeric(12,2)"`
	AssociatePayment decimal.Decimal `json:"associatePayment" gorm:"type:numeric(12,2)"`
	BalanceRemaining decimal.Decimal `json:"balanceRemaining" gorm:"type:numeric(12,2)"`

	PaymentDueDate time.Time       `json:"paymentDueDate" gorm:"not null;index"`
	AmountPaid     decimal.Decimal `json:"amountPaid" gorm:"type:numeric(12,2);default:0"`
	PaymentDate    *time.Time      `json:"paymentDate"`
	IsLate         bool            `json:"isLate" gorm:"default:false"`
	Status         string          `json:"status" gorm:"not null;default:PENDING;index"`

	// El período de corte se asigna al generar el calendario y queda congelado.
	CutPeriodID uint       `json:"cutPeriodId" gorm:"index"`
	CutPeriod   *CutPeriod `json:"-" gorm:"foreignKey:CutPeriodID"`

	MarkedBy     *uint      `json:"markedBy"`
	MarkedAt     *time.Time `json:"markedAt"`
	MarkingNotes string     `json:"markingNotes"`
}

func (Payment) TableName() string { return "payments" }
