// credinet/models/loan.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados del ciclo de vida de un préstamo.
const (
	LoanStatusPending   = "PENDING"
	LoanStatusActive    = "ACTIVE"
	LoanStatusCompleted = "COMPLETED"
	LoanStatusCancelled = "CANCELLED"
	LoanStatusRejected  = "REJECTED"
)

// Loan representa un préstamo otorgado por una asociada a un cliente.
// El plan completo (lado cliente y lado asociada) se calcula al crear la
// solicitud, de modo que la aprobación es una transición de estado pura.
type Loan struct {
	gorm.Model
	ClientID    uint  `json:"clientId" gorm:"not null;index"`
	Client      *User `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	AssociateID *uint `json:"associateId" gorm:"index"`
	Associate   *User `json:"associate,omitempty" gorm:"foreignKey:AssociateID"`

	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	InterestRate   decimal.Decimal `json:"interestRate" gorm:"type:numeric(5,2);not null"`
	CommissionRate decimal.Decimal `json:"commissionRate" gorm:"type:numeric(5,2);not null"`
	TermBiweeks    int             `json:"termBiweeks" gorm:"not null"`
	ProfileCode    string          `json:"profileCode" gorm:"not null"`

	// Campos del plan, estables desde la creación hasta la cancelación.
	BiweeklyPayment           decimal.Decimal `json:"biweeklyPayment" gorm:"type:numeric(12,2)"`
	TotalPayment              decimal.Decimal `json:"totalPayment" gorm:"type:numeric(12,2)"`
	TotalInterest             decimal.Decimal `json:"totalInterest" gorm:"type:numeric(12,2)"`
	CommissionPerPayment      decimal.Decimal `json:"commissionPerPayment" gorm:"type:numeric(12,2)"`
	TotalCommission           decimal.Decimal `json:"totalCommission" gorm:"type:numeric(12,2)"`
	AssociatePaymentPerBiweek decimal.Decimal `json:"associatePaymentPerBiweek" gorm:"type:numeric(12,2)"`
	AssociateTotal            decimal.Decimal `json:"associateTotal" gorm:"type:numeric(12,2)"`

	Status           string     `json:"status" gorm:"not null;default:PENDING;index"`
	FirstPaymentDate *time.Time `json:"firstPaymentDate"`

	ApprovedAt *time.Time `json:"approvedAt"`
	ApprovedBy *uint      `json:"approvedBy"`

	RejectedAt      *time.Time `json:"rejectedAt"`
	RejectedBy      *uint      `json:"rejectedBy"`
	RejectionReason string     `json:"rejectionReason"`

	CancelledAt        *time.Time `json:"cancelledAt"`
	CancelledBy        *uint      `json:"cancelledBy"`
	CancellationReason string     `json:"cancellationReason"`

	Notes string `json:"notes"`

	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:LoanID"`
}

func (Loan) TableName() string { return "loans" }
