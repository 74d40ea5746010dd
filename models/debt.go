// credinet/models/debt.go
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccumulatedBalance es el saldo vencido de una asociada heredado de un
// período cerrado. Solo el cierre de período crea estas filas; la llave
// foránea StatementID garantiza que cada deuda nace de un estado de cuenta.
type AccumulatedBalance struct {
	gorm.Model
	AssociateUserID uint `json:"associateUserId" gorm:"not null;index;uniqueIndex:idx_debt_associate_period"`

	OriginCutPeriodID uint       `json:"originCutPeriodId" gorm:"not null;uniqueIndex:idx_debt_associate_period"`
	OriginCutPeriod   *CutPeriod `json:"-" gorm:"foreignKey:OriginCutPeriodID"`

	StatementID uint       `json:"statementId" gorm:"not null;uniqueIndex"`
	Statement   *Statement `json:"-" gorm:"foreignKey:StatementID"`

	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	RemainingAmount decimal.Decimal `json:"remainingAmount" gorm:"type:numeric(12,2);not null"`
	IsLiquidated    bool            `json:"isLiquidated" gorm:"default:false;index"`

	// DebtDetails conserva la liga de auditoría hacia el estado de cuenta origen.
	DebtDetails json.RawMessage `json:"debtDetails" gorm:"type:jsonb"`
}

func (AccumulatedBalance) TableName() string { return "associate_accumulated_balances" }

// DebtDetail es una entrada del arreglo DebtDetails.
type DebtDetail struct {
	StatementID     uint            `json:"statement_id"`
	StatementNumber string          `json:"statement_number"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	LateFee         decimal.Decimal `json:"late_fee"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	DebtAmount      decimal.Decimal `json:"debt_amount"`
	AbsorbedDate    time.Time       `json:"absorbed_date"`
	PeriodCode      string          `json:"period_code"`
}

// DebtPayment es un abono de la asociada a su deuda acumulada; se aplica FIFO
// sobre los saldos abiertos y el desglose queda en AppliedBreakdownItems.
type DebtPayment struct {
	gorm.Model
	AssociateUserID  uint            `json:"associateUserId" gorm:"not null;index"`
	PaymentAmount    decimal.Decimal `json:"paymentAmount" gorm:"type:numeric(12,2);not null"`
	PaymentDate      time.Time       `json:"paymentDate" gorm:"not null"`
	PaymentMethodID  uint            `json:"paymentMethodId" gorm:"not null"`
	PaymentReference string          `json:"paymentReference"`
	RegisteredBy     uint            `json:"registeredBy"`

	AppliedBreakdownItems json.RawMessage `json:"appliedBreakdownItems" gorm:"type:jsonb"`
	// SurplusAmount documenta un pago en exceso; no genera saldo a favor.
	SurplusAmount decimal.Decimal `json:"surplusAmount" gorm:"type:numeric(12,2);default:0"`
}

func (DebtPayment) TableName() string { return "associate_debt_payments" }

// BreakdownItem es una entrada del arreglo AppliedBreakdownItems.
type BreakdownItem struct {
	DebtItemID     uint            `json:"debt_item_id"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	AmountApplied  decimal.Decimal `json:"amount_applied"`
	Liquidated     bool            `json:"liquidated"`
	RemainingAfter decimal.Decimal `json:"remaining_after"`
	AppliedAt      time.Time       `json:"applied_at"`
}
