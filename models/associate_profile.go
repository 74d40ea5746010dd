// credinet/models/associate_profile.go
package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssociateProfile lleva la contabilidad de crédito de una asociada.
// Invariante global: AvailableCredit() >= 0 después de cada transición.
type AssociateProfile struct {
	gorm.Model
	UserID uint  `json:"userId" gorm:"uniqueIndex;not null"`
	User   *User `json:"user,omitempty" gorm:"foreignKey:UserID"`

	CreditLimit          decimal.Decimal `json:"creditLimit" gorm:"type:numeric(12,2);not null;default:0"`
	PendingPaymentsTotal decimal.Decimal `json:"pendingPaymentsTotal" gorm:"type:numeric(12,2);not null;default:0"`
	ConsolidatedDebt     decimal.Decimal `json:"consolidatedDebt" gorm:"type:numeric(12,2);not null;default:0"`
}

func (AssociateProfile) TableName() string { return "associate_profiles" }

// AvailableCredit = límite − pagos pendientes − deuda consolidada.
// Se calcula siempre a partir de los tres campos almacenados para que no
// pueda divergir de ellos.
func (p *AssociateProfile) AvailableCredit() decimal.Decimal {
	return p.CreditLimit.Sub(p.PendingPaymentsTotal).Sub(p.ConsolidatedDebt)
}
