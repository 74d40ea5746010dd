// credinet/models/rate_profile.go
package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Métodos de cálculo de un perfil de tasas.
const (
	CalculationMethodFormula     = "formula"
	CalculationMethodTableLookup = "table_lookup"
)

// ProfileCodeCustom indica que el solicitante provee ambas tasas.
const ProfileCodeCustom = "custom"

// RateProfile define cómo se traduce (monto, plazo) en un plan de pagos.
// Los perfiles se administran fuera del motor; desde aquí son de solo lectura.
type RateProfile struct {
	gorm.Model
	Code                  string           `json:"code" gorm:"uniqueIndex;not null"`
	Name                  string           `json:"name"`
	CalculationMethod     string           `json:"calculationMethod" gorm:"not null;default:formula"`
	InterestRatePercent   *decimal.Decimal `json:"interestRatePercent" gorm:"type:numeric(5,2)"`
	CommissionRatePercent *decimal.Decimal `json:"commissionRatePercent" gorm:"type:numeric(5,2)"`
	Enabled               bool             `json:"enabled" gorm:"default:true"`
	// ValidTerms es una lista separada por comas de plazos permitidos
	// (en quincenas); vacío significa sin restricción.
	ValidTerms string           `json:"validTerms"`
	MinAmount  *decimal.Decimal `json:"minAmount" gorm:"type:numeric(12,2)"`
	MaxAmount  *decimal.Decimal `json:"maxAmount" gorm:"type:numeric(12,2)"`
	// FormulaExpression permite sustituir la fórmula de interés simple por una
	// expresión govaluate que recibe amount, term, interest y commission y
	// devuelve el pago total del cliente.
	FormulaExpression string `json:"formulaExpression"`
}

func (RateProfile) TableName() string { return "rate_profiles" }

// TermsList devuelve los plazos permitidos; vacío significa sin restricción.
func (p *RateProfile) TermsList() []int {
	if strings.TrimSpace(p.ValidTerms) == "" {
		return nil
	}
	var terms []int
	for _, part := range strings.Split(p.ValidTerms, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			terms = append(terms, v)
		}
	}
	return terms
}

// TermAllowed indica si el plazo está dentro de ValidTerms.
func (p *RateProfile) TermAllowed(term int) bool {
	terms := p.TermsList()
	if len(terms) == 0 {
		return true
	}
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}
