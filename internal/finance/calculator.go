// credinet/internal/finance/calculator.go
package finance

import (
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedPlan indica que el perfil no puede producir un plan para la
// combinación (monto, plazo) solicitada.
var ErrUnsupportedPlan = errors.New("plan no soportado")

const (
	MinTermBiweeks = 1
	MaxTermBiweeks = 52
)

var hundred = decimal.NewFromInt(100)

// Profile son los datos ya resueltos de un perfil de tasas; el servicio de
// préstamos lo arma desde models.RateProfile (o desde las tasas del
// solicitante cuando el código es "custom").
type Profile struct {
	Code              string
	Method            string // "formula" o "table_lookup"
	InterestRate      decimal.Decimal
	CommissionRate    decimal.Decimal
	ValidTerms        []int
	MinAmount         *decimal.Decimal
	MaxAmount         *decimal.Decimal
	FormulaExpression string
}

// Plan es el resultado del cálculo: lado cliente y lado asociada.
type Plan struct {
	BiweeklyPayment           decimal.Decimal `json:"biweeklyPayment"`
	TotalPayment              decimal.Decimal `json:"totalPayment"`
	TotalInterest             decimal.Decimal `json:"totalInterest"`
	CommissionPerPayment      decimal.Decimal `json:"commissionPerPayment"`
	TotalCommission           decimal.Decimal `json:"totalCommission"`
	AssociatePaymentPerBiweek decimal.Decimal `json:"associatePaymentPerBiweek"`
	AssociateTotal            decimal.Decimal `json:"associateTotal"`
}

// Calculate produce el plan de pagos para (monto, plazo, perfil).
// Es una función pura: mismo insumo, mismo plan, sin efectos.
func Calculate(p Profile, amount decimal.Decimal, termBiweeks int) (Plan, error) {
	if !amount.IsPositive() {
		return Plan{}, fmt.Errorf("%w: el monto debe ser mayor a cero", ErrUnsupportedPlan)
	}
	if termBiweeks < MinTermBiweeks || termBiweeks > MaxTermBiweeks {
		return Plan{}, fmt.Errorf("%w: plazo fuera de rango (%d quincenas)", ErrUnsupportedPlan, termBiweeks)
	}
	if len(p.ValidTerms) > 0 && !containsTerm(p.ValidTerms, termBiweeks) {
		return Plan{}, fmt.Errorf("%w: el perfil %s no admite %d quincenas", ErrUnsupportedPlan, p.Code, termBiweeks)
	}
	if p.MinAmount != nil && amount.LessThan(*p.MinAmount) {
		return Plan{}, fmt.Errorf("%w: monto menor al mínimo del perfil %s", ErrUnsupportedPlan, p.Code)
	}
	if p.MaxAmount != nil && amount.GreaterThan(*p.MaxAmount) {
		return Plan{}, fmt.Errorf("%w: monto mayor al máximo del perfil %s", ErrUnsupportedPlan, p.Code)
	}

	switch p.Method {
	case "table_lookup":
		return calculateFromTable(amount, termBiweeks)
	case "formula", "":
		return calculateFormula(p, amount, termBiweeks)
	default:
		return Plan{}, fmt.Errorf("%w: método de cálculo desconocido %q", ErrUnsupportedPlan, p.Method)
	}
}

// calculateFormula aplica interés simple por quincena. El pago quincenal del
// cliente se redondea a peso completo (las cobranzas en campo son en pesos
// cerrados) y el total se vuelve a derivar del pago redondeado para que la
// suma del calendario cuadre con el total del préstamo.
func calculateFormula(p Profile, amount decimal.Decimal, termBiweeks int) (Plan, error) {
	if err := validateRate(p.InterestRate); err != nil {
		return Plan{}, err
	}
	if err := validateRate(p.CommissionRate); err != nil {
		return Plan{}, err
	}

	n := decimal.NewFromInt(int64(termBiweeks))

	gross, err := grossClientTotal(p, amount, termBiweeks)
	if err != nil {
		return Plan{}, err
	}

	biweekly := gross.DivRound(n, 4).Round(0)
	total := biweekly.Mul(n)
	interest := total.Sub(amount)

	commission := biweekly.Mul(p.CommissionRate).Div(hundred).Round(2)
	totalCommission := commission.Mul(n)
	associate := biweekly.Sub(commission)
	associateTotal := associate.Mul(n)

	return Plan{
		BiweeklyPayment:           biweekly,
		TotalPayment:              total,
		TotalInterest:             interest,
		CommissionPerPayment:      commission,
		TotalCommission:           totalCommission,
		AssociatePaymentPerBiweek: associate,
		AssociateTotal:            associateTotal,
	}, nil
}

// grossClientTotal es el pago total del cliente antes de redondeos. Si el
// perfil trae una expresión govaluate se evalúa con ella; de lo contrario se
// usa la fórmula de interés simple amount * (1 + interest/100 * term).
func grossClientTotal(p Profile, amount decimal.Decimal, termBiweeks int) (decimal.Decimal, error) {
	if p.FormulaExpression == "" {
		rate := p.InterestRate.Div(hundred).Mul(decimal.NewFromInt(int64(termBiweeks)))
		return amount.Mul(decimal.NewFromInt(1).Add(rate)), nil
	}

	expr, err := govaluate.NewEvaluableExpression(p.FormulaExpression)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: expresión inválida en el perfil %s", ErrUnsupportedPlan, p.Code)
	}
	amt, _ := amount.Float64()
	ir, _ := p.InterestRate.Float64()
	cr, _ := p.CommissionRate.Float64()
	result, err := expr.Evaluate(map[string]interface{}{
		"amount":     amt,
		"term":       float64(termBiweeks),
		"interest":   ir,
		"commission": cr,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: no se pudo evaluar la fórmula del perfil %s", ErrUnsupportedPlan, p.Code)
	}
	value, ok := result.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: la fórmula del perfil %s no produce un número", ErrUnsupportedPlan, p.Code)
	}
	return decimal.NewFromFloat(value), nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return fmt.Errorf("%w: tasa fuera de rango [0,100]", ErrUnsupportedPlan)
	}
	return nil
}

func containsTerm(terms []int, term int) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}
