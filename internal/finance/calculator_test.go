// credinet/internal/finance/calculator_test.go
package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func customProfile(interest, commission string) Profile {
	return Profile{
		Code:           "custom",
		Method:         "formula",
		InterestRate:   dec(interest),
		CommissionRate: dec(commission),
	}
}

func TestCalculateSimpleInterest(t *testing.T) {
	// 10000 a 24 quincenas, 4% de interés y 2% de comisión:
	// bruto 19600, pago quincenal redondeado a peso 817.00.
	plan, err := Calculate(customProfile("4.00", "2.00"), dec("10000"), 24)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"biweeklyPayment", plan.BiweeklyPayment, "817"},
		{"totalPayment", plan.TotalPayment, "19608"},
		{"totalInterest", plan.TotalInterest, "9608"},
		{"commissionPerPayment", plan.CommissionPerPayment, "16.34"},
		{"totalCommission", plan.TotalCommission, "392.16"},
		{"associatePaymentPerBiweek", plan.AssociatePaymentPerBiweek, "800.66"},
		{"associateTotal", plan.AssociateTotal, "19215.84"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, se esperaba %s", c.name, c.got, c.want)
		}
	}

	// Consistencia interna: cliente = asociada + comisión, quincena a quincena
	// y en totales.
	if !plan.BiweeklyPayment.Equal(plan.AssociatePaymentPerBiweek.Add(plan.CommissionPerPayment)) {
		t.Error("el pago quincenal no es asociada + comisión")
	}
	if !plan.TotalPayment.Equal(plan.AssociateTotal.Add(plan.TotalCommission)) {
		t.Error("el total no es total de asociada + comisión total")
	}
}

func TestCalculateFormulaExpression(t *testing.T) {
	// Una expresión govaluate equivalente a la fórmula de interés simple debe
	// producir el mismo plan.
	profile := customProfile("4.00", "2.00")
	profile.FormulaExpression = "amount * (1 + interest / 100 * term)"

	withExpr, err := Calculate(profile, dec("10000"), 24)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	plain, err := Calculate(customProfile("4.00", "2.00"), dec("10000"), 24)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if !withExpr.BiweeklyPayment.Equal(plain.BiweeklyPayment) {
		t.Errorf("la expresión produce %s, la fórmula fija %s", withExpr.BiweeklyPayment, plain.BiweeklyPayment)
	}
}

func TestCalculateInvalidFormulaExpression(t *testing.T) {
	profile := customProfile("4.00", "2.00")
	profile.FormulaExpression = "amount * (1 +"
	if _, err := Calculate(profile, dec("10000"), 24); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
}

func TestCalculateTableLookup(t *testing.T) {
	profile := Profile{Code: "legacy", Method: "table_lookup"}

	plan, err := Calculate(profile, dec("3000"), 24)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if !plan.BiweeklyPayment.Equal(dec("245")) {
		t.Errorf("biweeklyPayment = %s, se esperaba 245", plan.BiweeklyPayment)
	}
	if !plan.AssociatePaymentPerBiweek.Equal(dec("240")) {
		t.Errorf("associatePaymentPerBiweek = %s, se esperaba 240", plan.AssociatePaymentPerBiweek)
	}
	if !plan.CommissionPerPayment.Equal(dec("5")) {
		t.Errorf("commissionPerPayment = %s, se esperaba 5", plan.CommissionPerPayment)
	}

	// Fuera de la tabla.
	if _, err := Calculate(profile, dec("3500"), 24); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("monto fuera de tabla: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
	if _, err := Calculate(profile, dec("3000"), 18); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("plazo fuera de tabla: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
	if _, err := Calculate(profile, dec("3000.50"), 24); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("monto con centavos: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
}

func TestCalculateValidation(t *testing.T) {
	base := customProfile("4.00", "2.00")

	cases := []struct {
		name    string
		profile Profile
		amount  decimal.Decimal
		term    int
	}{
		{"monto cero", base, dec("0"), 24},
		{"monto negativo", base, dec("-100"), 24},
		{"plazo cero", base, dec("1000"), 0},
		{"plazo excesivo", base, dec("1000"), 53},
		{"tasa de interés negativa", customProfile("-1", "2"), dec("1000"), 12},
		{"tasa de comisión mayor a 100", customProfile("4", "101"), dec("1000"), 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Calculate(tc.profile, tc.amount, tc.term); !errors.Is(err, ErrUnsupportedPlan) {
				t.Errorf("se esperaba ErrUnsupportedPlan, hubo %v", err)
			}
		})
	}
}

func TestCalculateRestrictedTerms(t *testing.T) {
	profile := customProfile("4.00", "2.00")
	profile.ValidTerms = []int{12, 24}

	if _, err := Calculate(profile, dec("1000"), 24); err != nil {
		t.Errorf("plazo permitido rechazado: %v", err)
	}
	if _, err := Calculate(profile, dec("1000"), 18); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("plazo no permitido: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
}

func TestCalculateAmountBounds(t *testing.T) {
	min := dec("1000")
	max := dec("5000")
	profile := customProfile("4.00", "2.00")
	profile.MinAmount = &min
	profile.MaxAmount = &max

	if _, err := Calculate(profile, dec("999.99"), 12); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("bajo el mínimo: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
	if _, err := Calculate(profile, dec("5000.01"), 12); !errors.Is(err, ErrUnsupportedPlan) {
		t.Errorf("sobre el máximo: se esperaba ErrUnsupportedPlan, hubo %v", err)
	}
	if _, err := Calculate(profile, dec("5000"), 12); err != nil {
		t.Errorf("en el máximo exacto: %v", err)
	}
}
