// credinet/internal/finance/legacy_table.go
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tabla histórica del perfil "legacy": (monto, plazo) indexa directamente el
// pago quincenal del cliente y el de la asociada; la comisión es la
// diferencia. Combinaciones fuera de la tabla fallan con ErrUnsupportedPlan.

type legacyKey struct {
	amount int64
	term   int
}

type legacyRow struct {
	clientPayment    int64
	associatePayment int64
}

var legacyTable = map[legacyKey]legacyRow{
	{1000, 12}: {130, 127},
	{2000, 12}: {260, 254},
	{3000, 12}: {390, 381},
	{4000, 12}: {520, 508},
	{5000, 12}: {650, 635},
	{1000, 24}: {82, 80},
	{2000, 24}: {164, 160},
	{3000, 24}: {245, 240},
	{4000, 24}: {327, 320},
	{5000, 24}: {409, 400},
}

func calculateFromTable(amount decimal.Decimal, termBiweeks int) (Plan, error) {
	if !amount.Equal(amount.Truncate(0)) {
		return Plan{}, fmt.Errorf("%w: la tabla legacy solo admite montos cerrados", ErrUnsupportedPlan)
	}
	row, ok := legacyTable[legacyKey{amount.IntPart(), termBiweeks}]
	if !ok {
		return Plan{}, fmt.Errorf("%w: (%s, %d quincenas) no está en la tabla legacy", ErrUnsupportedPlan, amount.StringFixed(0), termBiweeks)
	}

	n := decimal.NewFromInt(int64(termBiweeks))
	biweekly := decimal.NewFromInt(row.clientPayment)
	associate := decimal.NewFromInt(row.associatePayment)
	commission := biweekly.Sub(associate)
	total := biweekly.Mul(n)

	return Plan{
		BiweeklyPayment:           biweekly,
		TotalPayment:              total,
		TotalInterest:             total.Sub(amount),
		CommissionPerPayment:      commission,
		TotalCommission:           commission.Mul(n),
		AssociatePaymentPerBiweek: associate,
		AssociateTotal:            associate.Mul(n),
	}, nil
}
