// credinet/internal/finance/biweekly.go
package finance

import "time"

// Calendario dual: las fechas de pago solo pueden caer en dos anclas por mes,
// el día 15 y el último día natural. Toda la aritmética de calendarios de pago
// pasa por FirstPaymentDate y NthBiweeklyDate; nunca se suman 15 días a mano.

// EndOfMonth devuelve el último día natural del mes de la fecha dada.
func EndOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// FirstPaymentDate ancla la fecha del primer pago a partir de la fecha de
// aprobación del préstamo:
//
//	día 1..7   -> 15 del mismo mes
//	día 8..22  -> último día del mismo mes
//	día 23..fin -> 15 del mes siguiente
func FirstPaymentDate(approved time.Time) time.Time {
	y, m, day := approved.Date()
	switch {
	case day <= 7:
		return time.Date(y, m, 15, 0, 0, 0, 0, time.UTC)
	case day <= 22:
		return EndOfMonth(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
	default:
		return time.Date(y, m+1, 15, 0, 0, 0, 0, time.UTC)
	}
}

// NthBiweeklyDate devuelve el ancla corrida i quincenas desde anchor,
// alternando entre el día 15 y el último día del mes.
func NthBiweeklyDate(anchor time.Time, i int) time.Time {
	t := anchor
	for k := 0; k < i; k++ {
		t = nextBiweeklyDate(t)
	}
	return t
}

func nextBiweeklyDate(t time.Time) time.Time {
	if t.Day() == 15 {
		return EndOfMonth(t)
	}
	// t está en fin de mes; la siguiente ancla es el 15 del mes próximo.
	return time.Date(t.Year(), t.Month()+1, 15, 0, 0, 0, 0, time.UTC)
}
