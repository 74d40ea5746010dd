// credinet/internal/finance/periods.go
package finance

import (
	"fmt"
	"time"
)

// El calendario de cortes es estático: 24 períodos por año, dos por mes.
// El período impar (QNN con NN = 2m-1) cubre del 8 al 22 del mes m; el par
// (NN = 2m) cubre del 23 del mes m al 7 del mes siguiente. Los días 1..7 de
// enero pertenecen al Q24 del año anterior.

// PeriodWindow es la ventana de un período de corte antes de persistirse.
type PeriodWindow struct {
	Code  string
	Start time.Time
	End   time.Time
}

// PeriodCode construye el código canónico YYYY-QNN.
func PeriodCode(year, nn int) string {
	return fmt.Sprintf("%d-Q%02d", year, nn)
}

// PeriodsForYear genera las 24 ventanas de un año en orden de inicio.
func PeriodsForYear(year int) []PeriodWindow {
	windows := make([]PeriodWindow, 0, 24)
	for m := time.January; m <= time.December; m++ {
		windows = append(windows, PeriodWindow{
			Code:  PeriodCode(year, 2*int(m)-1),
			Start: time.Date(year, m, 8, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, m, 22, 0, 0, 0, 0, time.UTC),
		})
		windows = append(windows, PeriodWindow{
			Code:  PeriodCode(year, 2*int(m)),
			Start: time.Date(year, m, 23, 0, 0, 0, 0, time.UTC),
			// time.Date normaliza el desbordamiento de mes (dic 23 -> ene 7).
			End: time.Date(year, m+1, 7, 0, 0, 0, 0, time.UTC),
		})
	}
	return windows
}

// PeriodCodeFor devuelve el código del único período que contiene la fecha.
func PeriodCodeFor(d time.Time) string {
	y, m, day := d.Date()
	switch {
	case day >= 8 && day <= 22:
		return PeriodCode(y, 2*int(m)-1)
	case day >= 23:
		return PeriodCode(y, 2*int(m))
	default:
		// día 1..7: pertenece a la segunda quincena del mes anterior.
		if m == time.January {
			return PeriodCode(y-1, 24)
		}
		return PeriodCode(y, 2*(int(m)-1))
	}
}
