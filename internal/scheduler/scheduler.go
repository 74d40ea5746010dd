// credinet/internal/scheduler/scheduler.go
package scheduler

import (
	"log/slog"
	"time"

	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"gorm.io/gorm"
)

// advisoryLockKey identifica el candado global del avance de períodos.
// Con varias réplicas del servicio solo una ejecuta el avance.
const advisoryLockKey = 742519

// Start lanza el planificador de fondo: revisa cada hora si hoy es día de
// corte (8 o 23 de cada mes) y corre el avance de períodos una sola vez al
// día, a partir de la 1:00.
func Start(db *gorm.DB) {
	go func() {
		slog.Info("Planificador de cortes iniciado")
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		var lastRun string
		for range ticker.C {
			now := time.Now().UTC()
			if now.Day() != 8 && now.Day() != 23 {
				continue
			}
			if now.Hour() < 1 {
				continue
			}
			today := now.Format("2006-01-02")
			if lastRun == today {
				continue
			}

			result, acquired, err := runAdvance(db, now)
			switch {
			case err != nil:
				slog.Error("Falló el avance automático de períodos", "error", err)
				continue
			case !acquired:
				slog.Info("Avance de períodos en ejecución en otra réplica, se omite")
			default:
				slog.Info("Avance automático de períodos completado",
					"date", today, "changes", len(result.Changes))
			}
			lastRun = today
		}
	}()
}

// runAdvance ejecuta el avance bajo el candado consultivo de Postgres. El
// candado es de sesión, así que candado, avance y liberación deben correr
// sobre la misma conexión: db.Connection fija una del pool para toda la
// secuencia. En otros motores (pruebas con sqlite) se avanza sin candado.
func runAdvance(db *gorm.DB, now time.Time) (*services.AdvanceResult, bool, error) {
	var result *services.AdvanceResult
	acquired := true
	err := db.Connection(func(conn *gorm.DB) error {
		if conn.Dialector.Name() == "postgres" {
			if err := conn.Raw("SELECT pg_try_advisory_lock(?)", advisoryLockKey).Scan(&acquired).Error; err != nil {
				return err
			}
			if !acquired {
				return nil
			}
			defer func() {
				if err := conn.Exec("SELECT pg_advisory_unlock(?)", advisoryLockKey).Error; err != nil {
					slog.Error("No se pudo liberar el candado de avance", "error", err)
				}
			}()
		}
		var err error
		result, err = services.NewCutPeriodService(conn).AdvancePeriods(now, false)
		return err
	})
	return result, acquired, err
}
