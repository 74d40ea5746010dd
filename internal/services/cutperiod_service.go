// credinet/internal/services/cutperiod_service.go
package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/JairFC/credinet-v2-sub000/internal/finance"
	"github.com/JairFC/credinet-v2-sub000/models"
	"gorm.io/gorm"
)

// CutPeriodService es el reloj quincenal del motor: genera el calendario
// estático de cortes, aplica la máquina de estados de cada período, corre el
// avance automático de los días 8 y 23 y ejecuta el cierre final con el
// roll-over de deuda. La matriz de transiciones vive en un solo lugar; el
// scheduler y los handlers delegan aquí.
type CutPeriodService struct {
	db         *gorm.DB
	statements *StatementService
	credit     *CreditService
	Now        func() time.Time
}

func NewCutPeriodService(db *gorm.DB) *CutPeriodService {
	return &CutPeriodService{
		db:         db,
		statements: NewStatementService(db),
		credit:     NewCreditService(db),
		Now:        time.Now,
	}
}

// allowedTransitions es la matriz PENDING -> CUTOFF -> COLLECTING ->
// SETTLING -> CLOSED. Todo lo demás se rechaza (salvo force).
var allowedTransitions = map[string]string{
	models.CutPeriodStatusPending:    models.CutPeriodStatusCutoff,
	models.CutPeriodStatusCutoff:     models.CutPeriodStatusCollecting,
	models.CutPeriodStatusCollecting: models.CutPeriodStatusSettling,
	models.CutPeriodStatusSettling:   models.CutPeriodStatusClosed,
}

// BackfillPeriods asegura que existan los 24 períodos de cada año pedido.
// Idempotente: los códigos ya presentes se dejan intactos.
func (s *CutPeriodService) BackfillPeriods(years ...int) (int, error) {
	created := 0
	for _, year := range years {
		for _, window := range finance.PeriodsForYear(year) {
			period := models.CutPeriod{
				CutCode:         window.Code,
				PeriodStartDate: window.Start,
				PeriodEndDate:   window.End,
				Status:          models.CutPeriodStatusPending,
			}
			result := s.db.Where("cut_code = ?", window.Code).FirstOrCreate(&period)
			if result.Error != nil {
				return created, result.Error
			}
			created += int(result.RowsAffected)
		}
	}
	return created, nil
}

// ActivePeriod devuelve el período que contiene la fecha actual.
func (s *CutPeriodService) ActivePeriod() (*models.CutPeriod, error) {
	return s.periodForDate(s.db, s.Now())
}

// ListPeriods devuelve los períodos en orden cronológico inverso.
func (s *CutPeriodService) ListPeriods(limit int) ([]models.CutPeriod, error) {
	var periods []models.CutPeriod
	query := s.db.Order("period_start_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&periods).Error
	return periods, err
}

// GetPeriod devuelve un período por su id.
func (s *CutPeriodService) GetPeriod(periodID uint) (*models.CutPeriod, error) {
	var period models.CutPeriod
	if err := s.db.First(&period, periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Período de corte %d no encontrado", periodID)
		}
		return nil, err
	}
	return &period, nil
}

// Transition aplica un cambio de estado validando la matriz. force la
// brinca, pero los efectos de entrada al estado destino se ejecutan igual.
func (s *CutPeriodService) Transition(periodID uint, target string, force bool, actorID uint) (*models.CutPeriod, error) {
	var result *models.CutPeriod
	err := s.db.Transaction(func(tx *gorm.DB) error {
		period, err := s.periodForUpdate(tx, periodID)
		if err != nil {
			return err
		}
		moved, err := s.transitionLocked(tx, period, target, force, actorID)
		if err != nil {
			return err
		}
		result = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transitionLocked asume la fila del período ya bloqueada.
func (s *CutPeriodService) transitionLocked(tx *gorm.DB, period *models.CutPeriod, target string, force bool, actorID uint) (*models.CutPeriod, error) {
	if period.Status == target {
		return period, nil
	}
	if !force && allowedTransitions[period.Status] != target {
		return nil, transitionError(period.Status, target)
	}

	previous := period.Status
	period.Status = target
	now := s.Now()

	switch target {
	case models.CutPeriodStatusCutoff:
		period.CutBy = &actorID
		period.CutAt = &now

	case models.CutPeriodStatusCollecting:
		count, err := s.statements.GenerateForPeriod(tx, period)
		if err != nil {
			return nil, err
		}
		slog.Info("Estados de cuenta generados para el período",
			"cut_code", period.CutCode, "generated", count)

	case models.CutPeriodStatusSettling:
		// Los estados de cuenta abiertos dejan de cobrarse activamente.
		err := tx.Model(&models.Statement{}).
			Where("cut_period_id = ? AND status IN ?", period.ID, []string{
				models.StatementStatusCollecting,
				models.StatementStatusPartialPaid,
				models.StatementStatusOverdue,
			}).
			Update("status", models.StatementStatusSettling).Error
		if err != nil {
			return nil, err
		}

	case models.CutPeriodStatusClosed:
		period.ClosedBy = &actorID
		period.ClosedAt = &now
		if _, err := s.absorbResiduals(tx, period); err != nil {
			return nil, err
		}
	}

	if err := tx.Save(period).Error; err != nil {
		return nil, err
	}
	slog.Info("Transición de período de corte",
		"cut_code", period.CutCode, "from", previous, "to", target, "force", force)
	return period, nil
}

// AdvanceChange describe un cambio que el avance aplicó (o aplicaría).
type AdvanceChange struct {
	CutCode             string `json:"cutCode"`
	From                string `json:"from"`
	To                  string `json:"to"`
	StatementsGenerated int    `json:"statementsGenerated,omitempty"`
}

// AdvanceResult es el reporte del avance quincenal.
type AdvanceResult struct {
	DryRun  bool            `json:"dryRun"`
	RunDate time.Time       `json:"runDate"`
	Changes []AdvanceChange `json:"changes"`
}

// AdvancePeriods ejecuta el avance de los días 8 y 23 en una transacción:
// el período vigente se queda en PENDING (los pagos siguen cayendo ahí); el
// inmediato anterior se empuja hasta COLLECTING generando estados de cuenta;
// los períodos más viejos aún en COLLECTING pasan a SETTLING. Con dryRun se
// reportan los cambios y se revierte todo.
func (s *CutPeriodService) AdvancePeriods(today time.Time, dryRun bool) (*AdvanceResult, error) {
	result := &AdvanceResult{DryRun: dryRun, RunDate: today}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	// 1. Período vigente: solo se identifica, no se toca.
	current, err := s.periodForDate(tx, today)
	if err != nil {
		return nil, err
	}

	// 2. Período inmediato anterior: empujarlo hasta COLLECTING.
	var previous models.CutPeriod
	err = lockForUpdate(tx).
		Where("period_start_date < ?", current.PeriodStartDate).
		Order("period_start_date DESC").
		First(&previous).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		if previous.Status == models.CutPeriodStatusPending {
			moved, err := s.transitionLocked(tx, &previous, models.CutPeriodStatusCutoff, false, 0)
			if err != nil {
				return nil, err
			}
			result.Changes = append(result.Changes, AdvanceChange{
				CutCode: moved.CutCode, From: models.CutPeriodStatusPending, To: models.CutPeriodStatusCutoff,
			})
		}
		if previous.Status == models.CutPeriodStatusCutoff {
			before, err := s.countStatements(tx, previous.ID)
			if err != nil {
				return nil, err
			}
			moved, err := s.transitionLocked(tx, &previous, models.CutPeriodStatusCollecting, false, 0)
			if err != nil {
				return nil, err
			}
			after, err := s.countStatements(tx, previous.ID)
			if err != nil {
				return nil, err
			}
			result.Changes = append(result.Changes, AdvanceChange{
				CutCode: moved.CutCode, From: models.CutPeriodStatusCutoff, To: models.CutPeriodStatusCollecting,
				StatementsGenerated: int(after - before),
			})
		}

		// 3. Períodos más viejos que el anterior todavía en COLLECTING.
		var stale []models.CutPeriod
		err = lockForUpdate(tx).
			Where("period_start_date < ? AND status = ?", previous.PeriodStartDate, models.CutPeriodStatusCollecting).
			Order("period_start_date ASC").
			Find(&stale).Error
		if err != nil {
			return nil, err
		}
		for i := range stale {
			moved, err := s.transitionLocked(tx, &stale[i], models.CutPeriodStatusSettling, false, 0)
			if err != nil {
				return nil, err
			}
			result.Changes = append(result.Changes, AdvanceChange{
				CutCode: moved.CutCode, From: models.CutPeriodStatusCollecting, To: models.CutPeriodStatusSettling,
			})
		}
	}

	if dryRun {
		// El defer revierte; solo reportamos lo que habría pasado.
		return result, nil
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

// CloseResult es el reporte del cierre final de un período.
type CloseResult struct {
	CutCode          string `json:"cutCode"`
	AlreadyClosed    bool   `json:"alreadyClosed"`
	DebtItemsCreated int    `json:"debtItemsCreated"`
	StatementsClosed int    `json:"statementsClosed"`
}

// ClosePeriod ejecuta el cierre manual SETTLING -> CLOSED. Idempotente: sobre
// un período ya cerrado reporta cuántas deudas se crearon en su momento.
func (s *CutPeriodService) ClosePeriod(periodID, actorID uint) (*CloseResult, error) {
	var result *CloseResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		period, err := s.periodForUpdate(tx, periodID)
		if err != nil {
			return err
		}

		if period.Status == models.CutPeriodStatusClosed {
			var existing int64
			err := tx.Model(&models.AccumulatedBalance{}).
				Where("origin_cut_period_id = ?", period.ID).
				Count(&existing).Error
			if err != nil {
				return err
			}
			result = &CloseResult{CutCode: period.CutCode, AlreadyClosed: true, DebtItemsCreated: int(existing)}
			return nil
		}
		if period.Status != models.CutPeriodStatusSettling {
			return transitionError(period.Status, models.CutPeriodStatusClosed)
		}

		now := s.Now()
		period.Status = models.CutPeriodStatusClosed
		period.ClosedBy = &actorID
		period.ClosedAt = &now
		closeResult, err := s.absorbResiduals(tx, period)
		if err != nil {
			return err
		}
		if err := tx.Save(period).Error; err != nil {
			return err
		}
		result = closeResult
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// absorbResiduals convierte el saldo impago de cada estado de cuenta del
// período en una deuda acumulada de la asociada. Es la única ruta que crea
// filas de deuda; el índice único por estado de cuenta impide duplicarlas si
// el cierre se reintenta tras una falla parcial.
func (s *CutPeriodService) absorbResiduals(tx *gorm.DB, period *models.CutPeriod) (*CloseResult, error) {
	var statements []models.Statement
	err := tx.Where("cut_period_id = ?", period.ID).
		Order("statement_number ASC").Find(&statements).Error
	if err != nil {
		return nil, err
	}

	result := &CloseResult{CutCode: period.CutCode}
	now := s.Now()
	for i := range statements {
		statement := &statements[i]
		if statement.Status == models.StatementStatusClosed || statement.Status == models.StatementStatusPaid {
			continue
		}

		pending := statement.Remaining()
		if pending.GreaterThan(epsilon) {
			var existing int64
			err := tx.Model(&models.AccumulatedBalance{}).
				Where("statement_id = ?", statement.ID).
				Count(&existing).Error
			if err != nil {
				return nil, err
			}
			if existing == 0 {
				details, err := json.Marshal([]models.DebtDetail{{
					StatementID:     statement.ID,
					StatementNumber: statement.StatementNumber,
					OriginalAmount:  statement.TotalToCredicuenta,
					LateFee:         statement.LateFeeAmount,
					PaidAmount:      statement.PaidAmount,
					DebtAmount:      pending,
					AbsorbedDate:    now,
					PeriodCode:      period.CutCode,
				}})
				if err != nil {
					return nil, err
				}
				balance := models.AccumulatedBalance{
					AssociateUserID:   statement.AssociateUserID,
					OriginCutPeriodID: period.ID,
					StatementID:       statement.ID,
					Amount:            pending,
					RemainingAmount:   pending,
					DebtDetails:       details,
				}
				if err := tx.Create(&balance).Error; err != nil {
					return nil, err
				}
				if err := s.credit.AddConsolidatedDebt(tx, statement.AssociateUserID, pending); err != nil {
					return nil, err
				}
				result.DebtItemsCreated++
			}
		}

		err = tx.Model(statement).Update("status", models.StatementStatusClosed).Error
		if err != nil {
			return nil, err
		}
		result.StatementsClosed++
	}
	return result, nil
}

func (s *CutPeriodService) countStatements(tx *gorm.DB, periodID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.Statement{}).Where("cut_period_id = ?", periodID).Count(&count).Error
	return count, err
}

func (s *CutPeriodService) periodForDate(tx *gorm.DB, d time.Time) (*models.CutPeriod, error) {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	var period models.CutPeriod
	err := tx.Where("period_start_date <= ? AND period_end_date >= ?", day, day).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "No existe período de corte para %s", day.Format("2006-01-02"))
		}
		return nil, err
	}
	return &period, nil
}

func (s *CutPeriodService) periodForUpdate(tx *gorm.DB, periodID uint) (*models.CutPeriod, error) {
	var period models.CutPeriod
	if err := lockForUpdate(tx).First(&period, periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Período de corte %d no encontrado", periodID)
		}
		return nil, err
	}
	return &period, nil
}
