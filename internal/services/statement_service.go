// credinet/internal/services/statement_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatementService produce y cobra los estados de cuenta: uno por
// (asociada, período) con lo que la asociada recaudó de sus clientes y lo que
// de eso debe entregar a la cooperativa.
type StatementService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewStatementService(db *gorm.DB) *StatementService {
	return &StatementService{db: db, Now: time.Now}
}

// GenerateForPeriod crea los estados de cuenta que falten para el período:
// toda asociada con al menos una parcialidad asignada al período y sin estado
// de cuenta previo recibe uno. Los números de estado de cuenta son
// deterministas: ST-{cut_code}-{associate_id:04d}.
func (s *StatementService) GenerateForPeriod(tx *gorm.DB, period *models.CutPeriod) (int, error) {
	var payments []models.Payment
	err := tx.Preload("Loan").
		Where("cut_period_id = ?", period.ID).
		Order("loan_id ASC, payment_number ASC").
		Find(&payments).Error
	if err != nil {
		return 0, err
	}

	type aggregate struct {
		count          int
		collected      decimal.Decimal
		toCredicuenta  decimal.Decimal
		commissionRate decimal.Decimal
	}
	byAssociate := map[uint]*aggregate{}
	for i := range payments {
		p := &payments[i]
		if p.Loan == nil || p.Loan.AssociateID == nil {
			// Préstamos directos de administración: sin asociada, sin estado de cuenta.
			continue
		}
		if p.Loan.Status == models.LoanStatusCancelled {
			// La cancelación ya liberó el pendiente de estas parcialidades;
			// facturarlas desharía la cancelación.
			continue
		}
		id := *p.Loan.AssociateID
		agg, ok := byAssociate[id]
		if !ok {
			agg = &aggregate{collected: decimal.Zero, toCredicuenta: decimal.Zero, commissionRate: decimal.Zero}
			byAssociate[id] = agg
		}
		agg.count++
		agg.collected = agg.collected.Add(p.ExpectedAmount)
		agg.toCredicuenta = agg.toCredicuenta.Add(p.AssociatePayment)
		// Simplificación documentada: si la asociada mezcla perfiles en el
		// período, se reporta la comisión más alta.
		if p.Loan.CommissionRate.GreaterThan(agg.commissionRate) {
			agg.commissionRate = p.Loan.CommissionRate
		}
	}

	created := 0
	now := s.Now()
	for associateID, agg := range byAssociate {
		var existing int64
		err := tx.Model(&models.Statement{}).
			Where("associate_user_id = ? AND cut_period_id = ?", associateID, period.ID).
			Count(&existing).Error
		if err != nil {
			return created, err
		}
		if existing > 0 {
			continue
		}

		statement := models.Statement{
			StatementNumber:       fmt.Sprintf("ST-%s-%04d", period.CutCode, associateID),
			AssociateUserID:       associateID,
			CutPeriodID:           period.ID,
			TotalPaymentsCount:    agg.count,
			TotalAmountCollected:  agg.collected,
			TotalToCredicuenta:    agg.toCredicuenta,
			CommissionEarned:      agg.collected.Sub(agg.toCredicuenta),
			CommissionRateApplied: agg.commissionRate,
			PaidAmount:            decimal.Zero,
			LateFeeAmount:         decimal.Zero,
			Status:                models.StatementStatusCollecting,
			DueDate:               period.PeriodEndDate,
			GeneratedAt:           now,
		}
		if err := tx.Create(&statement).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// PayStatementInput son los datos de un pago de la asociada contra su estado
// de cuenta.
type PayStatementInput struct {
	StatementID      uint
	PaidAmount       decimal.Decimal
	PaidDate         time.Time
	PaymentMethodID  uint
	PaymentReference string
}

// PayStatement abona al estado de cuenta. Completo -> PAID; parcial ->
// PARTIAL_PAID. La reducción del pendiente de la asociada ya ocurre vía el
// marcado de parcialidades, así que aquí no se toca el perfil de crédito.
func (s *StatementService) PayStatement(input PayStatementInput) (*models.Statement, error) {
	if !input.PaidAmount.IsPositive() {
		return nil, NewError(KindInvalidAmount, "El pago debe ser mayor a cero")
	}

	var paid *models.Statement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		statement, err := s.statementForUpdate(tx, input.StatementID)
		if err != nil {
			return err
		}
		if statement.Status == models.StatementStatusPaid || statement.Remaining().LessThanOrEqual(epsilon) {
			return Errorf(KindAlreadyApplied, "El estado de cuenta %s ya está pagado", statement.StatementNumber)
		}
		if statement.Status == models.StatementStatusClosed {
			return Errorf(KindInvalidTransition, "El estado de cuenta %s pertenece a un período cerrado", statement.StatementNumber)
		}
		if input.PaidDate.Before(statement.GeneratedAt.Truncate(24 * time.Hour)) {
			return NewError(KindInvalidAmount, "La fecha de pago no puede ser anterior a la generación del estado de cuenta")
		}

		statement.PaidAmount = statement.PaidAmount.Add(input.PaidAmount)
		statement.PaidDate = &input.PaidDate
		statement.PaymentMethodID = &input.PaymentMethodID
		if input.PaymentReference != "" {
			statement.PaymentReference = input.PaymentReference
		}

		owed := statement.TotalToCredicuenta.Add(statement.LateFeeAmount)
		if statement.PaidAmount.GreaterThanOrEqual(owed) {
			statement.Status = models.StatementStatusPaid
		} else {
			statement.Status = models.StatementStatusPartialPaid
		}

		paid = statement
		return tx.Save(statement).Error
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// ApplyLateFee agrega un recargo a un estado de cuenta vencido. Guarda de
// idempotencia: solo se aplica una vez.
func (s *StatementService) ApplyLateFee(statementID uint, amount decimal.Decimal, actorID uint) (*models.Statement, error) {
	if !amount.IsPositive() {
		return nil, NewError(KindInvalidAmount, "El recargo debe ser mayor a cero")
	}

	var updated *models.Statement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		statement, err := s.statementForUpdate(tx, statementID)
		if err != nil {
			return err
		}
		if statement.LateFeeApplied {
			return Errorf(KindAlreadyApplied, "El estado de cuenta %s ya tiene recargo aplicado", statement.StatementNumber)
		}
		if statement.Status == models.StatementStatusPaid || statement.Status == models.StatementStatusClosed {
			return Errorf(KindAlreadyApplied, "El estado de cuenta %s ya no admite recargos", statement.StatementNumber)
		}
		today := s.Now().Truncate(24 * time.Hour)
		if !statement.DueDate.Before(today) {
			return NewError(KindInvalidAmount, "El estado de cuenta aún no está vencido")
		}

		statement.LateFeeAmount = amount
		statement.LateFeeApplied = true
		statement.Status = models.StatementStatusOverdue
		updated = statement
		return tx.Save(statement).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetStatement devuelve un estado de cuenta con su período.
func (s *StatementService) GetStatement(statementID uint) (*models.Statement, error) {
	var statement models.Statement
	err := s.db.Preload("CutPeriod").First(&statement, statementID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Estado de cuenta %d no encontrado", statementID)
		}
		return nil, err
	}
	return &statement, nil
}

// StatementFilters son los filtros del listado de estados de cuenta.
type StatementFilters struct {
	AssociateUserID *uint
	CutPeriodID     *uint
	Status          string
	OverdueOnly     bool
}

// ListStatements aplica los filtros soportados por la API.
func (s *StatementService) ListStatements(filters StatementFilters) ([]models.Statement, error) {
	query := s.db.Model(&models.Statement{}).Preload("CutPeriod")
	if filters.AssociateUserID != nil {
		query = query.Where("associate_user_id = ?", *filters.AssociateUserID)
	}
	if filters.CutPeriodID != nil {
		query = query.Where("cut_period_id = ?", *filters.CutPeriodID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.OverdueOnly {
		today := s.Now().Truncate(24 * time.Hour)
		query = query.Where("due_date < ? AND status NOT IN ?", today,
			[]string{models.StatementStatusPaid, models.StatementStatusClosed})
	}

	var statements []models.Statement
	err := query.Order("due_date DESC, statement_number ASC").Find(&statements).Error
	return statements, err
}

// ListByPeriod devuelve los estados de cuenta de un período ordenados por
// número (orden determinista por asociada).
func (s *StatementService) ListByPeriod(periodID uint) ([]models.Statement, error) {
	var statements []models.Statement
	err := s.db.Where("cut_period_id = ?", periodID).
		Order("statement_number ASC").Find(&statements).Error
	return statements, err
}

func (s *StatementService) statementForUpdate(tx *gorm.DB, statementID uint) (*models.Statement, error) {
	var statement models.Statement
	if err := lockForUpdate(tx).First(&statement, statementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Estado de cuenta %d no encontrado", statementID)
		}
		return nil, err
	}
	return &statement, nil
}
