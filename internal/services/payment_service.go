// credinet/internal/services/payment_service.go
package services

import (
	"errors"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService es el libro de parcialidades: marca abonos de clientes y
// resuelve las consultas del calendario. El período de corte de una
// parcialidad queda congelado desde la generación del calendario; marcar un
// pago nunca la mueve de período.
type PaymentService struct {
	db     *gorm.DB
	credit *CreditService
	Now    func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db, credit: NewCreditService(db), Now: time.Now}
}

// MarkPaymentInput son los datos de un abono sobre una parcialidad.
type MarkPaymentInput struct {
	PaymentID   uint
	Amount      decimal.Decimal
	PaymentDate time.Time
	ActorID     uint
	Notes       string
}

// MarkPayment registra un abono. PENDING -> PARTIAL mientras falte saldo,
// -> PAID al completarse. Si con esto todas las parcialidades del préstamo
// quedan PAID, el préstamo pasa a COMPLETED y se libera la contribución de
// ese préstamo al total pendiente de la asociada.
func (s *PaymentService) MarkPayment(input MarkPaymentInput) (*models.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, NewError(KindInvalidAmount, "El monto del abono debe ser mayor a cero")
	}

	var marked *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := lockForUpdate(tx).First(&payment, input.PaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Errorf(KindNotFound, "Parcialidad %d no encontrada", input.PaymentID)
			}
			return err
		}
		if payment.Status == models.PaymentStatusPaid {
			return Errorf(KindAlreadyApplied, "La parcialidad %d ya está pagada por completo", payment.ID)
		}

		remaining := payment.ExpectedAmount.Sub(payment.AmountPaid)
		if input.Amount.GreaterThan(remaining) {
			return Errorf(KindOverpayment,
				"El abono %s excede el saldo %s de la parcialidad",
				input.Amount.StringFixed(2), remaining.StringFixed(2)).
				WithDetails(map[string]interface{}{
					"remaining": remaining.StringFixed(2),
					"amount":    input.Amount.StringFixed(2),
				})
		}

		now := s.Now()
		payment.AmountPaid = payment.AmountPaid.Add(input.Amount)
		payment.PaymentDate = &input.PaymentDate
		payment.MarkedBy = &input.ActorID
		payment.MarkedAt = &now
		if input.Notes != "" {
			payment.MarkingNotes = input.Notes
		}
		payment.IsLate = input.PaymentDate.After(payment.PaymentDueDate)
		if payment.AmountPaid.Equal(payment.ExpectedAmount) {
			payment.Status = models.PaymentStatusPaid
		} else {
			payment.Status = models.PaymentStatusPartial
		}

		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		// Agregado del período: lo recibido crece con cada abono.
		err := tx.Model(&models.CutPeriod{}).Where("id = ?", payment.CutPeriodID).
			Update("total_payments_received", gorm.Expr("total_payments_received + ?", input.Amount)).Error
		if err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusPaid {
			if err := s.completeLoanIfSettled(tx, payment.LoanID); err != nil {
				return err
			}
		}

		marked = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// completeLoanIfSettled cierra el préstamo cuando ya no quedan parcialidades
// sin pagar y libera su contribución pendiente en el perfil de la asociada.
func (s *PaymentService) completeLoanIfSettled(tx *gorm.DB, loanID uint) error {
	var open int64
	err := tx.Model(&models.Payment{}).
		Where("loan_id = ? AND status <> ?", loanID, models.PaymentStatusPaid).
		Count(&open).Error
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	loan, err := lockLoan(tx, loanID)
	if err != nil {
		return err
	}
	if loan.Status != models.LoanStatusActive {
		return nil
	}
	loan.Status = models.LoanStatusCompleted
	if err := tx.Save(loan).Error; err != nil {
		return err
	}
	if loan.AssociateID != nil {
		return s.credit.ReleasePending(tx, *loan.AssociateID, loan.AssociateTotal)
	}
	return nil
}

func lockLoan(tx *gorm.DB, loanID uint) (*models.Loan, error) {
	var loan models.Loan
	if err := lockForUpdate(tx).First(&loan, loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Préstamo %d no encontrado", loanID)
		}
		return nil, err
	}
	return &loan, nil
}

// ListByLoan devuelve el calendario completo de un préstamo.
func (s *PaymentService) ListByLoan(loanID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("loan_id = ?", loanID).Order("payment_number ASC").Find(&payments).Error
	return payments, err
}

// ListPendingByLoan devuelve solo las parcialidades con saldo.
func (s *PaymentService) ListPendingByLoan(loanID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("loan_id = ? AND status <> ?", loanID, models.PaymentStatusPaid).
		Order("payment_number ASC").Find(&payments).Error
	return payments, err
}

// ListOverdue devuelve las parcialidades vencidas de los préstamos activos.
// Las de préstamos cancelados no se consideran cartera vencida.
func (s *PaymentService) ListOverdue() ([]models.Payment, error) {
	today := s.Now().Truncate(24 * time.Hour)
	var payments []models.Payment
	err := s.db.Joins("JOIN loans ON loans.id = payments.loan_id").
		Where("payments.payment_due_date < ? AND payments.status <> ? AND loans.status = ?",
			today, models.PaymentStatusPaid, models.LoanStatusActive).
		Order("payments.payment_due_date ASC").Find(&payments).Error
	return payments, err
}

// ListByPeriod devuelve las parcialidades asignadas a un período de corte.
func (s *PaymentService) ListByPeriod(periodID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("cut_period_id = ?", periodID).
		Order("payment_due_date ASC, loan_id ASC, payment_number ASC").
		Find(&payments).Error
	return payments, err
}

// LoanSummary es el resumen de cobranza de un préstamo.
type LoanSummary struct {
	LoanID        uint            `json:"loanId"`
	TotalExpected decimal.Decimal `json:"totalExpected"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalPending  decimal.Decimal `json:"totalPending"`
	PaidCount     int             `json:"paidCount"`
	PendingCount  int             `json:"pendingCount"`
	NextDueDate   *time.Time      `json:"nextDueDate,omitempty"`
}

// Summary calcula los totales de cobranza y la siguiente fecha de pago.
func (s *PaymentService) Summary(loanID uint) (*LoanSummary, error) {
	payments, err := s.ListByLoan(loanID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, Errorf(KindNotFound, "El préstamo %d no tiene calendario de pagos", loanID)
	}

	summary := &LoanSummary{
		LoanID:        loanID,
		TotalExpected: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalPending:  decimal.Zero,
	}
	for i := range payments {
		p := &payments[i]
		summary.TotalExpected = summary.TotalExpected.Add(p.ExpectedAmount)
		summary.TotalPaid = summary.TotalPaid.Add(p.AmountPaid)
		if p.Status == models.PaymentStatusPaid {
			summary.PaidCount++
			continue
		}
		summary.PendingCount++
		summary.TotalPending = summary.TotalPending.Add(p.ExpectedAmount.Sub(p.AmountPaid))
		if summary.NextDueDate == nil || p.PaymentDueDate.Before(*summary.NextDueDate) {
			due := p.PaymentDueDate
			summary.NextDueDate = &due
		}
	}
	return summary, nil
}
