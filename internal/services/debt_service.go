// credinet/internal/services/debt_service.go
package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DebtService aplica los abonos de las asociadas a su deuda acumulada. La
// política es FIFO estricto: el abono consume los saldos abiertos del más
// antiguo al más reciente, sin saltos ni asignación manual.
type DebtService struct {
	db     *gorm.DB
	credit *CreditService
	Now    func() time.Time
}

func NewDebtService(db *gorm.DB) *DebtService {
	return &DebtService{db: db, credit: NewCreditService(db), Now: time.Now}
}

// RegisterDebtPaymentInput son los datos de un abono a deuda acumulada.
type RegisterDebtPaymentInput struct {
	AssociateUserID  uint
	PaymentAmount    decimal.Decimal
	PaymentDate      time.Time
	PaymentMethodID  uint
	PaymentReference string
	RegisteredBy     uint
}

// RegisterPayment aplica un abono FIFO sobre los saldos abiertos de la
// asociada. El desglose de aplicación queda en la fila del pago; el excedente
// se documenta pero no genera saldo a favor. La deuda consolidada del perfil
// se reduce solo por lo efectivamente aplicado.
func (s *DebtService) RegisterPayment(input RegisterDebtPaymentInput) (*models.DebtPayment, error) {
	if !input.PaymentAmount.IsPositive() {
		return nil, NewError(KindInvalidAmount, "El abono a deuda debe ser mayor a cero")
	}

	var registered *models.DebtPayment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Serializa abonos concurrentes de la misma asociada.
		if _, err := s.credit.ProfileForUpdate(tx, input.AssociateUserID); err != nil {
			return err
		}

		var balances []models.AccumulatedBalance
		err := lockForUpdate(tx).
			Where("associate_user_id = ? AND is_liquidated = ?", input.AssociateUserID, false).
			Order("created_at ASC, id ASC").
			Find(&balances).Error
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			return Errorf(KindNotFound, "La asociada %d no tiene deuda acumulada abierta", input.AssociateUserID)
		}

		now := s.Now()
		remaining := input.PaymentAmount
		applied := decimal.Zero
		var breakdown []models.BreakdownItem

		for i := range balances {
			if !remaining.IsPositive() {
				break
			}
			balance := &balances[i]

			portion := decimal.Min(remaining, balance.RemainingAmount)
			balance.RemainingAmount = balance.RemainingAmount.Sub(portion)
			balance.IsLiquidated = balance.RemainingAmount.LessThanOrEqual(epsilon)
			if balance.IsLiquidated {
				balance.RemainingAmount = decimal.Zero
			}
			if err := tx.Save(balance).Error; err != nil {
				return err
			}

			remaining = remaining.Sub(portion)
			applied = applied.Add(portion)
			breakdown = append(breakdown, models.BreakdownItem{
				DebtItemID:     balance.ID,
				OriginalAmount: balance.Amount,
				AmountApplied:  portion,
				Liquidated:     balance.IsLiquidated,
				RemainingAfter: balance.RemainingAmount,
				AppliedAt:      now,
			})
		}

		surplus := remaining
		if surplus.IsPositive() {
			slog.Warn("Abono a deuda con excedente",
				"associate_user_id", input.AssociateUserID,
				"payment_amount", input.PaymentAmount.StringFixed(2),
				"surplus", surplus.StringFixed(2))
		}

		breakdownJSON, err := json.Marshal(breakdown)
		if err != nil {
			return err
		}

		reference := input.PaymentReference
		if reference == "" {
			reference = uuid.NewString()
		}
		payment := models.DebtPayment{
			AssociateUserID:       input.AssociateUserID,
			PaymentAmount:         input.PaymentAmount,
			PaymentDate:           input.PaymentDate,
			PaymentMethodID:       input.PaymentMethodID,
			PaymentReference:      reference,
			RegisteredBy:          input.RegisteredBy,
			AppliedBreakdownItems: breakdownJSON,
			SurplusAmount:         surplus,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if applied.IsPositive() {
			if err := s.credit.ReduceConsolidatedDebt(tx, input.AssociateUserID, applied); err != nil {
				return err
			}
		}

		registered = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registered, nil
}

// DebtSummary es la foto de la deuda acumulada de una asociada.
type DebtSummary struct {
	AssociateUserID uint                        `json:"associateUserId"`
	TotalOpen       decimal.Decimal             `json:"totalOpen"`
	OpenItems       []models.AccumulatedBalance `json:"openItems"`
	Payments        []models.DebtPayment        `json:"payments"`
}

// AssociateSummary arma el resumen de deuda: saldos abiertos en orden FIFO y
// el historial de abonos.
func (s *DebtService) AssociateSummary(associateID uint) (*DebtSummary, error) {
	summary := &DebtSummary{AssociateUserID: associateID, TotalOpen: decimal.Zero}

	err := s.db.
		Where("associate_user_id = ? AND is_liquidated = ?", associateID, false).
		Order("created_at ASC, id ASC").
		Find(&summary.OpenItems).Error
	if err != nil {
		return nil, err
	}
	for i := range summary.OpenItems {
		summary.TotalOpen = summary.TotalOpen.Add(summary.OpenItems[i].RemainingAmount)
	}

	err = s.db.
		Where("associate_user_id = ?", associateID).
		Order("payment_date DESC, id DESC").
		Find(&summary.Payments).Error
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListBalances devuelve todos los saldos (abiertos y liquidados) de una
// asociada, del más antiguo al más reciente.
func (s *DebtService) ListBalances(associateID uint) ([]models.AccumulatedBalance, error) {
	var balances []models.AccumulatedBalance
	err := s.db.Where("associate_user_id = ?", associateID).
		Order("created_at ASC, id ASC").Find(&balances).Error
	return balances, err
}
