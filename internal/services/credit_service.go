// credinet/internal/services/credit_service.go
package services

import (
	"errors"
	"log/slog"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditService mantiene el invariante de crédito de cada asociada:
// disponible = límite − pagos pendientes − deuda consolidada.
// Toda pareja verificar-y-actuar se hace con la fila del perfil bloqueada.
type CreditService struct {
	db *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{db: db}
}

// ProfileForUpdate carga y bloquea el perfil de crédito de la asociada.
func (s *CreditService) ProfileForUpdate(tx *gorm.DB, associateID uint) (*models.AssociateProfile, error) {
	var profile models.AssociateProfile
	if err := lockForUpdate(tx).Where("user_id = ?", associateID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "La asociada %d no tiene perfil de crédito", associateID)
		}
		return nil, err
	}
	return &profile, nil
}

// Profile devuelve el perfil sin bloquear (lecturas de consulta).
func (s *CreditService) Profile(associateID uint) (*models.AssociateProfile, error) {
	var profile models.AssociateProfile
	if err := s.db.Where("user_id = ?", associateID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "La asociada %d no tiene perfil de crédito", associateID)
		}
		return nil, err
	}
	return &profile, nil
}

// EnsureAvailable verifica que la asociada tenga crédito disponible para el
// monto requerido, sin mutar nada. Falla con InsufficientCredit.
func (s *CreditService) EnsureAvailable(tx *gorm.DB, associateID uint, required decimal.Decimal) error {
	profile, err := s.ProfileForUpdate(tx, associateID)
	if err != nil {
		return err
	}
	return checkAvailable(profile, required)
}

// ReservePending incrementa pending_payments_total validando primero el
// crédito disponible bajo el candado de fila (gancho de aprobación).
func (s *CreditService) ReservePending(tx *gorm.DB, associateID uint, amount decimal.Decimal) error {
	profile, err := s.ProfileForUpdate(tx, associateID)
	if err != nil {
		return err
	}
	if err := checkAvailable(profile, amount); err != nil {
		return err
	}
	profile.PendingPaymentsTotal = profile.PendingPaymentsTotal.Add(amount)
	return s.save(tx, profile)
}

// ReleasePending libera pagos pendientes (cancelación o préstamo completado).
func (s *CreditService) ReleasePending(tx *gorm.DB, associateID uint, amount decimal.Decimal) error {
	profile, err := s.ProfileForUpdate(tx, associateID)
	if err != nil {
		return err
	}
	profile.PendingPaymentsTotal = profile.PendingPaymentsTotal.Sub(amount)
	return s.save(tx, profile)
}

// AddConsolidatedDebt registra deuda heredada de un cierre de período.
// Es un hecho contable, no una solicitud: nunca se rechaza.
func (s *CreditService) AddConsolidatedDebt(tx *gorm.DB, associateID uint, amount decimal.Decimal) error {
	profile, err := s.ProfileForUpdate(tx, associateID)
	if err != nil {
		return err
	}
	profile.ConsolidatedDebt = profile.ConsolidatedDebt.Add(amount)
	return s.save(tx, profile)
}

// ReduceConsolidatedDebt descuenta deuda consolidada por un abono aplicado.
func (s *CreditService) ReduceConsolidatedDebt(tx *gorm.DB, associateID uint, amount decimal.Decimal) error {
	profile, err := s.ProfileForUpdate(tx, associateID)
	if err != nil {
		return err
	}
	profile.ConsolidatedDebt = profile.ConsolidatedDebt.Sub(amount)
	return s.save(tx, profile)
}

func (s *CreditService) save(tx *gorm.DB, profile *models.AssociateProfile) error {
	if err := verifyProfile(profile); err != nil {
		return err
	}
	return tx.Model(profile).Updates(map[string]interface{}{
		"pending_payments_total": profile.PendingPaymentsTotal,
		"consolidated_debt":      profile.ConsolidatedDebt,
	}).Error
}

func checkAvailable(profile *models.AssociateProfile, required decimal.Decimal) error {
	available := profile.AvailableCredit()
	if available.LessThan(required) {
		return Errorf(KindInsufficientCredit,
			"Crédito insuficiente: disponible %s, requerido %s",
			available.StringFixed(2), required.StringFixed(2)).
			WithDetails(map[string]interface{}{
				"available": available.StringFixed(2),
				"required":  required.StringFixed(2),
			})
	}
	return nil
}

// verifyProfile revisa la consistencia del perfil después de cada mutación.
// Un total negativo es corrupción contable y aborta la transacción; un
// disponible negativo tras un hecho contable (roll-over de deuda) solo se
// reporta, porque el hecho ya ocurrió y rechazarlo dejaría el período
// atorado. Las operaciones a solicitud lo previenen con checkAvailable.
func verifyProfile(profile *models.AssociateProfile) error {
	if profile.PendingPaymentsTotal.IsNegative() || profile.ConsolidatedDebt.IsNegative() {
		slog.Error("Violación de invariante en el perfil de crédito",
			"associate_user_id", profile.UserID,
			"credit_limit", profile.CreditLimit.StringFixed(2),
			"pending_payments_total", profile.PendingPaymentsTotal.StringFixed(2),
			"consolidated_debt", profile.ConsolidatedDebt.StringFixed(2))
		return Errorf(KindInvariantViolation,
			"Perfil de crédito inconsistente para la asociada %d", profile.UserID)
	}
	if profile.AvailableCredit().IsNegative() {
		slog.Error("Crédito disponible negativo tras mutación contable",
			"associate_user_id", profile.UserID,
			"available", profile.AvailableCredit().StringFixed(2))
	}
	return nil
}
