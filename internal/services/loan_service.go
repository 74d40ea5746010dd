// credinet/internal/services/loan_service.go
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/JairFC/credinet-v2-sub000/internal/finance"
	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanService implementa el ciclo de vida del préstamo: solicitud, aprobación,
// rechazo, cancelación y la emisión del calendario de pagos. La generación del
// calendario es un paso explícito dentro de la misma transacción de
// aprobación, no un disparador de base de datos.
type LoanService struct {
	db     *gorm.DB
	credit *CreditService
	// Now se inyecta en pruebas para fijar la fecha de aprobación.
	Now func() time.Time
}

func NewLoanService(db *gorm.DB) *LoanService {
	return &LoanService{db: db, credit: NewCreditService(db), Now: time.Now}
}

// CreateLoanInput son los datos de una solicitud de préstamo.
type CreateLoanInput struct {
	ClientID       uint
	AssociateID    *uint
	Amount         decimal.Decimal
	TermBiweeks    int
	ProfileCode    string
	InterestRate   *decimal.Decimal
	CommissionRate *decimal.Decimal
	Notes          string
}

// UpdateLoanInput permite editar una solicitud mientras sigue PENDING.
type UpdateLoanInput struct {
	Amount         *decimal.Decimal
	TermBiweeks    *int
	ProfileCode    *string
	InterestRate   *decimal.Decimal
	CommissionRate *decimal.Decimal
	Notes          *string
}

// CreateLoan registra una solicitud en PENDING con el plan ya calculado.
// El crédito NO se reserva aquí: la reserva ocurre en la aprobación para no
// dejar crédito atorado en solicitudes abandonadas.
func (s *LoanService) CreateLoan(input CreateLoanInput) (*models.Loan, error) {
	// 1. Validez del plan (perfil, monto, plazo).
	profile, err := s.resolveProfile(input.ProfileCode, input.InterestRate, input.CommissionRate)
	if err != nil {
		return nil, err
	}
	plan, err := finance.Calculate(profile, input.Amount, input.TermBiweeks)
	if err != nil {
		return nil, planError(err)
	}

	// 2-4. Elegibilidad del cliente y crédito de la asociada.
	if err := s.checkEligibility(s.db, input.ClientID, input.AssociateID, input.Amount, 0); err != nil {
		return nil, err
	}

	loan := &models.Loan{
		ClientID:       input.ClientID,
		AssociateID:    input.AssociateID,
		Amount:         input.Amount,
		InterestRate:   profile.InterestRate,
		CommissionRate: profile.CommissionRate,
		TermBiweeks:    input.TermBiweeks,
		ProfileCode:    profile.Code,
		Status:         models.LoanStatusPending,
		Notes:          input.Notes,
	}
	applyPlan(loan, plan)

	if err := s.db.Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

// ApproveLoan pasa la solicitud a ACTIVE, ancla la fecha del primer pago con
// el calendario dual, genera el calendario completo y reserva el crédito de
// la asociada. Todo en una sola transacción.
func (s *LoanService) ApproveLoan(loanID, approverID uint, notes string) (*models.Loan, error) {
	var approved *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanForUpdate(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return transitionError(loan.Status, models.LoanStatusActive)
		}

		// Revalidamos elegibilidad: el estado pudo cambiar desde la solicitud.
		if err := s.checkEligibility(tx, loan.ClientID, loan.AssociateID, loan.Amount, loan.ID); err != nil {
			return err
		}

		// Recalculamos el plan si falta (solicitudes migradas sin plan).
		if loan.BiweeklyPayment.IsZero() {
			profile, err := s.resolveProfile(loan.ProfileCode, &loan.InterestRate, &loan.CommissionRate)
			if err != nil {
				return err
			}
			plan, err := finance.Calculate(profile, loan.Amount, loan.TermBiweeks)
			if err != nil {
				return planError(err)
			}
			applyPlan(loan, plan)
		}

		now := s.Now()
		firstDate := finance.FirstPaymentDate(now)
		loan.Status = models.LoanStatusActive
		loan.ApprovedAt = &now
		loan.ApprovedBy = &approverID
		loan.FirstPaymentDate = &firstDate
		if notes != "" {
			loan.Notes = strings.TrimSpace(loan.Notes + "\n" + notes)
		}

		schedule, err := s.buildSchedule(tx, loan, firstDate)
		if err != nil {
			return err
		}
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		if err := s.addPeriodTotals(tx, schedule); err != nil {
			return err
		}

		if err := tx.Save(loan).Error; err != nil {
			return err
		}

		// La reserva valida disponible >= total de la asociada bajo candado.
		if loan.AssociateID != nil {
			if err := s.credit.ReservePending(tx, *loan.AssociateID, loan.AssociateTotal); err != nil {
				return err
			}
		}

		approved = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// RejectLoan es terminal y no toca crédito (nada se había reservado).
func (s *LoanService) RejectLoan(loanID, actorID uint, reason string) (*models.Loan, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, NewError(KindInvalidAmount, "El rechazo requiere un motivo")
	}
	var rejected *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanForUpdate(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return transitionError(loan.Status, models.LoanStatusRejected)
		}
		now := s.Now()
		loan.Status = models.LoanStatusRejected
		loan.RejectedAt = &now
		loan.RejectedBy = &actorID
		loan.RejectionReason = reason
		rejected = loan
		return tx.Save(loan).Error
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// CancelLoan cancela un préstamo activo. Las parcialidades ya pagadas se
// conservan para auditoría; la suma de associate_payment no pagada se libera
// del total pendiente de la asociada.
func (s *LoanService) CancelLoan(loanID, actorID uint, reason string) (*models.Loan, error) {
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, NewError(KindInvalidAmount, "La cancelación requiere un motivo de al menos 10 caracteres")
	}
	var cancelled *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanForUpdate(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusActive {
			return transitionError(loan.Status, models.LoanStatusCancelled)
		}

		var payments []models.Payment
		if err := tx.Where("loan_id = ?", loan.ID).Find(&payments).Error; err != nil {
			return err
		}
		unpaid := decimal.Zero
		for _, p := range payments {
			if p.Status != models.PaymentStatusPaid {
				unpaid = unpaid.Add(p.AssociatePayment)
			}
		}

		now := s.Now()
		loan.Status = models.LoanStatusCancelled
		loan.CancelledAt = &now
		loan.CancelledBy = &actorID
		loan.CancellationReason = reason
		if err := tx.Save(loan).Error; err != nil {
			return err
		}

		if loan.AssociateID != nil && unpaid.IsPositive() {
			if err := s.credit.ReleasePending(tx, *loan.AssociateID, unpaid); err != nil {
				return err
			}
		}
		cancelled = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// UpdateLoan edita una solicitud PENDING y recalcula su plan.
func (s *LoanService) UpdateLoan(loanID uint, input UpdateLoanInput) (*models.Loan, error) {
	var updated *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanForUpdate(tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusPending {
			return Errorf(KindInvalidTransition, "Solo las solicitudes PENDING pueden editarse (estado actual: %s)", loan.Status)
		}

		if input.Amount != nil {
			loan.Amount = *input.Amount
		}
		if input.TermBiweeks != nil {
			loan.TermBiweeks = *input.TermBiweeks
		}
		if input.ProfileCode != nil {
			loan.ProfileCode = *input.ProfileCode
		}
		if input.Notes != nil {
			loan.Notes = *input.Notes
		}

		interest := &loan.InterestRate
		commission := &loan.CommissionRate
		if input.InterestRate != nil {
			interest = input.InterestRate
		}
		if input.CommissionRate != nil {
			commission = input.CommissionRate
		}

		profile, err := s.resolveProfile(loan.ProfileCode, interest, commission)
		if err != nil {
			return err
		}
		plan, err := finance.Calculate(profile, loan.Amount, loan.TermBiweeks)
		if err != nil {
			return planError(err)
		}
		loan.InterestRate = profile.InterestRate
		loan.CommissionRate = profile.CommissionRate
		applyPlan(loan, plan)

		updated = loan
		return tx.Save(loan).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetLoan devuelve el préstamo con su calendario.
func (s *LoanService) GetLoan(loanID uint) (*models.Loan, error) {
	var loan models.Loan
	err := s.db.Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("payment_number ASC")
	}).First(&loan, loanID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Préstamo %d no encontrado", loanID)
		}
		return nil, err
	}
	return &loan, nil
}

// PreviewPlan calcula el plan sin persistir nada (cotizaciones).
func (s *LoanService) PreviewPlan(profileCode string, amount decimal.Decimal, termBiweeks int, interest, commission *decimal.Decimal) (finance.Plan, error) {
	profile, err := s.resolveProfile(profileCode, interest, commission)
	if err != nil {
		return finance.Plan{}, err
	}
	plan, err := finance.Calculate(profile, amount, termBiweeks)
	if err != nil {
		return finance.Plan{}, planError(err)
	}
	return plan, nil
}

// SchedulePreviewRow es una fila de la tabla de amortización cotizada.
type SchedulePreviewRow struct {
	PaymentNumber    int             `json:"paymentNumber"`
	PaymentDueDate   time.Time       `json:"paymentDueDate"`
	ExpectedAmount   decimal.Decimal `json:"expectedAmount"`
	PrincipalAmount  decimal.Decimal `json:"principalAmount"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	BalanceRemaining decimal.Decimal `json:"balanceRemaining"`
	CutPeriodCode    string          `json:"cutPeriodCode"`
}

// SchedulePreview es el resultado de cotizar plan y calendario juntos.
type SchedulePreview struct {
	Plan             finance.Plan         `json:"plan"`
	FirstPaymentDate time.Time            `json:"firstPaymentDate"`
	Schedule         []SchedulePreviewRow `json:"schedule"`
}

// PreviewSchedule cotiza el plan y la tabla de amortización completa como si
// el préstamo se aprobara en la fecha dada, sin tocar la base.
func (s *LoanService) PreviewSchedule(profileCode string, amount decimal.Decimal, termBiweeks int, interest, commission *decimal.Decimal, approvalDate time.Time) (*SchedulePreview, error) {
	plan, err := s.PreviewPlan(profileCode, amount, termBiweeks, interest, commission)
	if err != nil {
		return nil, err
	}

	firstDate := finance.FirstPaymentDate(approvalDate)
	preview := &SchedulePreview{
		Plan:             plan,
		FirstPaymentDate: firstDate,
		Schedule:         make([]SchedulePreviewRow, 0, termBiweeks),
	}

	principalBase := amount.DivRound(decimal.NewFromInt(int64(termBiweeks)), 2)
	cumulative := decimal.Zero
	for k := 1; k <= termBiweeks; k++ {
		dueDate := finance.NthBiweeklyDate(firstDate, k-1)
		principal := principalBase
		if k == termBiweeks {
			principal = amount.Sub(cumulative)
		}
		cumulative = cumulative.Add(principal)

		preview.Schedule = append(preview.Schedule, SchedulePreviewRow{
			PaymentNumber:    k,
			PaymentDueDate:   dueDate,
			ExpectedAmount:   plan.BiweeklyPayment,
			PrincipalAmount:  principal,
			InterestAmount:   plan.BiweeklyPayment.Sub(principal),
			BalanceRemaining: amount.Sub(cumulative),
			CutPeriodCode:    finance.PeriodCodeFor(dueDate),
		})
	}
	return preview, nil
}

// --- internos ---

func (s *LoanService) loanForUpdate(tx *gorm.DB, loanID uint) (*models.Loan, error) {
	var loan models.Loan
	if err := lockForUpdate(tx).First(&loan, loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "Préstamo %d no encontrado", loanID)
		}
		return nil, err
	}
	return &loan, nil
}

// checkEligibility corre las precondiciones 2-4 de la solicitud, en orden:
// sin otra solicitud PENDING, cliente no moroso, crédito disponible.
func (s *LoanService) checkEligibility(tx *gorm.DB, clientID uint, associateID *uint, amount decimal.Decimal, excludeLoanID uint) error {
	var pendingCount int64
	query := tx.Model(&models.Loan{}).
		Where("client_id = ? AND status = ?", clientID, models.LoanStatusPending)
	if excludeLoanID != 0 {
		query = query.Where("id <> ?", excludeLoanID)
	}
	if err := query.Count(&pendingCount).Error; err != nil {
		return err
	}
	if pendingCount > 0 {
		return Errorf(KindDuplicatePending, "El cliente %d ya tiene una solicitud PENDING", clientID)
	}

	var client models.User
	if err := tx.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Errorf(KindNotFound, "Cliente %d no encontrado", clientID)
		}
		return err
	}
	if client.IsDefaulter {
		return Errorf(KindClientInDefault, "El cliente %d está marcado como moroso", clientID)
	}

	if associateID != nil {
		if err := s.credit.EnsureAvailable(tx, *associateID, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *LoanService) resolveProfile(code string, interest, commission *decimal.Decimal) (finance.Profile, error) {
	if code == models.ProfileCodeCustom {
		if interest == nil || commission == nil {
			return finance.Profile{}, NewError(KindUnsupportedPlan, "El perfil custom requiere tasa de interés y de comisión")
		}
		return finance.Profile{
			Code:           models.ProfileCodeCustom,
			Method:         models.CalculationMethodFormula,
			InterestRate:   *interest,
			CommissionRate: *commission,
		}, nil
	}

	var rp models.RateProfile
	if err := s.db.Where("code = ? AND enabled = ?", code, true).First(&rp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return finance.Profile{}, Errorf(KindUnsupportedPlan, "Perfil de tasas %q no encontrado o deshabilitado", code)
		}
		return finance.Profile{}, err
	}

	profile := finance.Profile{
		Code:              rp.Code,
		Method:            rp.CalculationMethod,
		ValidTerms:        rp.TermsList(),
		MinAmount:         rp.MinAmount,
		MaxAmount:         rp.MaxAmount,
		FormulaExpression: rp.FormulaExpression,
	}
	if rp.InterestRatePercent != nil {
		profile.InterestRate = *rp.InterestRatePercent
	}
	if rp.CommissionRatePercent != nil {
		profile.CommissionRate = *rp.CommissionRatePercent
	}
	return profile, nil
}

// buildSchedule arma las parcialidades con su desglose de amortización y las
// etiqueta con el período de corte que contiene cada fecha de vencimiento.
// El principal se reparte parejo a 2 decimales; la última parcialidad absorbe
// el residuo para que la suma de principales sea exactamente el monto.
func (s *LoanService) buildSchedule(tx *gorm.DB, loan *models.Loan, firstDate time.Time) ([]models.Payment, error) {
	n := loan.TermBiweeks
	principalBase := loan.Amount.DivRound(decimal.NewFromInt(int64(n)), 2)
	schedule := make([]models.Payment, 0, n)
	cumulative := decimal.Zero

	for k := 1; k <= n; k++ {
		dueDate := finance.NthBiweeklyDate(firstDate, k-1)

		principal := principalBase
		if k == n {
			principal = loan.Amount.Sub(cumulative)
		}
		cumulative = cumulative.Add(principal)

		period, err := s.periodFor(tx, dueDate)
		if err != nil {
			return nil, err
		}

		schedule = append(schedule, models.Payment{
			LoanID:           loan.ID,
			PaymentNumber:    k,
			ExpectedAmount:   loan.BiweeklyPayment,
			InterestAmount:   loan.BiweeklyPayment.Sub(principal),
			PrincipalAmount:  principal,
			CommissionAmount: loan.CommissionPerPayment,
			AssociatePayment: loan.AssociatePaymentPerBiweek,
			BalanceRemaining: loan.Amount.Sub(cumulative),
			PaymentDueDate:   dueDate,
			AmountPaid:       decimal.Zero,
			Status:           models.PaymentStatusPending,
			CutPeriodID:      period.ID,
		})
	}
	return schedule, nil
}

func (s *LoanService) periodFor(tx *gorm.DB, date time.Time) (*models.CutPeriod, error) {
	var period models.CutPeriod
	err := tx.Where("period_start_date <= ? AND period_end_date >= ?", date, date).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindInvariantViolation,
				"No existe período de corte que contenga %s; falta backfill del calendario", date.Format("2006-01-02"))
		}
		return nil, err
	}
	return &period, nil
}

// addPeriodTotals acumula los agregados de cada período tocado por el
// calendario recién generado.
func (s *LoanService) addPeriodTotals(tx *gorm.DB, schedule []models.Payment) error {
	type bucket struct {
		expected   decimal.Decimal
		commission decimal.Decimal
	}
	totals := map[uint]*bucket{}
	for _, p := range schedule {
		b, ok := totals[p.CutPeriodID]
		if !ok {
			b = &bucket{expected: decimal.Zero, commission: decimal.Zero}
			totals[p.CutPeriodID] = b
		}
		b.expected = b.expected.Add(p.ExpectedAmount)
		b.commission = b.commission.Add(p.CommissionAmount)
	}
	for periodID, b := range totals {
		err := tx.Model(&models.CutPeriod{}).Where("id = ?", periodID).
			Updates(map[string]interface{}{
				"total_payments_expected": gorm.Expr("total_payments_expected + ?", b.expected),
				"total_commission":        gorm.Expr("total_commission + ?", b.commission),
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func applyPlan(loan *models.Loan, plan finance.Plan) {
	loan.BiweeklyPayment = plan.BiweeklyPayment
	loan.TotalPayment = plan.TotalPayment
	loan.TotalInterest = plan.TotalInterest
	loan.CommissionPerPayment = plan.CommissionPerPayment
	loan.TotalCommission = plan.TotalCommission
	loan.AssociatePaymentPerBiweek = plan.AssociatePaymentPerBiweek
	loan.AssociateTotal = plan.AssociateTotal
}

func planError(err error) error {
	if errors.Is(err, finance.ErrUnsupportedPlan) {
		return NewError(KindUnsupportedPlan, err.Error())
	}
	return err
}

func transitionError(current, requested string) error {
	return Errorf(KindInvalidTransition, "Transición no permitida de %s a %s", current, requested).
		WithDetails(map[string]interface{}{"current": current, "requested": requested})
}
