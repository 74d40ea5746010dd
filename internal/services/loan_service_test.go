// credinet/internal/services/loan_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
)

func TestCreateLoanComputesPlan(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")

	svc := NewLoanService(db)
	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	loan, err := svc.CreateLoan(CreateLoanInput{
		ClientID:       client.ID,
		AssociateID:    &associate.ID,
		Amount:         mustDec(t, "10000"),
		TermBiweeks:    24,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	})
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}

	if loan.Status != models.LoanStatusPending {
		t.Errorf("estado = %s, se esperaba PENDING", loan.Status)
	}
	if !loan.BiweeklyPayment.Equal(mustDec(t, "817")) {
		t.Errorf("biweeklyPayment = %s, se esperaba 817", loan.BiweeklyPayment)
	}
	if !loan.CommissionPerPayment.Equal(mustDec(t, "16.34")) {
		t.Errorf("commissionPerPayment = %s, se esperaba 16.34", loan.CommissionPerPayment)
	}

	// La solicitud no reserva crédito.
	profile := &models.AssociateProfile{}
	if err := db.Where("user_id = ?", associate.ID).First(profile).Error; err != nil {
		t.Fatal(err)
	}
	if !profile.PendingPaymentsTotal.IsZero() {
		t.Errorf("la solicitud reservó crédito: pending = %s", profile.PendingPaymentsTotal)
	}
}

func TestApproveLoanGeneratesSchedule(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")

	// Aprobación el 5 de marzo: primer pago el 15 de marzo.
	loan := createActiveLoan(t, db, client.ID, &associate.ID, "10000", 24,
		time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC))

	if loan.Status != models.LoanStatusActive {
		t.Fatalf("estado = %s, se esperaba ACTIVE", loan.Status)
	}
	if loan.FirstPaymentDate == nil || !loan.FirstPaymentDate.Equal(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("firstPaymentDate = %v, se esperaba 2025-03-15", loan.FirstPaymentDate)
	}

	var payments []models.Payment
	if err := db.Where("loan_id = ?", loan.ID).Order("payment_number ASC").Find(&payments).Error; err != nil {
		t.Fatal(err)
	}
	if len(payments) != 24 {
		t.Fatalf("calendario con %d parcialidades, se esperaban 24", len(payments))
	}

	// Invariantes del calendario: fechas crecientes en anclas válidas, suma de
	// principales igual al monto, balance decreciente hasta cero, período de
	// corte congelado y consistente con la fecha de vencimiento.
	sumPrincipal := decimal.Zero
	sumExpected := decimal.Zero
	prevDue := time.Time{}
	for i, p := range payments {
		if p.PaymentNumber != i+1 {
			t.Errorf("parcialidad %d tiene número %d", i+1, p.PaymentNumber)
		}
		if !p.ExpectedAmount.Equal(loan.BiweeklyPayment) {
			t.Errorf("parcialidad %d: expectedAmount = %s, se esperaba %s", p.PaymentNumber, p.ExpectedAmount, loan.BiweeklyPayment)
		}
		if !p.ExpectedAmount.Equal(p.AssociatePayment.Add(p.CommissionAmount)) {
			t.Errorf("parcialidad %d: esperado != asociada + comisión", p.PaymentNumber)
		}
		if d := p.PaymentDueDate; d.Day() != 15 && d.AddDate(0, 0, 1).Day() != 1 {
			t.Errorf("parcialidad %d vence en %s, que no es ancla válida", p.PaymentNumber, d.Format("2006-01-02"))
		}
		if !prevDue.IsZero() && !p.PaymentDueDate.After(prevDue) {
			t.Errorf("parcialidad %d no es posterior a la anterior", p.PaymentNumber)
		}
		prevDue = p.PaymentDueDate

		if p.CutPeriodID == 0 {
			t.Errorf("parcialidad %d sin período de corte", p.PaymentNumber)
		} else {
			var period models.CutPeriod
			if err := db.First(&period, p.CutPeriodID).Error; err != nil {
				t.Fatal(err)
			}
			if !period.Contains(p.PaymentDueDate) {
				t.Errorf("parcialidad %d (%s) asignada al período %s [%s, %s]",
					p.PaymentNumber, p.PaymentDueDate.Format("2006-01-02"), period.CutCode,
					period.PeriodStartDate.Format("2006-01-02"), period.PeriodEndDate.Format("2006-01-02"))
			}
		}

		sumPrincipal = sumPrincipal.Add(p.PrincipalAmount)
		sumExpected = sumExpected.Add(p.ExpectedAmount)
	}
	if !sumPrincipal.Equal(loan.Amount) {
		t.Errorf("suma de principales = %s, se esperaba %s", sumPrincipal, loan.Amount)
	}
	if !sumExpected.Equal(loan.TotalPayment) {
		t.Errorf("suma de esperados = %s, se esperaba %s", sumExpected, loan.TotalPayment)
	}
	if !payments[len(payments)-1].BalanceRemaining.IsZero() {
		t.Errorf("balance final = %s, se esperaba 0", payments[len(payments)-1].BalanceRemaining)
	}

	// La aprobación reserva el total de la asociada.
	profile := &models.AssociateProfile{}
	if err := db.Where("user_id = ?", associate.ID).First(profile).Error; err != nil {
		t.Fatal(err)
	}
	if !profile.PendingPaymentsTotal.Equal(loan.AssociateTotal) {
		t.Errorf("pending = %s, se esperaba %s", profile.PendingPaymentsTotal, loan.AssociateTotal)
	}
}

func TestApproveLoanInsufficientCredit(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	// Disponible = 50000 - 45000 - 3000 = 2000.
	associate := createAssociate(t, db, "asociada1", "50000", "45000", "3000")

	svc := NewLoanService(db)
	svc.Now = fixedNow(2025, time.March, 5)
	interest := mustDec(t, "0.00")
	commission := mustDec(t, "0.00")
	// Sin interés ni comisión el total de la asociada es el monto: 3000.
	loan, err := svc.CreateLoan(CreateLoanInput{
		ClientID:       client.ID,
		AssociateID:    &associate.ID,
		Amount:         mustDec(t, "2000"),
		TermBiweeks:    12,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	})
	if err != nil {
		t.Fatalf("la solicitud dentro del disponible falló: %v", err)
	}

	// Elevamos el monto por encima del disponible editando la solicitud.
	amount := mustDec(t, "3000")
	if _, err := svc.UpdateLoan(loan.ID, UpdateLoanInput{Amount: &amount}); err == nil {
		_, err = svc.ApproveLoan(loan.ID, 1, "")
		if kind := serviceErrorKind(t, err); kind != KindInsufficientCredit {
			t.Fatalf("clase = %s, se esperaba INSUFFICIENT_CREDIT", kind)
		}
		se, _ := AsServiceError(err)
		if se.Details["available"] != "2000.00" || se.Details["required"] != "3000.00" {
			t.Errorf("detalle = %v, se esperaba available=2000.00 required=3000.00", se.Details)
		}
	} else {
		t.Fatalf("no se pudo editar la solicitud: %v", err)
	}

	// Sin parcialidades escritas.
	var count int64
	if err := db.Model(&models.Payment{}).Where("loan_id = ?", loan.ID).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("se escribieron %d parcialidades pese al rechazo", count)
	}

	// El préstamo sigue PENDING.
	var persisted models.Loan
	if err := db.First(&persisted, loan.ID).Error; err != nil {
		t.Fatal(err)
	}
	if persisted.Status != models.LoanStatusPending {
		t.Errorf("estado = %s, se esperaba PENDING", persisted.Status)
	}
}

func TestCreateLoanRejectsDuplicatePending(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")

	svc := NewLoanService(db)
	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	input := CreateLoanInput{
		ClientID:       client.ID,
		AssociateID:    &associate.ID,
		Amount:         mustDec(t, "1000"),
		TermBiweeks:    12,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	}
	if _, err := svc.CreateLoan(input); err != nil {
		t.Fatalf("primera solicitud falló: %v", err)
	}
	_, err := svc.CreateLoan(input)
	if kind := serviceErrorKind(t, err); kind != KindDuplicatePending {
		t.Errorf("clase = %s, se esperaba DUPLICATE_PENDING", kind)
	}
}

func TestCreateLoanRejectsDefaulter(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "moroso1")
	if err := db.Model(client).Update("is_defaulter", true).Error; err != nil {
		t.Fatal(err)
	}
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")

	svc := NewLoanService(db)
	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	_, err := svc.CreateLoan(CreateLoanInput{
		ClientID:       client.ID,
		AssociateID:    &associate.ID,
		Amount:         mustDec(t, "1000"),
		TermBiweeks:    12,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	})
	if kind := serviceErrorKind(t, err); kind != KindClientInDefault {
		t.Errorf("clase = %s, se esperaba CLIENT_IN_DEFAULT", kind)
	}
}

func TestRejectLoan(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")

	svc := NewLoanService(db)
	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	loan, err := svc.CreateLoan(CreateLoanInput{
		ClientID:       client.ID,
		Amount:         mustDec(t, "1000"),
		TermBiweeks:    12,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RejectLoan(loan.ID, 1, ""); err == nil {
		t.Error("rechazo sin motivo aceptado")
	}

	rejected, err := svc.RejectLoan(loan.ID, 1, "Documentación incompleta")
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if rejected.Status != models.LoanStatusRejected {
		t.Errorf("estado = %s, se esperaba REJECTED", rejected.Status)
	}

	// Terminal: no se puede aprobar después.
	_, err = svc.ApproveLoan(loan.ID, 1, "")
	if kind := serviceErrorKind(t, err); kind != KindInvalidTransition {
		t.Errorf("clase = %s, se esperaba INVALID_TRANSITION", kind)
	}
}

func TestCancelLoanReleasesUnpaidPortion(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	loan := createActiveLoan(t, db, client.ID, &associate.ID, "10000", 24,
		time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC))

	// Pagamos dos parcialidades completas antes de cancelar.
	paySvc := NewPaymentService(db)
	paySvc.Now = fixedNow(2025, time.March, 15)
	var firstTwo []models.Payment
	if err := db.Where("loan_id = ?", loan.ID).Order("payment_number ASC").Limit(2).Find(&firstTwo).Error; err != nil {
		t.Fatal(err)
	}
	for _, p := range firstTwo {
		_, err := paySvc.MarkPayment(MarkPaymentInput{
			PaymentID:   p.ID,
			Amount:      p.ExpectedAmount,
			PaymentDate: p.PaymentDueDate,
			ActorID:     1,
		})
		if err != nil {
			t.Fatalf("no se pudo marcar la parcialidad %d: %v", p.PaymentNumber, err)
		}
	}

	svc := NewLoanService(db)
	if _, err := svc.CancelLoan(loan.ID, 1, "corto"); err == nil {
		t.Error("cancelación con motivo corto aceptada")
	}

	cancelled, err := svc.CancelLoan(loan.ID, 1, "Cliente solicitó cancelación anticipada")
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if cancelled.Status != models.LoanStatusCancelled {
		t.Errorf("estado = %s, se esperaba CANCELLED", cancelled.Status)
	}

	// Se libera solo la parte de asociada de las 22 parcialidades no pagadas.
	expectedRelease := loan.AssociatePaymentPerBiweek.Mul(decimal.NewFromInt(22))
	expectedPending := loan.AssociateTotal.Sub(expectedRelease)
	profile := &models.AssociateProfile{}
	if err := db.Where("user_id = ?", associate.ID).First(profile).Error; err != nil {
		t.Fatal(err)
	}
	if !profile.PendingPaymentsTotal.Equal(expectedPending) {
		t.Errorf("pending = %s, se esperaba %s", profile.PendingPaymentsTotal, expectedPending)
	}
}

func TestPreviewScheduleMatchesApprovedSchedule(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	approvedOn := time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

	svc := NewLoanService(db)
	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	preview, err := svc.PreviewSchedule(models.ProfileCodeCustom, mustDec(t, "10000"), 24,
		&interest, &commission, approvedOn)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if !preview.FirstPaymentDate.Equal(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("firstPaymentDate = %s, se esperaba 2025-03-31", preview.FirstPaymentDate.Format("2006-01-02"))
	}
	if len(preview.Schedule) != 24 {
		t.Fatalf("cotización con %d filas, se esperaban 24", len(preview.Schedule))
	}

	// La cotización no persiste nada.
	var loans int64
	if err := db.Model(&models.Loan{}).Count(&loans).Error; err != nil {
		t.Fatal(err)
	}
	if loans != 0 {
		t.Errorf("la cotización escribió %d préstamos", loans)
	}

	// El calendario real coincide fila a fila con la cotización.
	loan := createActiveLoan(t, db, client.ID, &associate.ID, "10000", 24, approvedOn)
	var payments []models.Payment
	if err := db.Where("loan_id = ?", loan.ID).Order("payment_number ASC").Find(&payments).Error; err != nil {
		t.Fatal(err)
	}
	for i, p := range payments {
		row := preview.Schedule[i]
		if !p.PaymentDueDate.Equal(row.PaymentDueDate) {
			t.Errorf("fila %d: vencimiento %s, cotizado %s", i+1,
				p.PaymentDueDate.Format("2006-01-02"), row.PaymentDueDate.Format("2006-01-02"))
		}
		if !p.PrincipalAmount.Equal(row.PrincipalAmount) || !p.BalanceRemaining.Equal(row.BalanceRemaining) {
			t.Errorf("fila %d: amortización distinta a la cotizada", i+1)
		}
	}
}

func TestApproveLoanRequiresPending(t *testing.T) {
	db := setupTestDB(t)
	client := createClient(t, db, "cliente1")
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	loan := createActiveLoan(t, db, client.ID, &associate.ID, "1000", 12,
		time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC))

	svc := NewLoanService(db)
	_, err := svc.ApproveLoan(loan.ID, 1, "")
	if kind := serviceErrorKind(t, err); kind != KindInvalidTransition {
		t.Errorf("clase = %s, se esperaba INVALID_TRANSITION", kind)
	}
}
