// credinet/internal/services/statement_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
)

func TestGenerateForPeriodAggregates(t *testing.T) {
	db := setupTestDB(t)
	client1 := createClient(t, db, "cliente1")
	client2 := createClient(t, db, "cliente2")
	associate := createAssociate(t, db, "asociada1", "100000", "0", "0")

	// Dos préstamos de la misma asociada con parcialidad el 28 de febrero.
	loan1 := createActiveLoan(t, db, client1.ID, &associate.ID, "10000", 24,
		time.Date(2025, time.January, 27, 10, 0, 0, 0, time.UTC))
	loan2 := createActiveLoan(t, db, client2.ID, &associate.ID, "1000", 12,
		time.Date(2025, time.January, 27, 10, 0, 0, 0, time.UTC))

	svc := NewCutPeriodService(db)
	period := periodByCode(t, db, "2025-Q04")
	if _, err := svc.Transition(period.ID, models.CutPeriodStatusCutoff, false, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(period.ID, models.CutPeriodStatusCollecting, false, 1); err != nil {
		t.Fatal(err)
	}

	var statement models.Statement
	err := db.Where("associate_user_id = ? AND cut_period_id = ?", associate.ID, period.ID).
		First(&statement).Error
	if err != nil {
		t.Fatalf("no se generó el estado de cuenta: %v", err)
	}

	if want := fmt.Sprintf("ST-2025-Q04-%04d", associate.ID); statement.StatementNumber != want {
		t.Errorf("número = %s, se esperaba %s", statement.StatementNumber, want)
	}
	if statement.TotalPaymentsCount != 2 {
		t.Errorf("parcialidades = %d, se esperaban 2 (una por préstamo)", statement.TotalPaymentsCount)
	}
	wantCollected := loan1.BiweeklyPayment.Add(loan2.BiweeklyPayment)
	if !statement.TotalAmountCollected.Equal(wantCollected) {
		t.Errorf("cobrado = %s, se esperaba %s", statement.TotalAmountCollected, wantCollected)
	}
	wantToCredicuenta := loan1.AssociatePaymentPerBiweek.Add(loan2.AssociatePaymentPerBiweek)
	if !statement.TotalToCredicuenta.Equal(wantToCredicuenta) {
		t.Errorf("a CrediCuenta = %s, se esperaba %s", statement.TotalToCredicuenta, wantToCredicuenta)
	}
	if !statement.CommissionEarned.Equal(wantCollected.Sub(wantToCredicuenta)) {
		t.Errorf("comisión ganada inconsistente: %s", statement.CommissionEarned)
	}
	if statement.Status != models.StatementStatusCollecting {
		t.Errorf("estado = %s, se esperaba COLLECTING", statement.Status)
	}

	// Regenerar no duplica.
	stSvc := NewStatementService(db)
	created, err := stSvc.GenerateForPeriod(db, periodByCode(t, db, "2025-Q04"))
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Errorf("la regeneración creó %d estados de cuenta", created)
	}
}

func TestGenerateForPeriodSkipsCancelledLoans(t *testing.T) {
	db := setupTestDB(t)
	client1 := createClient(t, db, "cliente1")
	client2 := createClient(t, db, "cliente2")
	cancelledAssociate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	activeAssociate := createAssociate(t, db, "asociada2", "50000", "0", "0")

	// Primera parcialidad de ambos préstamos: 15 de febrero (2025-Q03).
	approvedOn := time.Date(2025, time.January, 27, 10, 0, 0, 0, time.UTC)
	cancelled := createActiveLoan(t, db, client1.ID, &cancelledAssociate.ID, "2000", 4, approvedOn)
	active := createActiveLoan(t, db, client2.ID, &activeAssociate.ID, "2000", 4, approvedOn)

	// Cancelación antes de la primera parcialidad: libera todo el pendiente.
	loanSvc := NewLoanService(db)
	if _, err := loanSvc.CancelLoan(cancelled.ID, 1, "Cliente desistió"); err != nil {
		t.Fatalf("error inesperado al cancelar: %v", err)
	}
	profile := &models.AssociateProfile{}
	if err := db.Where("user_id = ?", cancelledAssociate.ID).First(profile).Error; err != nil {
		t.Fatal(err)
	}
	if !profile.PendingPaymentsTotal.IsZero() {
		t.Fatalf("pending = %s tras cancelar, se esperaba 0", profile.PendingPaymentsTotal)
	}

	svc := NewCutPeriodService(db)
	period := periodByCode(t, db, "2025-Q03")
	if _, err := svc.Transition(period.ID, models.CutPeriodStatusCutoff, false, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(period.ID, models.CutPeriodStatusCollecting, false, 1); err != nil {
		t.Fatal(err)
	}

	// La asociada del préstamo cancelado no recibe estado de cuenta; la del
	// préstamo activo sí.
	var count int64
	err := db.Model(&models.Statement{}).
		Where("associate_user_id = ? AND cut_period_id = ?", cancelledAssociate.ID, period.ID).
		Count(&count).Error
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("se facturó a la asociada del préstamo cancelado (%d estados de cuenta)", count)
	}
	var statement models.Statement
	err = db.Where("associate_user_id = ? AND cut_period_id = ?", activeAssociate.ID, period.ID).
		First(&statement).Error
	if err != nil {
		t.Fatalf("no se generó el estado de cuenta del préstamo activo: %v", err)
	}
	if !statement.TotalToCredicuenta.Equal(active.AssociatePaymentPerBiweek) {
		t.Errorf("a CrediCuenta = %s, se esperaba %s", statement.TotalToCredicuenta, active.AssociatePaymentPerBiweek)
	}

	// Tampoco es cartera vencida.
	paySvc := NewPaymentService(db)
	paySvc.Now = fixedNow(2025, time.June, 1)
	overdue, err := paySvc.ListOverdue()
	if err != nil {
		t.Fatal(err)
	}
	for i := range overdue {
		if overdue[i].LoanID == cancelled.ID {
			t.Errorf("la parcialidad %d del préstamo cancelado aparece como vencida", overdue[i].PaymentNumber)
		}
	}
	if len(overdue) != 4 {
		t.Errorf("hay %d parcialidades vencidas, se esperaban las 4 del préstamo activo", len(overdue))
	}
}

func TestPayStatementFullAndPartial(t *testing.T) {
	db := setupTestDB(t)
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	period := periodByCode(t, db, "2025-Q04")

	statement := models.Statement{
		StatementNumber:    "ST-2025-Q04-0001",
		AssociateUserID:    associate.ID,
		CutPeriodID:        period.ID,
		TotalToCredicuenta: mustDec(t, "5000"),
		Status:             models.StatementStatusCollecting,
		DueDate:            period.PeriodEndDate,
		GeneratedAt:        time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&statement).Error; err != nil {
		t.Fatal(err)
	}

	svc := NewStatementService(db)
	svc.Now = fixedNow(2025, time.March, 10)

	// Abono parcial.
	paid, err := svc.PayStatement(PayStatementInput{
		StatementID:     statement.ID,
		PaidAmount:      mustDec(t, "2000"),
		PaidDate:        time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		PaymentMethodID: 1,
	})
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if paid.Status != models.StatementStatusPartialPaid {
		t.Errorf("estado = %s, se esperaba PARTIAL_PAID", paid.Status)
	}

	// Resto.
	paid, err = svc.PayStatement(PayStatementInput{
		StatementID:     statement.ID,
		PaidAmount:      mustDec(t, "3000"),
		PaidDate:        time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		PaymentMethodID: 1,
	})
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if paid.Status != models.StatementStatusPaid {
		t.Errorf("estado = %s, se esperaba PAID", paid.Status)
	}
	if !paid.Remaining().IsZero() {
		t.Errorf("restante = %s, se esperaba 0", paid.Remaining())
	}

	// Un pago más se rechaza.
	_, err = svc.PayStatement(PayStatementInput{
		StatementID:     statement.ID,
		PaidAmount:      mustDec(t, "1"),
		PaidDate:        time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
		PaymentMethodID: 1,
	})
	if kind := serviceErrorKind(t, err); kind != KindAlreadyApplied {
		t.Errorf("clase = %s, se esperaba ALREADY_APPLIED", kind)
	}
}

func TestApplyLateFeeOnce(t *testing.T) {
	db := setupTestDB(t)
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	period := periodByCode(t, db, "2025-Q04")

	statement := models.Statement{
		StatementNumber:    "ST-2025-Q04-0001",
		AssociateUserID:    associate.ID,
		CutPeriodID:        period.ID,
		TotalToCredicuenta: mustDec(t, "5000"),
		Status:             models.StatementStatusCollecting,
		DueDate:            period.PeriodEndDate, // 2025-03-07
		GeneratedAt:        time.Date(2025, time.February, 23, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&statement).Error; err != nil {
		t.Fatal(err)
	}

	svc := NewStatementService(db)

	// Antes del vencimiento no hay recargo.
	svc.Now = fixedNow(2025, time.March, 5)
	if _, err := svc.ApplyLateFee(statement.ID, mustDec(t, "250"), 1); err == nil {
		t.Error("recargo aplicado antes del vencimiento")
	}

	// Vencido: se aplica una sola vez.
	svc.Now = fixedNow(2025, time.March, 20)
	updated, err := svc.ApplyLateFee(statement.ID, mustDec(t, "250"), 1)
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if updated.Status != models.StatementStatusOverdue {
		t.Errorf("estado = %s, se esperaba OVERDUE", updated.Status)
	}
	if !updated.Remaining().Equal(mustDec(t, "5250")) {
		t.Errorf("restante = %s, se esperaba 5250", updated.Remaining())
	}

	_, err = svc.ApplyLateFee(statement.ID, mustDec(t, "250"), 1)
	if kind := serviceErrorKind(t, err); kind != KindAlreadyApplied {
		t.Errorf("clase = %s, se esperaba ALREADY_APPLIED", kind)
	}

	// El pago completo ahora incluye el recargo.
	svc.Now = fixedNow(2025, time.March, 21)
	paid, err := svc.PayStatement(PayStatementInput{
		StatementID:     statement.ID,
		PaidAmount:      mustDec(t, "5250"),
		PaidDate:        time.Date(2025, time.March, 21, 0, 0, 0, 0, time.UTC),
		PaymentMethodID: 1,
	})
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if paid.Status != models.StatementStatusPaid {
		t.Errorf("estado = %s, se esperaba PAID", paid.Status)
	}
}

func TestListStatementsOverdueFilter(t *testing.T) {
	db := setupTestDB(t)
	associate := createAssociate(t, db, "asociada1", "50000", "0", "0")
	period := periodByCode(t, db, "2025-Q04")

	for i, status := range []string{models.StatementStatusCollecting, models.StatementStatusPaid} {
		statement := models.Statement{
			StatementNumber:    fmt.Sprintf("ST-2025-Q04-%04d", i+1),
			AssociateUserID:    associate.ID,
			CutPeriodID:        uint(int(period.ID) + i), // períodos distintos para el índice único
			TotalToCredicuenta: mustDec(t, "1000"),
			Status:             status,
			DueDate:            period.PeriodEndDate,
			GeneratedAt:        time.Date(2025, time.February, 23, 0, 0, 0, 0, time.UTC),
		}
		if err := db.Create(&statement).Error; err != nil {
			t.Fatal(err)
		}
	}

	svc := NewStatementService(db)
	svc.Now = fixedNow(2025, time.April, 1)

	overdue, err := svc.ListStatements(StatementFilters{OverdueOnly: true})
	if err != nil {
		t.Fatalf("error inesperado: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("hay %d vencidos, se esperaba 1 (el PAID no cuenta)", len(overdue))
	}
	if overdue[0].Status != models.StatementStatusCollecting {
		t.Errorf("estado = %s, se esperaba COLLECTING", overdue[0].Status)
	}
}
