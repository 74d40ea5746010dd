// credinet/internal/services/testutil_test.go
package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JairFC/credinet-v2-sub000/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// setupTestDB abre una base sqlite en memoria con el esquema completo y el
// calendario de cortes 2024-2026 ya generado.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("no se pudo abrir la base de pruebas: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.PaymentMethod{},
		&models.AssociateProfile{},
		&models.RateProfile{},
		&models.Loan{},
		&models.Payment{},
		&models.CutPeriod{},
		&models.Statement{},
		&models.AccumulatedBalance{},
		&models.DebtPayment{},
	)
	if err != nil {
		t.Fatalf("no se pudo migrar el esquema de pruebas: %v", err)
	}

	periods := NewCutPeriodService(db)
	if _, err := periods.BackfillPeriods(2024, 2025, 2026); err != nil {
		t.Fatalf("no se pudo generar el calendario de cortes: %v", err)
	}
	return db
}

// createClient da de alta un cliente final.
func createClient(t *testing.T, db *gorm.DB, login string) *models.User {
	t.Helper()
	user := &models.User{Login: login, PasswordHash: "x", FullName: "Cliente " + login}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("no se pudo crear el cliente: %v", err)
	}
	return user
}

// createAssociate da de alta una asociada con su perfil de crédito.
func createAssociate(t *testing.T, db *gorm.DB, login string, limit, pending, debt string) *models.User {
	t.Helper()
	user := &models.User{Login: login, PasswordHash: "x", FullName: "Asociada " + login}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("no se pudo crear la asociada: %v", err)
	}
	profile := &models.AssociateProfile{
		UserID:               user.ID,
		CreditLimit:          mustDec(t, limit),
		PendingPaymentsTotal: mustDec(t, pending),
		ConsolidatedDebt:     mustDec(t, debt),
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("no se pudo crear el perfil de crédito: %v", err)
	}
	return user
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal inválido %q: %v", s, err)
	}
	return d
}

func fixedNow(y int, m time.Month, d int) func() time.Time {
	return func() time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}
}

// createActiveLoan crea y aprueba un préstamo custom en la fecha dada.
func createActiveLoan(t *testing.T, db *gorm.DB, clientID uint, associateID *uint, amount string, term int, approvedOn time.Time) *models.Loan {
	t.Helper()
	svc := NewLoanService(db)
	svc.Now = func() time.Time { return approvedOn }

	interest := mustDec(t, "4.00")
	commission := mustDec(t, "2.00")
	loan, err := svc.CreateLoan(CreateLoanInput{
		ClientID:       clientID,
		AssociateID:    associateID,
		Amount:         mustDec(t, amount),
		TermBiweeks:    term,
		ProfileCode:    models.ProfileCodeCustom,
		InterestRate:   &interest,
		CommissionRate: &commission,
	})
	if err != nil {
		t.Fatalf("no se pudo crear el préstamo: %v", err)
	}
	approved, err := svc.ApproveLoan(loan.ID, 1, "")
	if err != nil {
		t.Fatalf("no se pudo aprobar el préstamo: %v", err)
	}
	return approved
}

// serviceErrorKind extrae la clase de error de negocio o falla la prueba.
func serviceErrorKind(t *testing.T, err error) Kind {
	t.Helper()
	if err == nil {
		t.Fatal("se esperaba un error de negocio, no hubo error")
	}
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("se esperaba un error de negocio, hubo %v", err)
	}
	return se.Kind
}
