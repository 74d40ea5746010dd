// credinet/internal/bootstrap/seed.go
package bootstrap

import (
	"log/slog"
	"os"
	"time"

	"github.com/JairFC/credinet-v2-sub000/internal/services"
	"github.com/JairFC/credinet-v2-sub000/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate crea o actualiza el esquema completo del motor.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
}

// Seed deja los catálogos mínimos listos: roles, métodos de pago, perfiles de
// tasas, el calendario de cortes del año en curso y el siguiente, y el usuario
// administrador inicial si viene configurado. Idempotente.
func Seed(db *gorm.DB) error {
	if err := seedRoles(db); err != nil {
		return err
	}
	if err := seedPaymentMethods(db); err != nil {
		return err
	}
	if err := seedRateProfiles(db); err != nil {
		return err
	}

	// También el año anterior: del 1 al 7 de enero el período vigente es el
	// Q24 del año pasado.
	year := time.Now().UTC().Year()
	periods := services.NewCutPeriodService(db)
	created, err := periods.BackfillPeriods(year-1, year, year+1)
	if err != nil {
		return err
	}
	if created > 0 {
		slog.Info("Calendario de cortes generado", "periods_created", created)
	}

	return seedAdminUser(db)
}

func seedRoles(db *gorm.DB) error {
	for _, name := range []string{models.RoleAdmin, models.RoleAssociate, models.RoleAuxiliary} {
		role := models.Role{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedPaymentMethods(db *gorm.DB) error {
	for _, name := range []string{"Efectivo", "Transferencia", "Depósito bancario"} {
		method := models.PaymentMethod{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&method).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedRateProfiles(db *gorm.DB) error {
	estandarInterest := decimal.NewFromInt(40)
	estandarCommission := decimal.NewFromInt(10)
	premiumInterest := decimal.NewFromInt(30)
	premiumCommission := decimal.NewFromInt(8)
	legacyMin := decimal.NewFromInt(1000)
	legacyMax := decimal.NewFromInt(5000)

	profiles := []models.RateProfile{
		{
			Code:                  "estandar",
			Name:                  "Perfil estándar",
			CalculationMethod:     models.CalculationMethodFormula,
			InterestRatePercent:   &estandarInterest,
			CommissionRatePercent: &estandarCommission,
			Enabled:               true,
		},
		{
			Code:                  "premium",
			Name:                  "Perfil premium",
			CalculationMethod:     models.CalculationMethodFormula,
			InterestRatePercent:   &premiumInterest,
			CommissionRatePercent: &premiumCommission,
			Enabled:               true,
			ValidTerms:            "12,24,36,48",
		},
		{
			Code:              "legacy",
			Name:              "Tabla histórica",
			CalculationMethod: models.CalculationMethodTableLookup,
			Enabled:           true,
			ValidTerms:        "12,24",
			MinAmount:         &legacyMin,
			MaxAmount:         &legacyMax,
		},
	}
	for i := range profiles {
		if err := db.Where("code = ?", profiles[i].Code).FirstOrCreate(&profiles[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdminUser(db *gorm.DB) error {
	login := os.Getenv("ADMIN_LOGIN")
	password := os.Getenv("ADMIN_PASSWORD")
	if login == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("login = ?", login).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	var adminRole models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}
	admin := models.User{
		Login:        login,
		PasswordHash: string(hash),
		FullName:     "Administración CrediCuenta",
		Roles:        []models.Role{adminRole},
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	slog.Info("Usuario administrador inicial creado", "login", login)
	return nil
}
