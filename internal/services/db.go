// credinet/internal/services/db.go
package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// epsilon es la tolerancia monetaria: por debajo de un centavo un saldo se
// considera liquidado.
var epsilon = decimal.New(1, -2)

// lockForUpdate aplica SELECT ... FOR UPDATE sobre Postgres. SQLite (usado en
// pruebas) no acepta la cláusula y serializa las escrituras por sí mismo.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
