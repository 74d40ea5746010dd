// credinet/models/catalog.go
package models

import "gorm.io/gorm"

// PaymentMethod es el catálogo de formas de pago (efectivo, transferencia, etc.).
type PaymentMethod struct {
	gorm.Model
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
