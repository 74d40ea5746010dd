// credinet/models/user.go
package models

import "gorm.io/gorm"

// User representa cualquier actor del sistema: administradores, auxiliares,
// asociados (distribuidoras con línea de crédito) y clientes finales.
type User struct {
	gorm.Model
	Login        string `json:"login" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	FullName     string `json:"fullName"`
	// IsDefaulter marca a un cliente moroso; bloquea nuevas solicitudes de préstamo.
	IsDefaulter bool   `json:"isDefaulter" gorm:"default:false"`
	Roles       []Role `json:"roles" gorm:"many2many:user_roles;"`
}

// Nombres de rol del catálogo.
const (
	RoleAdmin     = "admin"
	RoleAssociate = "asociado"
	RoleAuxiliary = "auxiliar_administrativo"
)

// Role es el catálogo de roles: admin, asociado, auxiliar_administrativo.
type Role struct {
	gorm.Model
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (User) TableName() string { return "users" }
func (Role) TableName() string { return "roles" }
