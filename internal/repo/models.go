package repo

import (
	"time"

	"github.com/google/uuid"
)

// Rol es el conjunto cerrado de roles del sistema.
type Rol string

const (
	// RolSuper es el rol privilegiado, exento del control de horario.
	RolSuper Rol = "SUPER"
	// RolAdmin administra módulos sin exención de horario.
	RolAdmin Rol = "ADMIN"
	// RolFuncionario es el rol estándar.
	RolFuncionario Rol = "FUNCIONARIO"
)

// Valido indica si el rol pertenece al conjunto cerrado.
func (r Rol) Valido() bool {
	switch r {
	case RolSuper, RolAdmin, RolFuncionario:
		return true
	}
	return false
}

// Exento indica si el rol queda fuera del control de horario laboral.
func (r Rol) Exento() bool {
	return r == RolSuper
}

// Usuario representa una cuenta del personal municipal.
type Usuario struct {
	ID             uuid.UUID
	Nombre         string
	Email          string
	ContrasenaHash string
	Rol            Rol
	Activo         bool
	CreadoEn       time.Time
}

// TokenRefresh modela la tabla de refresh tokens.
type TokenRefresh struct {
	ID         uuid.UUID
	Subject    uuid.UUID
	TokenHash  string
	Expiracion time.Time
	CreadoEn   time.Time
	Revocado   bool
}
