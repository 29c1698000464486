package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/alcaldiadigital/intranet/internal/auth"
	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/util"
)

var (
	// ErrRolInvalido indica un rol fuera del conjunto cerrado.
	ErrRolInvalido = errors.New("rol inválido")
)

type usuarioRepository interface {
	ListUsuarios(ctx context.Context) ([]repo.Usuario, error)
	InsertUsuario(ctx context.Context, arg repo.InsertUsuarioParams) (repo.Usuario, error)
	UpdateUsuario(ctx context.Context, id uuid.UUID, arg repo.UpdateUsuarioParams) (repo.Usuario, error)
}

// UsuarioService administra las cuentas del personal.
type UsuarioService struct {
	repo     usuarioRepository
	bitacora *bitacora.Service
}

// NewUsuarioService crea el servicio de cuentas.
func NewUsuarioService(r usuarioRepository, bit *bitacora.Service) *UsuarioService {
	return &UsuarioService{repo: r, bitacora: bit}
}

// Listar devuelve todas las cuentas.
func (s *UsuarioService) Listar(ctx context.Context) ([]repo.Usuario, error) {
	return s.repo.ListUsuarios(ctx)
}

// Crear da de alta una cuenta activa con contraseña hasheada.
func (s *UsuarioService) Crear(ctx context.Context, nombre, email, contrasena string, rol repo.Rol, actorID uuid.UUID) (repo.Usuario, error) {
	if err := util.RequireString(nombre, "nombre"); err != nil {
		return repo.Usuario{}, err
	}
	if err := util.ValidateEmail(email); err != nil {
		return repo.Usuario{}, err
	}
	if err := util.ValidatePassword(contrasena); err != nil {
		return repo.Usuario{}, err
	}
	if !rol.Valido() {
		return repo.Usuario{}, ErrRolInvalido
	}

	hash, err := auth.Hash(contrasena)
	if err != nil {
		return repo.Usuario{}, err
	}

	user, err := s.repo.InsertUsuario(ctx, repo.InsertUsuarioParams{
		ID:             uuid.New(),
		Nombre:         nombre,
		Email:          email,
		ContrasenaHash: hash,
		Rol:            rol,
	})
	if err != nil {
		return repo.Usuario{}, err
	}

	s.bitacora.Registrar(ctx, bitacora.AccionUsuarioCreado, user.Email, "usuarios", &actorID)
	return user, nil
}

// Actualizar aplica cambios parciales: nombre, rol o el flag activo. La
// desactivación es el mecanismo de baja; no hay borrado físico.
func (s *UsuarioService) Actualizar(ctx context.Context, id uuid.UUID, arg repo.UpdateUsuarioParams, actorID uuid.UUID) (repo.Usuario, error) {
	if arg.Rol != nil && !arg.Rol.Valido() {
		return repo.Usuario{}, ErrRolInvalido
	}

	user, err := s.repo.UpdateUsuario(ctx, id, arg)
	if err != nil {
		return repo.Usuario{}, err
	}

	s.bitacora.Registrar(ctx, bitacora.AccionUsuarioActualizado, user.Email, "usuarios", &actorID)
	return user, nil
}
