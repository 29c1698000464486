package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/service"
)

// usuarioDTO evita exponer el hash de contraseña en las respuestas.
type usuarioDTO struct {
	ID       string    `json:"id"`
	Nombre   string    `json:"nombre"`
	Email    string    `json:"email"`
	Rol      string    `json:"rol"`
	Activo   bool      `json:"activo"`
	CreadoEn time.Time `json:"creadoEn"`
}

func toUsuarioDTO(u repo.Usuario) usuarioDTO {
	return usuarioDTO{
		ID:       u.ID.String(),
		Nombre:   u.Nombre,
		Email:    u.Email,
		Rol:      string(u.Rol),
		Activo:   u.Activo,
		CreadoEn: u.CreadoEn,
	}
}

// ListUsuarios devuelve todas las cuentas del personal.
func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	usuarios, err := h.usuarios.Listar(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("usuarios: fallo al listar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	out := make([]usuarioDTO, 0, len(usuarios))
	for _, u := range usuarios {
		out = append(out, toUsuarioDTO(u))
	}
	WriteJSON(w, http.StatusOK, out)
}

type createUsuarioRequest struct {
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Contrasena string `json:"contrasena"`
	Rol        string `json:"rol"`
}

// CreateUsuario da de alta una cuenta nueva.
func (h *Handler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	actor, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	var req createUsuarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}

	rol := repo.Rol(strings.ToUpper(strings.TrimSpace(req.Rol)))
	user, err := h.usuarios.Crear(r.Context(), req.Nombre, req.Email, req.Contrasena, rol, actor)
	if err != nil {
		// Los validadores devuelven mensajes aptos para el cliente.
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, toUsuarioDTO(user))
}

type updateUsuarioRequest struct {
	Nombre *string `json:"nombre"`
	Rol    *string `json:"rol"`
	Activo *bool   `json:"activo"`
}

// UpdateUsuario aplica cambios parciales; desactivar la cuenta es la baja.
func (h *Handler) UpdateUsuario(w http.ResponseWriter, r *http.Request) {
	actor, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var req updateUsuarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}

	arg := repo.UpdateUsuarioParams{Nombre: req.Nombre, Activo: req.Activo}
	if req.Rol != nil {
		rol := repo.Rol(strings.ToUpper(strings.TrimSpace(*req.Rol)))
		arg.Rol = &rol
	}

	user, err := h.usuarios.Actualizar(r.Context(), id, arg, actor)
	if err != nil {
		if errors.Is(err, service.ErrRolInvalido) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cuenta no encontrada", nil)
			return
		}
		log.Error().Err(err).Msg("usuarios: fallo al actualizar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, toUsuarioDTO(user))
}
