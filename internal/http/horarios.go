package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/horario"
	"github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/repo"
)

// GetHorario carga una política por nombre; sin parámetro devuelve "Sistema".
func (h *Handler) GetHorario(w http.ResponseWriter, r *http.Request) {
	nombre := strings.TrimSpace(r.URL.Query().Get("nombre"))
	if nombre == "" {
		nombre = horario.NombreSistema
	}

	politica, err := h.horarios.GetByNombre(r.Context(), nombre)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "horario no encontrado", nil)
			return
		}
		log.Error().Err(err).Msg("horarios: fallo al consultar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, politica)
}

type updateHorarioRequest struct {
	Nombre  string          `json:"nombre"`
	Dias    []int           `json:"dias"`
	Entrada horario.HoraDia `json:"entrada"`
	Salida  horario.HoraDia `json:"salida"`
}

// UpdateHorario crea o reemplaza una política de horario.
func (h *Handler) UpdateHorario(w http.ResponseWriter, r *http.Request) {
	var req updateHorarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	if strings.TrimSpace(req.Nombre) == "" {
		req.Nombre = horario.NombreSistema
	}

	politica := horario.Horario{
		Nombre:  strings.TrimSpace(req.Nombre),
		Dias:    req.Dias,
		Entrada: req.Entrada,
		Salida:  req.Salida,
	}
	if err := politica.Validar(); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	saved, err := h.horarios.Upsert(r.Context(), politica)
	if err != nil {
		log.Error().Err(err).Msg("horarios: fallo al guardar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	if actor, err := uuid.Parse(middleware.GetSubject(r.Context())); err == nil {
		h.bitacora.Registrar(r.Context(), bitacora.AccionHorarioActualizado, saved.Nombre, "horarios", &actor)
	}

	WriteJSON(w, http.StatusOK, saved)
}
