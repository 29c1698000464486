package http

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/bitacora"
)

// ListBitacora devuelve las últimas entradas de auditoría.
func (h *Handler) ListBitacora(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entradas, err := h.bitacora.Recientes(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("bitácora: fallo al consultar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}
	if entradas == nil {
		entradas = []bitacora.Entrada{}
	}

	WriteJSON(w, http.StatusOK, entradas)
}
