package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/evento"
	"github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/storage"
)

const maxActaBytes = 10 << 20

// ListEventos devuelve los eventos recientes.
func (h *Handler) ListEventos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	eventos, err := h.eventos.Listar(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("eventos: fallo al listar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}
	if eventos == nil {
		eventos = []evento.Evento{}
	}

	WriteJSON(w, http.StatusOK, eventos)
}

type createEventoRequest struct {
	Titulo    string    `json:"titulo"`
	Inicio    time.Time `json:"inicio"`
	Asignados []struct {
		UsuarioID   string `json:"usuarioId"`
		Responsable bool   `json:"responsable"`
	} `json:"asignados"`
}

// CreateEvento registra una comisión con sus asignados.
func (h *Handler) CreateEvento(w http.ResponseWriter, r *http.Request) {
	actor, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	var req createEventoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	if req.Inicio.IsZero() {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "fecha de inicio obligatoria", nil)
		return
	}

	asignados := make([]evento.Asignado, 0, len(req.Asignados))
	for _, a := range req.Asignados {
		id, err := uuid.Parse(a.UsuarioID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "usuarioId inválido en asignados", nil)
			return
		}
		asignados = append(asignados, evento.Asignado{UsuarioID: id, Responsable: a.Responsable})
	}

	created, err := h.eventos.Crear(r.Context(), req.Titulo, req.Inicio, asignados, actor)
	if err != nil {
		if errors.Is(err, evento.ErrSinResponsable) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		log.Error().Err(err).Msg("eventos: fallo al crear")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// AprobarEvento habilita el evento para los barridos de notificación.
func (h *Handler) AprobarEvento(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.eventos.Aprobar(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "evento no encontrado", nil)
			return
		}
		log.Error().Err(err).Msg("eventos: fallo al aprobar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// RegistrarAsistencia registra el check-in del usuario autenticado.
func (h *Handler) RegistrarAsistencia(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.eventos.RegistrarAsistencia(r.Context(), id, subject); err != nil {
		if errors.Is(err, evento.ErrNoAsignado) {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		}
		log.Error().Err(err).Msg("eventos: fallo al registrar asistencia")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SubirActa recibe el PDF del acta, lo sube al almacenamiento y asocia la URL
// resultante al evento.
func (h *Handler) SubirActa(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if _, err := h.eventos.Get(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "evento no encontrado", nil)
			return
		}
		log.Error().Err(err).Msg("eventos: fallo al cargar evento")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	body, contentType, err := leerActa(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if len(body) > maxActaBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "el acta no puede superar 10MB", nil)
		return
	}

	result, err := h.storage.Upload(r.Context(), storage.UploadInput{
		Key:         fmt.Sprintf("actas/%s.pdf", id),
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		log.Error().Err(err).Msg("eventos: fallo al subir acta")
		WriteError(w, http.StatusBadGateway, "STORAGE", "no se pudo almacenar el acta", nil)
		return
	}

	if err := h.eventos.GuardarActa(r.Context(), id, result.URL); err != nil {
		log.Error().Err(err).Msg("eventos: fallo al asociar acta")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"url": result.URL})
}

// leerActa acepta el archivo como multipart (campo "acta") o como cuerpo crudo.
func leerActa(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(maxActaBytes); err != nil {
			return nil, "", errors.New("formulario multipart inválido")
		}
		file, header, err := r.FormFile("acta")
		if err != nil {
			return nil, "", errors.New("campo de archivo \"acta\" ausente")
		}
		defer file.Close()

		body, err := io.ReadAll(io.LimitReader(file, maxActaBytes+1))
		if err != nil {
			return nil, "", errors.New("no se pudo leer el archivo")
		}
		if len(body) == 0 {
			return nil, "", errors.New("archivo vacío")
		}
		ct := header.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/pdf"
		}
		return body, ct, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxActaBytes+1))
	if err != nil {
		return nil, "", errors.New("no se pudo leer el archivo")
	}
	if len(body) == 0 {
		return nil, "", errors.New("archivo vacío")
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	return body, contentType, nil
}
