package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/notify"
)

// suscripcionRequest refleja el JSON que produce PushManager.subscribe en el
// navegador.
type suscripcionRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
	UserAgent string `json:"userAgent"`
}

// SaveSuscripcion registra (o refresca) el dispositivo del usuario autenticado.
func (h *Handler) SaveSuscripcion(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	var req suscripcionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	endpoint := strings.TrimSpace(req.Subscription.Endpoint)
	if endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "endpoint, p256dh y auth son obligatorios", nil)
		return
	}

	sub := notify.Suscripcion{
		UsuarioID: subject,
		Endpoint:  endpoint,
		P256dh:    req.Subscription.Keys.P256dh,
		Auth:      req.Subscription.Keys.Auth,
		UserAgent: req.UserAgent,
	}
	if err := h.notify.RegistrarSuscripcion(r.Context(), sub); err != nil {
		log.Error().Err(err).Msg("push: no se pudo registrar la suscripción")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

type deleteSuscripcionRequest struct {
	Endpoint string `json:"endpoint"`
}

// DeleteSuscripcion elimina el dispositivo del propio usuario; nadie puede
// borrar endpoints ajenos.
func (h *Handler) DeleteSuscripcion(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	var req deleteSuscripcionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "endpoint obligatorio", nil)
		return
	}

	if err := h.notify.EliminarSuscripcion(r.Context(), subject, strings.TrimSpace(req.Endpoint)); err != nil {
		log.Error().Err(err).Msg("push: no se pudo eliminar la suscripción")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type difusionRequest struct {
	Titulo string `json:"titulo"`
	Cuerpo string `json:"cuerpo"`
}

// Difusion envía el mensaje a todos los dispositivos registrados. Cero
// destinatarios es un éxito con total en cero.
func (h *Handler) Difusion(w http.ResponseWriter, r *http.Request) {
	var req difusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	if strings.TrimSpace(req.Titulo) == "" || strings.TrimSpace(req.Cuerpo) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "título y cuerpo son obligatorios", nil)
		return
	}

	resumen, err := h.notify.Difundir(r.Context(), req.Titulo, req.Cuerpo)
	if err != nil {
		log.Error().Err(err).Msg("push: difusión falló")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, resumen)
}

type envioRequest struct {
	UsuarioID string `json:"usuarioId"`
	Titulo    string `json:"titulo"`
	Cuerpo    string `json:"cuerpo"`
	URL       string `json:"url"`
}

// EnvioDirigido entrega un mensaje puntual a los dispositivos de una cuenta.
func (h *Handler) EnvioDirigido(w http.ResponseWriter, r *http.Request) {
	var req envioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}

	destino, err := uuid.Parse(req.UsuarioID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "usuarioId inválido", nil)
		return
	}
	if strings.TrimSpace(req.Titulo) == "" || strings.TrimSpace(req.Cuerpo) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "título y cuerpo son obligatorios", nil)
		return
	}

	resultados, err := h.notify.EnviarAUsuario(r.Context(), destino, req.Titulo, req.Cuerpo, req.URL)
	if err != nil {
		if errors.Is(err, notify.ErrSinSuscripciones) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "el usuario no tiene dispositivos registrados", nil)
			return
		}
		log.Error().Err(err).Msg("push: envío dirigido falló")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"results": resultados})
}

// CronSweep ejecuta ambos barridos bajo demanda de un cron externo. El secreto
// compartido se compara en tiempo constante.
func (h *Handler) CronSweep(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		WriteError(w, http.StatusUnauthorized, "AUTH", "secreto ausente", nil)
		return
	}
	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.cfg.CronSecret)) != 1 {
		WriteError(w, http.StatusUnauthorized, "AUTH", "secreto inválido", nil)
		return
	}

	resumen, err := h.notify.RunOnce(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("push: barrido por cron falló")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"procesados": resumen})
}
