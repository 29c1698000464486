package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/service"
)

const refreshCookieName = "intranet_refresh"

type loginRequest struct {
	Email      string `json:"email"`
	Contrasena string `json:"contrasena"`
}

type loginResponse struct {
	AccessToken string                 `json:"accessToken"`
	Destino     string                 `json:"destino"`
	Usuario     *service.PerfilUsuario `json:"usuario"`
}

// Login ejecuta la compuerta de admisión y emite tokens solo si todas las
// etapas pasan. Cualquier rama de fallo expira la cookie de refresh para que
// el navegador no conserve una sesión previa.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cuerpo inválido", nil)
		return
	}
	if req.Email == "" || req.Contrasena == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email y contraseña son obligatorios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Contrasena, time.Now())
	if err != nil {
		h.clearRefreshCookie(w)
		status, code, message := translateLoginError(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("login: fallo inesperado")
		}
		WriteError(w, status, code, message, nil)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		Destino:     result.Destino,
		Usuario:     result.Profile,
	})
}

// translateLoginError mapea los sentinelas del servicio a mensajes estables
// para el frontend. Todo error desconocido se degrada a un 500 genérico.
func translateLoginError(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrDemasiadosIntentos):
		return http.StatusTooManyRequests, "RATE_LIMIT", "Demasiados intentos. Espere unos minutos e intente de nuevo."
	case errors.Is(err, service.ErrCredencialesInvalidas):
		return http.StatusUnauthorized, "AUTH", "Correo o contraseña incorrectos."
	case errors.Is(err, service.ErrCuentaDesactivada):
		return http.StatusForbidden, "AUTH", "Su cuenta está desactivada. Contacte al administrador."
	case errors.Is(err, service.ErrHorarioNoDefinido):
		return http.StatusForbidden, "HORARIO", "El horario del sistema no está configurado. Contacte al administrador."
	case errors.Is(err, service.ErrFueraDeHorario):
		return http.StatusForbidden, "HORARIO", "Acceso permitido solo en horario laboral."
	default:
		return http.StatusInternalServerError, "INTERNAL", "Error interno"
	}
}

// Refresh rota el refresh token guardado en la cookie httpOnly.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		WriteError(w, http.StatusUnauthorized, "AUTH", "sesión expirada", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		if errors.Is(err, service.ErrRefreshInvalid) || errors.Is(err, service.ErrCuentaDesactivada) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "sesión expirada", nil)
			return
		}
		log.Error().Err(err).Msg("refresh: fallo inesperado")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)
	WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		Destino:     result.Destino,
		Usuario:     result.Profile,
	})
}

// Logout revoca la sesión y limpia la cookie. Siempre responde 200.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			log.Warn().Err(err).Msg("logout: no se pudo revocar el refresh token")
		}
	}
	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me devuelve el perfil del sujeto autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(middleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
		return
	}

	perfil, err := h.authService.GetMe(r.Context(), subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "cuenta no encontrada", nil)
			return
		}
		log.Error().Err(err).Msg("me: fallo inesperado")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Error interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, perfil)
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
