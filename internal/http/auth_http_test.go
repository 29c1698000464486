package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alcaldiadigital/intranet/internal/config"
	"github.com/alcaldiadigital/intranet/internal/service"
)

func TestTranslateLoginError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"throttle", service.ErrDemasiadosIntentos, http.StatusTooManyRequests, "RATE_LIMIT"},
		{"credenciales", service.ErrCredencialesInvalidas, http.StatusUnauthorized, "AUTH"},
		{"desactivada", service.ErrCuentaDesactivada, http.StatusForbidden, "AUTH"},
		{"sin horario", service.ErrHorarioNoDefinido, http.StatusForbidden, "HORARIO"},
		{"fuera de horario", service.ErrFueraDeHorario, http.StatusForbidden, "HORARIO"},
		{"desconocido", errors.New("fallo de red"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, message := translateLoginError(tc.err)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, esperaba %d", status, tc.wantStatus)
			}
			if code != tc.wantCode {
				t.Fatalf("code = %q, esperaba %q", code, tc.wantCode)
			}
			if message == "" {
				t.Fatal("el mensaje no puede quedar vacío")
			}
			if status == http.StatusInternalServerError && message != "Error interno" {
				t.Fatalf("un error desconocido no debe filtrar detalles: %q", message)
			}
		})
	}
}

func TestCronSweepRechazaSecretoInvalido(t *testing.T) {
	h := &Handler{cfg: &config.Config{CronSecret: "secreto-cron"}}

	cases := []struct {
		name   string
		header string
	}{
		{"sin cabecera", ""},
		{"esquema incorrecto", "Basic secreto-cron"},
		{"secreto equivocado", "Bearer otro-secreto"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/push/cron", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			h.CronSweep(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, esperaba 401", rec.Code)
			}
		})
	}
}

func TestRefreshSinCookie(t *testing.T) {
	h := &Handler{cfg: &config.Config{}}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}
