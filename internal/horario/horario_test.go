package horario

import (
	"encoding/json"
	"testing"
	"time"
)

func horarioLaboral() Horario {
	return Horario{
		Nombre:  NombreSistema,
		Dias:    []int{1, 2, 3, 4, 5},
		Entrada: HoraDia{Hora: 8, Minuto: 0},
		Salida:  HoraDia{Hora: 16, Minuto: 0},
	}
}

func TestAdmite(t *testing.T) {
	h := horarioLaboral()

	// 2026-03-02 es lunes.
	lunes := func(hora, minuto int) time.Time {
		return time.Date(2026, 3, 2, hora, minuto, 0, 0, time.UTC)
	}
	domingo := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"entrada exacta admite", lunes(8, 0), true},
		{"dentro del horario admite", lunes(12, 30), true},
		{"último minuto admite", lunes(15, 59), true},
		{"salida exacta niega", lunes(16, 0), false},
		{"antes de entrada niega", lunes(7, 59), false},
		{"después de salida niega", lunes(18, 0), false},
		{"día no laboral niega", domingo, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.Admite(tc.now); got != tc.want {
				t.Fatalf("Admite(%s) = %v, esperaba %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestAdmiteSinDias(t *testing.T) {
	h := horarioLaboral()
	h.Dias = nil

	if h.Admite(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("un horario sin días habilitados nunca debe admitir")
	}
}

func TestHoraDiaJSON(t *testing.T) {
	var h HoraDia
	if err := json.Unmarshal([]byte(`"08:30"`), &h); err != nil {
		t.Fatalf("parse válido falló: %v", err)
	}
	if h.Hora != 8 || h.Minuto != 30 {
		t.Fatalf("esperaba 08:30, obtuve %s", h)
	}
	if h.Minutos() != 510 {
		t.Fatalf("esperaba 510 minutos, obtuve %d", h.Minutos())
	}

	out, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal falló: %v", err)
	}
	if string(out) != `"08:30"` {
		t.Fatalf("esperaba \"08:30\", obtuve %s", out)
	}

	invalidos := []string{`"25:00"`, `"08:61"`, `"0830"`, `"-1:00"`, `830`}
	for _, raw := range invalidos {
		var bad HoraDia
		if err := json.Unmarshal([]byte(raw), &bad); err == nil {
			t.Fatalf("esperaba error para %s", raw)
		}
	}
}

func TestValidar(t *testing.T) {
	h := horarioLaboral()
	if err := h.Validar(); err != nil {
		t.Fatalf("horario válido rechazado: %v", err)
	}

	sinNombre := horarioLaboral()
	sinNombre.Nombre = "  "
	if err := sinNombre.Validar(); err == nil {
		t.Fatal("esperaba error por nombre vacío")
	}

	diaInvalido := horarioLaboral()
	diaInvalido.Dias = []int{1, 9}
	if err := diaInvalido.Validar(); err == nil {
		t.Fatal("esperaba error por día fuera de rango")
	}

	invertido := horarioLaboral()
	invertido.Entrada = HoraDia{Hora: 17}
	if err := invertido.Validar(); err == nil {
		t.Fatal("esperaba error por entrada posterior a la salida")
	}
}
