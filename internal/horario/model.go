package horario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HoraDia es una hora del día en formato de 24 horas, serializada como "HH:MM".
type HoraDia struct {
	Hora   int
	Minuto int
}

func (h HoraDia) String() string {
	return fmt.Sprintf("%02d:%02d", h.Hora, h.Minuto)
}

// Minutos devuelve los minutos transcurridos desde medianoche.
func (h HoraDia) Minutos() int {
	return h.Hora*60 + h.Minuto
}

// HoraDiaDesdeMinutos reconstruye la hora a partir de minutos desde medianoche.
func HoraDiaDesdeMinutos(min int) HoraDia {
	return HoraDia{Hora: min / 60, Minuto: min % 60}
}

// UnmarshalJSON acepta únicamente el formato "HH:MM".
func (h *HoraDia) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("hora inválida: %s", string(b))
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return fmt.Errorf("hora inválida: %s", raw)
	}
	hora, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	minuto, err := strconv.Atoi(parts[1])
	if err != nil {
		return err
	}
	if hora < 0 || hora > 23 {
		return fmt.Errorf("hora fuera de rango: %d", hora)
	}
	if minuto < 0 || minuto > 59 {
		return fmt.Errorf("minuto fuera de rango: %d", minuto)
	}
	h.Hora = hora
	h.Minuto = minuto
	return nil
}

// MarshalJSON emite "HH:MM".
func (h HoraDia) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// Horario es una política de días y horas laborales. Los días usan la
// convención 0=domingo..6=sábado. La fila llamada "Sistema" gobierna a todas
// las cuentas no exentas.
type Horario struct {
	ID      uuid.UUID `json:"id"`
	Nombre  string    `json:"nombre"`
	Dias    []int     `json:"dias"`
	Entrada HoraDia   `json:"entrada"`
	Salida  HoraDia   `json:"salida"`
}

// NombreSistema identifica la única política vigente para todo el personal.
const NombreSistema = "Sistema"

// Admite decide la admisión para el instante dado, ya expresado en la zona
// civil de la organización. Pasa solo si el día de la semana está permitido y
// la hora cae en el intervalo semiabierto [entrada, salida): la hora de salida
// exacta ya cuenta como cerrado. Un conjunto de días vacío niega siempre.
func (h Horario) Admite(now time.Time) bool {
	dia := int(now.Weekday())
	permitido := false
	for _, d := range h.Dias {
		if d == dia {
			permitido = true
			break
		}
	}
	if !permitido {
		return false
	}

	min := now.Hour()*60 + now.Minute()
	return min >= h.Entrada.Minutos() && min < h.Salida.Minutos()
}

// Validar revisa la coherencia de la política antes de guardarla.
func (h Horario) Validar() error {
	if strings.TrimSpace(h.Nombre) == "" {
		return fmt.Errorf("nombre obligatorio")
	}
	for _, d := range h.Dias {
		if d < 0 || d > 6 {
			return fmt.Errorf("día fuera de rango: %d", d)
		}
	}
	if h.Entrada.Minutos() >= h.Salida.Minutos() {
		return fmt.Errorf("la entrada debe ser anterior a la salida")
	}
	return nil
}
