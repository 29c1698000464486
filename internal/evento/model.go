package evento

import (
	"time"

	"github.com/google/uuid"
)

// Evento es una comisión o reunión programada. Las banderas notificado_*
// pasan de false a true exactamente una vez; una bandera encendida significa
// "ya atendido" para los barridos de notificación.
type Evento struct {
	ID               uuid.UUID  `json:"id"`
	Titulo           string     `json:"titulo"`
	Inicio           time.Time  `json:"inicio"`
	Aprobado         bool       `json:"aprobado"`
	NotificadoInicio bool       `json:"notificadoInicio"`
	NotificadoFalta  bool       `json:"notificadoFalta"`
	ActaURL          *string    `json:"actaUrl"`
	CreadoEn         time.Time  `json:"creadoEn"`
	Asignados        []Asignado `json:"asignados,omitempty"`
}

// Asignado vincula un usuario al evento; exactamente uno es responsable.
type Asignado struct {
	UsuarioID   uuid.UUID `json:"usuarioId"`
	Responsable bool      `json:"responsable"`
}

// Asistencia registra el check-in de un asignado al evento.
type Asistencia struct {
	EventoID     uuid.UUID `json:"eventoId"`
	UsuarioID    uuid.UUID `json:"usuarioId"`
	RegistradoEn time.Time `json:"registradoEn"`
}
