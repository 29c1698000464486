package notify

import (
	"time"

	"github.com/google/uuid"
)

// Suscripcion es un endpoint push registrado por un dispositivo. La unicidad
// es (usuario, endpoint); la fila no debe sobrevivir a un fallo permanente
// reportado por el proveedor.
type Suscripcion struct {
	ID        uuid.UUID `json:"id"`
	UsuarioID uuid.UUID `json:"usuarioId"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	UserAgent string    `json:"userAgent"`
	CreadoEn  time.Time `json:"creadoEn"`
}

// Payload es el mensaje entregado al service worker del navegador.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

// ResultadoEnvio es el desenlace de un intento individual de entrega.
type ResultadoEnvio struct {
	SuscripcionID uuid.UUID `json:"id"`
	Status        string    `json:"status"` // "ok" | "expirada" | "error"
	Error         string    `json:"error,omitempty"`
}

// ResumenDifusion agrega los desenlaces de una difusión.
type ResumenDifusion struct {
	Success bool             `json:"success"`
	Total   int              `json:"total"`
	Results []ResultadoEnvio `json:"results"`
}

// ResumenBarrido cuenta los eventos reclamados por cada barrido.
type ResumenBarrido struct {
	Inicio int `json:"inicio"`
	Faltas int `json:"faltas"`
}

// EventoPendiente es la proyección mínima de un evento elegible para barrido.
type EventoPendiente struct {
	ID     uuid.UUID
	Titulo string
	Inicio time.Time
}
