package bitacora

import (
	"time"

	"github.com/google/uuid"
)

// Acciones registradas por los módulos del sistema.
const (
	AccionLogin              = "LOGIN"
	AccionAccesoFueraHorario = "ACCESO_FUERA_HORARIO"
	AccionHorarioActualizado = "HORARIO_ACTUALIZADO"
	AccionUsuarioCreado      = "USUARIO_CREADO"
	AccionUsuarioActualizado = "USUARIO_ACTUALIZADO"
	AccionAsistencia         = "ASISTENCIA"
	AccionEventoCreado       = "EVENTO_CREADO"
)

// Entrada es un registro de auditoría de solo escritura: la aplicación nunca
// lo actualiza ni lo borra.
type Entrada struct {
	ID          uuid.UUID  `json:"id"`
	Accion      string     `json:"accion"`
	Descripcion string     `json:"descripcion"`
	Modulo      string     `json:"modulo"`
	UsuarioID   *uuid.UUID `json:"usuarioId"`
	CreadoEn    time.Time  `json:"creadoEn"`
}
