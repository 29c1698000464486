package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository accede a suscripciones y a las ventanas de eventos elegibles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crea el acceso a datos de notificaciones.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const suscripcionCols = `id, usuario_id, endpoint, p256dh, auth, user_agent, creado_en`

func scanSuscripciones(rows pgx.Rows) ([]Suscripcion, error) {
	defer rows.Close()
	var subs []Suscripcion
	for rows.Next() {
		var s Suscripcion
		if err := rows.Scan(&s.ID, &s.UsuarioID, &s.Endpoint, &s.P256dh, &s.Auth, &s.UserAgent, &s.CreadoEn); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListByUsuario devuelve las suscripciones de una cuenta.
func (r *Repository) ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]Suscripcion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+suscripcionCols+` FROM suscripciones WHERE usuario_id = $1`, usuarioID)
	if err != nil {
		return nil, err
	}
	return scanSuscripciones(rows)
}

// ListByUsuarios devuelve las suscripciones de un conjunto de cuentas.
func (r *Repository) ListByUsuarios(ctx context.Context, usuarioIDs []uuid.UUID) ([]Suscripcion, error) {
	if len(usuarioIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+suscripcionCols+` FROM suscripciones WHERE usuario_id = ANY($1)`, usuarioIDs)
	if err != nil {
		return nil, err
	}
	return scanSuscripciones(rows)
}

// ListAll devuelve todas las suscripciones del sistema (difusión).
func (r *Repository) ListAll(ctx context.Context) ([]Suscripcion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+suscripcionCols+` FROM suscripciones`)
	if err != nil {
		return nil, err
	}
	return scanSuscripciones(rows)
}

// Upsert registra el dispositivo; repetir el alta del mismo endpoint para el
// mismo usuario solo refresca las claves.
func (r *Repository) Upsert(ctx context.Context, s Suscripcion) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO suscripciones (id, usuario_id, endpoint, p256dh, auth, user_agent, creado_en)
        VALUES ($1, $2, $3, $4, $5, $6, now())
        ON CONFLICT (usuario_id, endpoint) DO UPDATE
        SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, user_agent = EXCLUDED.user_agent`,
		s.ID, s.UsuarioID, s.Endpoint, s.P256dh, s.Auth, s.UserAgent)
	return err
}

// DeleteByEndpoint elimina la suscripción propia de un dispositivo.
func (r *Repository) DeleteByEndpoint(ctx context.Context, usuarioID uuid.UUID, endpoint string) error {
	_, err := r.pool.Exec(ctx, `
        DELETE FROM suscripciones WHERE usuario_id = $1 AND endpoint = $2`, usuarioID, endpoint)
	return err
}

// DeleteByID elimina una suscripción cuyo endpoint ya no existe.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM suscripciones WHERE id = $1`, id)
	return err
}

// EventosPorIniciar lista eventos aprobados sin recordatorio, con inicio
// dentro de la banda [desde, hasta].
func (r *Repository) EventosPorIniciar(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, titulo, inicio FROM eventos
        WHERE aprobado AND NOT notificado_inicio AND inicio BETWEEN $1 AND $2`, desde, hasta)
	if err != nil {
		return nil, err
	}
	return scanPendientes(rows)
}

// EventosConFalta lista eventos aprobados sin alerta de faltas, con inicio
// dentro de la banda retrospectiva [desde, hasta].
func (r *Repository) EventosConFalta(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, titulo, inicio FROM eventos
        WHERE aprobado AND NOT notificado_falta AND inicio BETWEEN $1 AND $2`, desde, hasta)
	if err != nil {
		return nil, err
	}
	return scanPendientes(rows)
}

func scanPendientes(rows pgx.Rows) ([]EventoPendiente, error) {
	defer rows.Close()
	var eventos []EventoPendiente
	for rows.Next() {
		var e EventoPendiente
		if err := rows.Scan(&e.ID, &e.Titulo, &e.Inicio); err != nil {
			return nil, err
		}
		eventos = append(eventos, e)
	}
	return eventos, rows.Err()
}

// ClaimNotificadoInicio enciende la bandera solo si seguía apagada. Devuelve
// true únicamente cuando este barrido ganó el reclamo: dos barridos
// superpuestos nunca despachan el mismo evento dos veces.
func (r *Repository) ClaimNotificadoInicio(ctx context.Context, id uuid.UUID) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE eventos SET notificado_inicio = TRUE
        WHERE id = $1 AND NOT notificado_inicio`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// ClaimNotificadoFalta es el reclamo análogo para la alerta de faltas.
func (r *Repository) ClaimNotificadoFalta(ctx context.Context, id uuid.UUID) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE eventos SET notificado_falta = TRUE
        WHERE id = $1 AND NOT notificado_falta`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// AsignadosIDs devuelve los usuarios asignados al evento.
func (r *Repository) AsignadosIDs(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT usuario_id FROM eventos_asignados WHERE evento_id = $1`, eventoID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// AsignadosSinAsistencia devuelve los asignados sin check-in registrado.
func (r *Repository) AsignadosSinAsistencia(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT ea.usuario_id FROM eventos_asignados ea
        WHERE ea.evento_id = $1
          AND NOT EXISTS (
            SELECT 1 FROM asistencias a
            WHERE a.evento_id = ea.evento_id AND a.usuario_id = ea.usuario_id
          )`, eventoID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
