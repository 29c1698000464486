package evento

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alcaldiadigital/intranet/internal/db"
	"github.com/alcaldiadigital/intranet/internal/repo"
)

// Repository accede a eventos, asignados y asistencias.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crea el acceso a datos de eventos.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertConAsignados crea el evento y sus asignados en una sola transacción:
// si falla el alta de un asignado no queda un evento padre huérfano.
func (r *Repository) InsertConAsignados(ctx context.Context, e Evento) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO eventos (id, titulo, inicio, aprobado, notificado_inicio, notificado_falta, creado_en)
            VALUES ($1, $2, $3, $4, FALSE, FALSE, now())`,
			e.ID, e.Titulo, e.Inicio, e.Aprobado)
		if err != nil {
			return err
		}
		for _, a := range e.Asignados {
			if _, err := tx.Exec(ctx, `
                INSERT INTO eventos_asignados (evento_id, usuario_id, responsable)
                VALUES ($1, $2, $3)`, e.ID, a.UsuarioID, a.Responsable); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID carga el evento con sus asignados.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Evento, error) {
	var e Evento
	err := r.pool.QueryRow(ctx, `
        SELECT id, titulo, inicio, aprobado, notificado_inicio, notificado_falta, acta_url, creado_en
        FROM eventos WHERE id = $1`, id,
	).Scan(&e.ID, &e.Titulo, &e.Inicio, &e.Aprobado, &e.NotificadoInicio, &e.NotificadoFalta, &e.ActaURL, &e.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Evento{}, repo.ErrNotFound
		}
		return Evento{}, err
	}

	rows, err := r.pool.Query(ctx, `
        SELECT usuario_id, responsable FROM eventos_asignados WHERE evento_id = $1`, id)
	if err != nil {
		return Evento{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Asignado
		if err := rows.Scan(&a.UsuarioID, &a.Responsable); err != nil {
			return Evento{}, err
		}
		e.Asignados = append(e.Asignados, a)
	}
	return e, rows.Err()
}

// List devuelve los eventos ordenados por inicio descendente.
func (r *Repository) List(ctx context.Context, limit int) ([]Evento, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, titulo, inicio, aprobado, notificado_inicio, notificado_falta, acta_url, creado_en
        FROM eventos ORDER BY inicio DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eventos []Evento
	for rows.Next() {
		var e Evento
		if err := rows.Scan(&e.ID, &e.Titulo, &e.Inicio, &e.Aprobado, &e.NotificadoInicio, &e.NotificadoFalta, &e.ActaURL, &e.CreadoEn); err != nil {
			return nil, err
		}
		eventos = append(eventos, e)
	}
	return eventos, rows.Err()
}

// Aprobar marca el evento como aprobado.
func (r *Repository) Aprobar(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE eventos SET aprobado = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// EsAsignado indica si el usuario está asignado al evento.
func (r *Repository) EsAsignado(ctx context.Context, eventoID, usuarioID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM eventos_asignados WHERE evento_id = $1 AND usuario_id = $2)`,
		eventoID, usuarioID).Scan(&ok)
	return ok, err
}

// InsertAsistencia registra el check-in; repetirlo no duplica filas.
func (r *Repository) InsertAsistencia(ctx context.Context, eventoID, usuarioID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO asistencias (evento_id, usuario_id, registrado_en)
        VALUES ($1, $2, now())
        ON CONFLICT (evento_id, usuario_id) DO NOTHING`, eventoID, usuarioID)
	return err
}

// SetActaURL guarda la URL del acta subida.
func (r *Repository) SetActaURL(ctx context.Context, id uuid.UUID, url string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE eventos SET acta_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
