package bitacora

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository accede a la tabla bitacora.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crea el acceso a datos de la bitácora.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert agrega una entrada.
func (r *Repository) Insert(ctx context.Context, e Entrada) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO bitacora (id, accion, descripcion, modulo, usuario_id, creado_en)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Accion, e.Descripcion, e.Modulo, e.UsuarioID, e.CreadoEn)
	return err
}

// ListRecent devuelve las entradas más recientes.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Entrada, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, accion, descripcion, modulo, usuario_id, creado_en
        FROM bitacora ORDER BY creado_en DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entradas []Entrada
	for rows.Next() {
		var (
			e         Entrada
			usuarioID *uuid.UUID
		)
		if err := rows.Scan(&e.ID, &e.Accion, &e.Descripcion, &e.Modulo, &usuarioID, &e.CreadoEn); err != nil {
			return nil, err
		}
		e.UsuarioID = usuarioID
		entradas = append(entradas, e)
	}
	return entradas, rows.Err()
}
