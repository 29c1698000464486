package horario

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alcaldiadigital/intranet/internal/repo"
)

// Repository accede a la tabla de horarios.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository crea el acceso a datos de horarios.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByNombre carga la política por nombre.
func (r *Repository) GetByNombre(ctx context.Context, nombre string) (Horario, error) {
	var (
		h       Horario
		entrada int
		salida  int
	)
	err := r.pool.QueryRow(ctx, `
        SELECT id, nombre, dias, entrada_min, salida_min
        FROM horarios WHERE nombre = $1`, nombre,
	).Scan(&h.ID, &h.Nombre, &h.Dias, &entrada, &salida)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Horario{}, repo.ErrNotFound
		}
		return Horario{}, err
	}
	h.Entrada = HoraDiaDesdeMinutos(entrada)
	h.Salida = HoraDiaDesdeMinutos(salida)
	return h, nil
}

// Upsert guarda la política, creándola si no existe.
func (r *Repository) Upsert(ctx context.Context, h Horario) (Horario, error) {
	id := h.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
        INSERT INTO horarios (id, nombre, dias, entrada_min, salida_min)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (nombre) DO UPDATE
        SET dias = EXCLUDED.dias,
            entrada_min = EXCLUDED.entrada_min,
            salida_min = EXCLUDED.salida_min
        RETURNING id`,
		id, h.Nombre, h.Dias, h.Entrada.Minutos(), h.Salida.Minutos(),
	).Scan(&h.ID)
	if err != nil {
		return Horario{}, err
	}
	return h, nil
}
