package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries agrupa el acceso a las tablas de cuentas y sesiones.
type Queries struct {
	pool *pgxpool.Pool
}

// New crea el acceso a datos sobre el pool compartido.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const usuarioCols = `id, nombre, email, contrasena_hash, rol, activo, creado_en`

func scanUsuario(row pgx.Row) (Usuario, error) {
	var u Usuario
	var rol string
	err := row.Scan(&u.ID, &u.Nombre, &u.Email, &u.ContrasenaHash, &rol, &u.Activo, &u.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usuario{}, ErrNotFound
		}
		return Usuario{}, err
	}
	u.Rol = Rol(strings.ToUpper(rol))
	return u, nil
}

// GetUsuarioByEmail busca una cuenta por correo (en minúsculas).
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+usuarioCols+` FROM usuarios WHERE email = $1`, strings.ToLower(email))
	return scanUsuario(row)
}

// GetUsuarioByID busca una cuenta por identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `SELECT `+usuarioCols+` FROM usuarios WHERE id = $1`, id)
	return scanUsuario(row)
}

// ListUsuarios devuelve todas las cuentas ordenadas por nombre.
func (q *Queries) ListUsuarios(ctx context.Context) ([]Usuario, error) {
	rows, err := q.pool.Query(ctx, `SELECT `+usuarioCols+` FROM usuarios ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

// InsertUsuarioParams describe el alta de una cuenta.
type InsertUsuarioParams struct {
	ID             uuid.UUID
	Nombre         string
	Email          string
	ContrasenaHash string
	Rol            Rol
}

// InsertUsuario crea la cuenta activa.
func (q *Queries) InsertUsuario(ctx context.Context, arg InsertUsuarioParams) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO usuarios (id, nombre, email, contrasena_hash, rol, activo, creado_en)
        VALUES ($1, $2, $3, $4, $5, TRUE, now())
        RETURNING `+usuarioCols,
		arg.ID, arg.Nombre, strings.ToLower(arg.Email), arg.ContrasenaHash, string(arg.Rol))
	return scanUsuario(row)
}

// UpdateUsuarioParams describe los campos editables de una cuenta.
type UpdateUsuarioParams struct {
	Nombre *string
	Rol    *Rol
	Activo *bool
}

// UpdateUsuario aplica cambios parciales sobre la cuenta.
func (q *Queries) UpdateUsuario(ctx context.Context, id uuid.UUID, arg UpdateUsuarioParams) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        UPDATE usuarios
        SET nombre = COALESCE($2, nombre),
            rol    = COALESCE($3, rol),
            activo = COALESCE($4, activo)
        WHERE id = $1
        RETURNING `+usuarioCols,
		id, arg.Nombre, rolPtr(arg.Rol), arg.Activo)
	return scanUsuario(row)
}

func rolPtr(r *Rol) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// InsertRefreshTokenParams describe un refresh token nuevo.
type InsertRefreshTokenParams struct {
	ID         uuid.UUID
	Subject    uuid.UUID
	TokenHash  string
	Expiracion time.Time
	CreadoEn   time.Time
}

// InsertRefreshToken persiste el refresh token.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, `
        INSERT INTO tokens_refresh (id, subject, token_hash, expiracion, creado_en, revocado)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        RETURNING id, subject, token_hash, expiracion, creado_en, revocado`,
		arg.ID, arg.Subject, arg.TokenHash, arg.Expiracion, arg.CreadoEn,
	).Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracion, &t.CreadoEn, &t.Revocado)
	return t, err
}

// GetRefreshTokenByHash busca el refresh token por su hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, `
        SELECT id, subject, token_hash, expiracion, creado_en, revocado
        FROM tokens_refresh WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracion, &t.CreadoEn, &t.Revocado)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenRefresh{}, ErrNotFound
		}
		return TokenRefresh{}, err
	}
	return t, nil
}

// InvalidateOtherRefreshTokens revoca todos los refresh del sujeto salvo el vigente.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh SET revocado = TRUE
        WHERE subject = $1 AND token_hash <> $2 AND NOT revocado`, subject, keepHash)
	return err
}

// RevokeRefreshToken revoca un refresh token puntual.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh SET revocado = TRUE WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
