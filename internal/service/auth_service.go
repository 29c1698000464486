package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/auth"
	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/horario"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/util"
)

var (
	// ErrCredencialesInvalidas indica fallo de autenticación.
	ErrCredencialesInvalidas = errors.New("credenciales inválidas")
	// ErrCuentaDesactivada indica cuenta con el flag activo apagado.
	ErrCuentaDesactivada = errors.New("cuenta desactivada")
	// ErrDemasiadosIntentos indica throttling de intentos fallidos.
	ErrDemasiadosIntentos = errors.New("demasiados intentos")
	// ErrHorarioNoDefinido indica que la política "Sistema" no existe: se
	// niega el acceso a roles no exentos en lugar de permitirlo.
	ErrHorarioNoDefinido = errors.New("horario del sistema no definido")
	// ErrFueraDeHorario indica acceso fuera del horario laboral.
	ErrFueraDeHorario = errors.New("acceso fuera del horario laboral")
	// ErrRefreshInvalid indica refresh token inválido o expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

const maxIntentosLogin = 5

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type horarioStore interface {
	GetByNombre(ctx context.Context, nombre string) (horario.Horario, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// AuthService aplica la compuerta de admisión del login: credenciales,
// cuenta activa, exención por rol y horario laboral, en ese orden. Cada
// rama de fallo es terminal; nunca se emite un token en una rama fallida.
type AuthService struct {
	repo       authRepository
	horarios   horarioStore
	redis      redisCommander
	jwt        *auth.JWTManager
	bitacora   *bitacora.Service
	loc        *time.Location
	refreshTTL time.Duration
}

// NewAuthService crea el servicio de autenticación.
func NewAuthService(r authRepository, horarios horarioStore, redisClient redisCommander, jwtMgr *auth.JWTManager, bit *bitacora.Service, loc *time.Location, refreshTTL time.Duration) *AuthService {
	if loc == nil {
		loc = time.UTC
	}
	return &AuthService{repo: r, horarios: horarios, redis: redisClient, jwt: jwtMgr, bitacora: bit, loc: loc, refreshTTL: refreshTTL}
}

// JWT expone el gestor de JWT (útil en middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa el retorno estándar de una autenticación.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Rol           repo.Rol
	Destino       string
	Profile       *PerfilUsuario
	RefreshHash   string
	RefreshExpiry time.Time
}

// PerfilUsuario describe la cuenta autenticada.
type PerfilUsuario struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
}

// Login ejecuta la compuerta completa. now se inyecta para que las pruebas
// fijen el instante; la comparación de horario ocurre en la zona civil de la
// organización, nunca en la del servidor.
func (s *AuthService) Login(ctx context.Context, email, contrasena string, now time.Time) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.revisarIntentos(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUsuarioByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.registrarIntentoFallido(ctx, email)
			return nil, ErrCredencialesInvalidas
		}
		return nil, err
	}

	ok, err := auth.Verify(contrasena, user.ContrasenaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificación de contraseña falló")
		return nil, ErrCredencialesInvalidas
	}
	if !ok {
		s.registrarIntentoFallido(ctx, email)
		return nil, ErrCredencialesInvalidas
	}

	if !user.Activo {
		return nil, ErrCuentaDesactivada
	}

	if !user.Rol.Exento() {
		politica, err := s.horarios.GetByNombre(ctx, horario.NombreSistema)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Política ausente: se niega, no se permite.
				return nil, ErrHorarioNoDefinido
			}
			return nil, err
		}

		local := now.In(s.loc)
		if !politica.Admite(local) {
			descripcion := fmt.Sprintf("intento de acceso fuera de horario: %s", local.Format("02/01/2006 15:04"))
			s.bitacora.Registrar(ctx, bitacora.AccionAccesoFueraHorario, descripcion, "auth", &user.ID)
			return nil, ErrFueraDeHorario
		}
	}

	token, _, err := s.jwt.GenerateAccessToken(user.ID.String(), string(user.Rol))
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	s.limpiarIntentos(ctx, email)
	s.bitacora.Registrar(ctx, bitacora.AccionLogin, "inicio de sesión", "auth", &user.ID)

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Rol:           user.Rol,
		Destino:       destinoPorRol(user.Rol),
		Profile:       perfilDe(user),
		RefreshHash:   refreshHash,
		RefreshExpiry: expires,
	}, nil
}

// Refresh intercambia el refresh token por tokens nuevos, rotándolo.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revocado || time.Now().UTC().After(record.Expiracion) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}
	if !user.Activo {
		return nil, ErrCuentaDesactivada
	}

	token, _, err := s.jwt.GenerateAccessToken(user.ID.String(), string(user.Rol))
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	// Revoca el token anterior (DB + Redis).
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Rol:           user.Rol,
		Destino:       destinoPorRol(user.Rol),
		Profile:       perfilDe(user),
		RefreshHash:   refreshHash,
		RefreshExpiry: expires,
	}, nil
}

// Logout revoca el refresh token vigente.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	redisKey := auth.RefreshRedisKey(hash)
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetMe devuelve el perfil del sujeto autenticado.
func (s *AuthService) GetMe(ctx context.Context, subject uuid.UUID) (*PerfilUsuario, error) {
	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return perfilDe(user), nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:         uuid.New(),
		Subject:    subject,
		TokenHash:  hash,
		Expiracion: expires,
		CreadoEn:   util.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}

func (s *AuthService) revisarIntentos(ctx context.Context, email string) error {
	count, err := s.redis.Get(ctx, auth.LoginAttemptsKey(email)).Int()
	if err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("login: no se pudo leer contador de intentos")
		return nil
	}
	if count >= maxIntentosLogin {
		return ErrDemasiadosIntentos
	}
	return nil
}

func (s *AuthService) registrarIntentoFallido(ctx context.Context, email string) {
	key := auth.LoginAttemptsKey(email)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Msg("login: no se pudo incrementar contador de intentos")
		return
	}
	if count == 1 {
		_ = s.redis.Expire(ctx, key, 15*time.Minute).Err()
	}
}

func (s *AuthService) limpiarIntentos(ctx context.Context, email string) {
	if err := s.redis.Del(ctx, auth.LoginAttemptsKey(email)).Err(); err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("login: no se pudo limpiar contador de intentos")
	}
}

func destinoPorRol(rol repo.Rol) string {
	if rol.Exento() {
		return "/admin"
	}
	return "/inicio"
}

func perfilDe(user repo.Usuario) *PerfilUsuario {
	return &PerfilUsuario{
		ID:     user.ID.String(),
		Nombre: user.Nombre,
		Email:  user.Email,
		Rol:    string(user.Rol),
	}
}
