package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alcaldiadigital/intranet/internal/auth"
	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/horario"
	"github.com/alcaldiadigital/intranet/internal/repo"
)

type stubAuthRepo struct {
	usuario repo.Usuario
	tokens  []repo.InsertRefreshTokenParams
}

func (s *stubAuthRepo) GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error) {
	if s.usuario.Email != email {
		return repo.Usuario{}, repo.ErrNotFound
	}
	return s.usuario, nil
}

func (s *stubAuthRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	if s.usuario.ID != id {
		return repo.Usuario{}, repo.ErrNotFound
	}
	return s.usuario, nil
}

func (s *stubAuthRepo) InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error) {
	s.tokens = append(s.tokens, arg)
	return repo.TokenRefresh{ID: arg.ID, Subject: arg.Subject, TokenHash: arg.TokenHash, Expiracion: arg.Expiracion}, nil
}

func (s *stubAuthRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	return nil
}

func (s *stubAuthRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error) {
	return repo.TokenRefresh{}, repo.ErrNotFound
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return nil
}

type stubHorarios struct {
	horario horario.Horario
	err     error
}

func (s *stubHorarios) GetByNombre(ctx context.Context, nombre string) (horario.Horario, error) {
	if s.err != nil {
		return horario.Horario{}, s.err
	}
	return s.horario, nil
}

type stubRedis struct {
	valores map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{valores: make(map[string]string)}
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	s.valores[key] = toString(value)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := s.valores[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, k := range keys {
		delete(s.valores, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (s *stubRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	n, _ := strconv.ParseInt(s.valores[key], 10, 64)
	n++
	s.valores[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

func (s *stubRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

type stubBitacora struct {
	entradas []bitacora.Entrada
}

func (s *stubBitacora) Insert(ctx context.Context, e bitacora.Entrada) error {
	s.entradas = append(s.entradas, e)
	return nil
}

func (s *stubBitacora) ListRecent(ctx context.Context, limit int) ([]bitacora.Entrada, error) {
	return s.entradas, nil
}

func horarioOficina() horario.Horario {
	return horario.Horario{
		ID:      uuid.New(),
		Nombre:  horario.NombreSistema,
		Dias:    []int{1, 2, 3, 4, 5},
		Entrada: horario.HoraDia{Hora: 8},
		Salida:  horario.HoraDia{Hora: 16},
	}
}

func nuevoUsuario(t *testing.T, rol repo.Rol, activo bool) (repo.Usuario, string) {
	t.Helper()
	contrasena := "secreta-123"
	hash, err := auth.Hash(contrasena)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return repo.Usuario{
		ID:             uuid.New(),
		Nombre:         "Ana Quispe",
		Email:          "ana@alcaldia.gob.bo",
		ContrasenaHash: hash,
		Rol:            rol,
		Activo:         activo,
	}, contrasena
}

func nuevoAuthService(r *stubAuthRepo, h *stubHorarios, rd *stubRedis, bit *stubBitacora) *AuthService {
	jwtMgr := auth.NewJWTManager("clave-de-pruebas-suficientemente-larga", 15*time.Minute)
	return NewAuthService(r, h, rd, jwtMgr, bitacora.NewService(bit), time.UTC, time.Hour)
}

// 2026-03-02 es lunes.
var lunesLaboral = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
var lunesNoche = time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)

func TestLoginDentroDeHorario(t *testing.T) {
	user, contrasena := nuevoUsuario(t, repo.RolFuncionario, true)
	authRepo := &stubAuthRepo{usuario: user}
	svc := nuevoAuthService(authRepo, &stubHorarios{horario: horarioOficina()}, newStubRedis(), &stubBitacora{})

	result, err := svc.Login(context.Background(), user.Email, contrasena, lunesLaboral)
	if err != nil {
		t.Fatalf("login falló: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("esperaba tokens emitidos")
	}
	if result.Destino != "/inicio" {
		t.Fatalf("destino = %q, esperaba /inicio", result.Destino)
	}
	if len(authRepo.tokens) != 1 {
		t.Fatalf("esperaba un refresh token persistido, hay %d", len(authRepo.tokens))
	}
}

func TestLoginFueraDeHorario(t *testing.T) {
	user, contrasena := nuevoUsuario(t, repo.RolFuncionario, true)
	authRepo := &stubAuthRepo{usuario: user}
	bit := &stubBitacora{}
	svc := nuevoAuthService(authRepo, &stubHorarios{horario: horarioOficina()}, newStubRedis(), bit)

	_, err := svc.Login(context.Background(), user.Email, contrasena, lunesNoche)
	if !errors.Is(err, ErrFueraDeHorario) {
		t.Fatalf("esperaba ErrFueraDeHorario, obtuve %v", err)
	}
	if len(authRepo.tokens) != 0 {
		t.Fatal("una rama fallida no debe emitir tokens")
	}

	encontrada := false
	for _, e := range bit.entradas {
		if e.Accion == bitacora.AccionAccesoFueraHorario {
			encontrada = true
		}
	}
	if !encontrada {
		t.Fatal("el intento fuera de horario debe quedar en la bitácora")
	}
}

func TestLoginSuperExentoDeHorario(t *testing.T) {
	user, contrasena := nuevoUsuario(t, repo.RolSuper, true)
	authRepo := &stubAuthRepo{usuario: user}
	// El horario no debe consultarse para un rol exento.
	svc := nuevoAuthService(authRepo, &stubHorarios{err: errors.New("no debía llamarse")}, newStubRedis(), &stubBitacora{})

	result, err := svc.Login(context.Background(), user.Email, contrasena, lunesNoche)
	if err != nil {
		t.Fatalf("login de SUPER fuera de horario falló: %v", err)
	}
	if result.Destino != "/admin" {
		t.Fatalf("destino = %q, esperaba /admin", result.Destino)
	}
}

func TestLoginSinHorarioDefinidoNiega(t *testing.T) {
	user, contrasena := nuevoUsuario(t, repo.RolFuncionario, true)
	svc := nuevoAuthService(&stubAuthRepo{usuario: user}, &stubHorarios{err: repo.ErrNotFound}, newStubRedis(), &stubBitacora{})

	_, err := svc.Login(context.Background(), user.Email, contrasena, lunesLaboral)
	if !errors.Is(err, ErrHorarioNoDefinido) {
		t.Fatalf("esperaba ErrHorarioNoDefinido, obtuve %v", err)
	}
}

func TestLoginCuentaDesactivada(t *testing.T) {
	user, contrasena := nuevoUsuario(t, repo.RolFuncionario, false)
	svc := nuevoAuthService(&stubAuthRepo{usuario: user}, &stubHorarios{horario: horarioOficina()}, newStubRedis(), &stubBitacora{})

	_, err := svc.Login(context.Background(), user.Email, contrasena, lunesLaboral)
	if !errors.Is(err, ErrCuentaDesactivada) {
		t.Fatalf("esperaba ErrCuentaDesactivada, obtuve %v", err)
	}
}

func TestLoginThrottleDeIntentos(t *testing.T) {
	user, _ := nuevoUsuario(t, repo.RolFuncionario, true)
	rd := newStubRedis()
	svc := nuevoAuthService(&stubAuthRepo{usuario: user}, &stubHorarios{horario: horarioOficina()}, rd, &stubBitacora{})

	for i := 0; i < maxIntentosLogin; i++ {
		_, err := svc.Login(context.Background(), user.Email, "incorrecta", lunesLaboral)
		if !errors.Is(err, ErrCredencialesInvalidas) {
			t.Fatalf("intento %d: esperaba ErrCredencialesInvalidas, obtuve %v", i+1, err)
		}
	}

	_, err := svc.Login(context.Background(), user.Email, "incorrecta", lunesLaboral)
	if !errors.Is(err, ErrDemasiadosIntentos) {
		t.Fatalf("esperaba ErrDemasiadosIntentos tras %d fallos, obtuve %v", maxIntentosLogin, err)
	}
}
