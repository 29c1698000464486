package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/config"
	"github.com/alcaldiadigital/intranet/internal/evento"
	"github.com/alcaldiadigital/intranet/internal/horario"
	httpmiddleware "github.com/alcaldiadigital/intranet/internal/http/middleware"
	"github.com/alcaldiadigital/intranet/internal/notify"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/service"
	"github.com/alcaldiadigital/intranet/internal/storage"
)

// Handler agrupa los servicios expuestos por la API.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	usuarios      *service.UsuarioService
	horarios      *horario.Repository
	eventos       *evento.Service
	notify        *notify.Service
	bitacora      *bitacora.Service
	storage       storage.Uploader
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devuelve el router configurado con todos los módulos.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService, notifyService *notify.Service) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if origin == "http://localhost:5173" || origin == "http://localhost:3000" {
			devCookies = true
			break
		}
	}

	bitacoraService := bitacora.NewService(bitacora.NewRepository(pool))
	eventoService := evento.NewService(evento.NewRepository(pool), bitacoraService)
	usuarioService := service.NewUsuarioService(repo.New(pool), bitacoraService)
	horarioRepo := horario.NewRepository(pool)

	var uploader storage.Uploader = storage.NoopUploader{}
	switch cfg.Storage.Provider {
	case "", "noop":
		// mantiene el uploader por defecto
	case "s3", "r2":
		s3, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			PublicDomain: cfg.Storage.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		uploader = s3
	default:
		return nil, fmt.Errorf("storage: proveedor %s no soportado", cfg.Storage.Provider)
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		usuarios:      usuarioService,
		horarios:      horarioRepo,
		eventos:       eventoService,
		notify:        notifyService,
		bitacora:      bitacoraService,
		storage:       uploader,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})

		// Barrido disparado por cron externo, protegido por secreto compartido.
		public.Get("/push/cron", h.CronSweep)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)

		private.Get("/horarios", h.GetHorario)
		private.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
			Post("/horarios", h.UpdateHorario)

		private.Route("/push", func(p chi.Router) {
			p.Post("/suscripciones", h.SaveSuscripcion)
			p.Delete("/suscripciones", h.DeleteSuscripcion)
			p.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
				Post("/difusion", h.Difusion)
			p.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
				Post("/envio", h.EnvioDirigido)
		})

		private.Route("/eventos", func(e chi.Router) {
			e.Get("/", h.ListEventos)
			e.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
				Post("/", h.CreateEvento)
			e.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
				Post("/{id}/aprobar", h.AprobarEvento)
			e.Post("/{id}/asistencia", h.RegistrarAsistencia)
			e.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
				Post("/{id}/acta", h.SubirActa)
		})

		private.Route("/usuarios", func(u chi.Router) {
			u.Use(httpmiddleware.RequireRoles(repo.RolSuper))
			u.Get("/", h.ListUsuarios)
			u.Post("/", h.CreateUsuario)
			u.Patch("/{id}", h.UpdateUsuario)
		})

		private.With(httpmiddleware.RequireRoles(repo.RolAdmin, repo.RolSuper)).
			Get("/bitacora", h.ListBitacora)
	})

	log.Info().Msg("router configurado")
	return r, nil
}

// Health responde un estado simple.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida las conexiones con Postgres y Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependencias no disponibles", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
