package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/auth"
	"github.com/alcaldiadigital/intranet/internal/bitacora"
	"github.com/alcaldiadigital/intranet/internal/config"
	"github.com/alcaldiadigital/intranet/internal/db"
	"github.com/alcaldiadigital/intranet/internal/horario"
	internalhttp "github.com/alcaldiadigital/intranet/internal/http"
	"github.com/alcaldiadigital/intranet/internal/notify"
	"github.com/alcaldiadigital/intranet/internal/repo"
	"github.com/alcaldiadigital/intranet/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api terminada con error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	loc := cfg.Location()
	repository := repo.New(pool)
	horarioRepo := horario.NewRepository(pool)
	bitacoraService := bitacora.NewService(bitacora.NewRepository(pool))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(repository, horarioRepo, redisClient, jwtManager, bitacoraService, loc, cfg.JWTRefreshTTL)

	sender := notify.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	notifyService := notify.NewService(notify.NewRepository(pool), sender, loc, log.Logger, cfg.SweepInterval)
	notifyService.Start(ctx)
	defer notifyService.Stop()

	handler, err := internalhttp.NewRouter(cfg, pool, redisClient, authService, notifyService)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API escuchando en :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("cerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
