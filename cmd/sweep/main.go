package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alcaldiadigital/intranet/internal/config"
	"github.com/alcaldiadigital/intranet/internal/db"
	"github.com/alcaldiadigital/intranet/internal/notify"
)

// sweep corre una pasada de los barridos de notificación y termina. Pensado
// para invocarse desde un cron del sistema cuando la API corre sin barrido
// interno (SWEEP_INTERVAL en cero).
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("sweep terminado con error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	sender := notify.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	svc := notify.NewService(notify.NewRepository(pool), sender, cfg.Location(), log.Logger, 0)

	resumen, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("inicio", resumen.Inicio).Int("faltas", resumen.Faltas).Msg("barrido completado")
	return nil
}
