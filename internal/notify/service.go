package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Banda de captura del recordatorio: eventos que inician entre now+15m y
// now+25m. El intervalo de barrido debe ser <= al ancho de la banda (10m)
// para no saltarse eventos, ya que cada uno es elegible una sola vez.
const (
	ventanaRecordatorioDesde = 15 * time.Minute
	ventanaRecordatorioHasta = 25 * time.Minute
	ventanaFaltas            = 120 * time.Minute
)

type notifyRepository interface {
	ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]Suscripcion, error)
	ListByUsuarios(ctx context.Context, usuarioIDs []uuid.UUID) ([]Suscripcion, error)
	ListAll(ctx context.Context) ([]Suscripcion, error)
	Upsert(ctx context.Context, s Suscripcion) error
	DeleteByEndpoint(ctx context.Context, usuarioID uuid.UUID, endpoint string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	EventosPorIniciar(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error)
	EventosConFalta(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error)
	ClaimNotificadoInicio(ctx context.Context, id uuid.UUID) (bool, error)
	ClaimNotificadoFalta(ctx context.Context, id uuid.UUID) (bool, error)
	AsignadosIDs(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error)
	AsignadosSinAsistencia(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error)
}

// Service despacha notificaciones push y mantiene sana la tabla de
// suscripciones. No guarda estado entre ejecuciones: todo vive en la base.
type Service struct {
	repo     notifyRepository
	sender   Sender
	loc      *time.Location
	logger   zerolog.Logger
	interval time.Duration

	once   sync.Once
	cancel context.CancelFunc
}

// NewService crea el servicio. interval en cero deja el barrido interno
// deshabilitado (se asume invocación externa vía cron o cmd/sweep).
func NewService(repo notifyRepository, sender Sender, loc *time.Location, logger zerolog.Logger, interval time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, sender: sender, loc: loc, logger: logger, interval: interval}
}

// Start arranca el barrido periódico interno. Seguro de llamar varias veces.
func (s *Service) Start(parent context.Context) {
	if s.interval <= 0 {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop detiene el barrido periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("notify: barrido iniciado")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notify: barrido detenido")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("notify: barrido falló")
			}
		}
	}
}

// RunOnce ejecuta ambos barridos con el reloj actual en la zona civil.
func (s *Service) RunOnce(ctx context.Context) (ResumenBarrido, error) {
	now := time.Now().In(s.loc)

	inicio, err := s.ProcesarRecordatorios(ctx, now)
	if err != nil {
		return ResumenBarrido{}, fmt.Errorf("recordatorios: %w", err)
	}

	faltas, err := s.ProcesarFaltas(ctx, now)
	if err != nil {
		return ResumenBarrido{Inicio: inicio}, fmt.Errorf("faltas: %w", err)
	}

	return ResumenBarrido{Inicio: inicio, Faltas: faltas}, nil
}

// ProcesarRecordatorios avisa a los asignados de eventos que inician dentro
// de la banda [now+15m, now+25m]. Cada evento se reclama con un update
// condicional antes de enviar; la entrega es a lo sumo una vez y los envíos
// fallidos no se reintentan.
func (s *Service) ProcesarRecordatorios(ctx context.Context, now time.Time) (int, error) {
	eventos, err := s.repo.EventosPorIniciar(ctx, now.Add(ventanaRecordatorioDesde), now.Add(ventanaRecordatorioHasta))
	if err != nil {
		return 0, err
	}

	procesados := 0
	for _, e := range eventos {
		claimed, err := s.repo.ClaimNotificadoInicio(ctx, e.ID)
		if err != nil {
			return procesados, err
		}
		if !claimed {
			continue
		}
		procesados++

		asignados, err := s.repo.AsignadosIDs(ctx, e.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("evento", e.ID.String()).Msg("notify: no se pudieron cargar asignados")
			continue
		}

		payload := Payload{
			Title: "Recordatorio: " + e.Titulo,
			Body:  fmt.Sprintf("La comisión inicia a las %s", e.Inicio.In(s.loc).Format("15:04")),
			URL:   "/eventos/" + e.ID.String(),
			Icon:  "/icons/192.png",
		}
		s.enviarAUsuarios(ctx, asignados, payload)
	}
	return procesados, nil
}

// ProcesarFaltas avisa a los asignados sin check-in de eventos iniciados en
// las últimas dos horas. Misma política de reclamo y a-lo-sumo-una-vez.
func (s *Service) ProcesarFaltas(ctx context.Context, now time.Time) (int, error) {
	eventos, err := s.repo.EventosConFalta(ctx, now.Add(-ventanaFaltas), now)
	if err != nil {
		return 0, err
	}

	procesados := 0
	for _, e := range eventos {
		claimed, err := s.repo.ClaimNotificadoFalta(ctx, e.ID)
		if err != nil {
			return procesados, err
		}
		if !claimed {
			continue
		}
		procesados++

		ausentes, err := s.repo.AsignadosSinAsistencia(ctx, e.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("evento", e.ID.String()).Msg("notify: no se pudieron calcular ausentes")
			continue
		}

		payload := Payload{
			Title: "Asistencia pendiente",
			Body:  fmt.Sprintf("No registraste asistencia en: %s", e.Titulo),
			URL:   "/eventos/" + e.ID.String(),
			Icon:  "/icons/192.png",
		}
		s.enviarAUsuarios(ctx, ausentes, payload)
	}
	return procesados, nil
}

// Difundir envía a todas las suscripciones del sistema. Cero dispositivos es
// un resultado exitoso, no un error.
func (s *Service) Difundir(ctx context.Context, titulo, cuerpo string) (ResumenDifusion, error) {
	subs, err := s.repo.ListAll(ctx)
	if err != nil {
		return ResumenDifusion{}, err
	}
	if len(subs) == 0 {
		return ResumenDifusion{Success: true, Total: 0, Results: []ResultadoEnvio{}}, nil
	}

	resultados := s.despachar(ctx, subs, Payload{Title: titulo, Body: cuerpo, URL: "/", Icon: "/icons/192.png"})
	return ResumenDifusion{Success: true, Total: len(subs), Results: resultados}, nil
}

// ErrSinSuscripciones indica que la cuenta destino no registró dispositivos.
var ErrSinSuscripciones = errors.New("el usuario no tiene dispositivos registrados")

// EnviarAUsuario entrega un mensaje puntual a todos los dispositivos de una
// cuenta.
func (s *Service) EnviarAUsuario(ctx context.Context, usuarioID uuid.UUID, titulo, cuerpo, url string) ([]ResultadoEnvio, error) {
	subs, err := s.repo.ListByUsuario(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrSinSuscripciones
	}
	if url == "" {
		url = "/"
	}
	return s.despachar(ctx, subs, Payload{Title: titulo, Body: cuerpo, URL: url, Icon: "/icons/192.png"}), nil
}

// RegistrarSuscripcion guarda (o refresca) el dispositivo del usuario.
func (s *Service) RegistrarSuscripcion(ctx context.Context, sub Suscripcion) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return s.repo.Upsert(ctx, sub)
}

// EliminarSuscripcion borra el dispositivo del propio usuario.
func (s *Service) EliminarSuscripcion(ctx context.Context, usuarioID uuid.UUID, endpoint string) error {
	return s.repo.DeleteByEndpoint(ctx, usuarioID, endpoint)
}

func (s *Service) enviarAUsuarios(ctx context.Context, usuarioIDs []uuid.UUID, payload Payload) {
	subs, err := s.repo.ListByUsuarios(ctx, usuarioIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("notify: no se pudieron cargar suscripciones")
		return
	}
	s.despachar(ctx, subs, payload)
}

// despachar abre en abanico los envíos: un intento independiente por
// suscripción, sin orden entre hermanos; un endpoint colgado no bloquea al
// resto y el llamador solo espera la finalización agregada. Los endpoints
// reportados como inexistentes se eliminan de inmediato.
func (s *Service) despachar(ctx context.Context, subs []Suscripcion, payload Payload) []ResultadoEnvio {
	resultados := make([]ResultadoEnvio, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub Suscripcion) {
			defer wg.Done()
			r := ResultadoEnvio{SuscripcionID: sub.ID, Status: "ok"}
			if err := s.sender.Enviar(ctx, sub, payload); err != nil {
				if errors.Is(err, ErrSuscripcionExpirada) {
					r.Status = "expirada"
				} else {
					r.Status = "error"
					r.Error = err.Error()
				}
			}
			resultados[i] = r
		}(i, sub)
	}
	wg.Wait()

	for _, r := range resultados {
		switch r.Status {
		case "expirada":
			if err := s.repo.DeleteByID(ctx, r.SuscripcionID); err != nil {
				s.logger.Error().Err(err).Str("suscripcion", r.SuscripcionID.String()).Msg("notify: no se pudo limpiar suscripción expirada")
			}
		case "error":
			s.logger.Warn().Str("suscripcion", r.SuscripcionID.String()).Str("detalle", r.Error).Msg("notify: envío fallido")
		}
	}

	return resultados
}
