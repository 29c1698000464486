package evento

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alcaldiadigital/intranet/internal/bitacora"
)

var (
	// ErrSinResponsable indica que ningún asignado quedó como responsable.
	ErrSinResponsable = errors.New("el evento requiere exactamente un responsable")
	// ErrNoAsignado indica que el usuario no pertenece al evento.
	ErrNoAsignado = errors.New("usuario no asignado al evento")
)

type eventoRepository interface {
	InsertConAsignados(ctx context.Context, e Evento) error
	GetByID(ctx context.Context, id uuid.UUID) (Evento, error)
	List(ctx context.Context, limit int) ([]Evento, error)
	Aprobar(ctx context.Context, id uuid.UUID) error
	EsAsignado(ctx context.Context, eventoID, usuarioID uuid.UUID) (bool, error)
	InsertAsistencia(ctx context.Context, eventoID, usuarioID uuid.UUID) error
	SetActaURL(ctx context.Context, id uuid.UUID, url string) error
}

// Service concentra las reglas de comisiones y reuniones.
type Service struct {
	repo     eventoRepository
	bitacora *bitacora.Service
}

// NewService crea el servicio de eventos.
func NewService(repo eventoRepository, bit *bitacora.Service) *Service {
	return &Service{repo: repo, bitacora: bit}
}

// Crear valida y persiste el evento con sus asignados.
func (s *Service) Crear(ctx context.Context, titulo string, inicio time.Time, asignados []Asignado, creadorID uuid.UUID) (Evento, error) {
	if strings.TrimSpace(titulo) == "" {
		return Evento{}, errors.New("título obligatorio")
	}

	responsables := 0
	for _, a := range asignados {
		if a.Responsable {
			responsables++
		}
	}
	if responsables != 1 {
		return Evento{}, ErrSinResponsable
	}

	e := Evento{
		ID:        uuid.New(),
		Titulo:    strings.TrimSpace(titulo),
		Inicio:    inicio,
		Asignados: asignados,
	}
	if err := s.repo.InsertConAsignados(ctx, e); err != nil {
		return Evento{}, err
	}

	s.bitacora.Registrar(ctx, bitacora.AccionEventoCreado, e.Titulo, "eventos", &creadorID)
	return e, nil
}

// Listar devuelve los eventos recientes.
func (s *Service) Listar(ctx context.Context, limit int) ([]Evento, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}

// Aprobar habilita el evento para los barridos de notificación.
func (s *Service) Aprobar(ctx context.Context, id uuid.UUID) error {
	return s.repo.Aprobar(ctx, id)
}

// RegistrarAsistencia guarda el check-in del propio usuario.
func (s *Service) RegistrarAsistencia(ctx context.Context, eventoID, usuarioID uuid.UUID) error {
	asignado, err := s.repo.EsAsignado(ctx, eventoID, usuarioID)
	if err != nil {
		return err
	}
	if !asignado {
		return ErrNoAsignado
	}
	if err := s.repo.InsertAsistencia(ctx, eventoID, usuarioID); err != nil {
		return err
	}
	s.bitacora.Registrar(ctx, bitacora.AccionAsistencia, "check-in evento "+eventoID.String(), "eventos", &usuarioID)
	return nil
}

// GuardarActa asocia la URL del acta subida al evento.
func (s *Service) GuardarActa(ctx context.Context, id uuid.UUID, url string) error {
	return s.repo.SetActaURL(ctx, id, url)
}

// Get carga un evento puntual.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Evento, error) {
	return s.repo.GetByID(ctx, id)
}
