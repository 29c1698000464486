package bitacora

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type inserter interface {
	Insert(ctx context.Context, e Entrada) error
	ListRecent(ctx context.Context, limit int) ([]Entrada, error)
}

// Service escribe y consulta la bitácora del sistema.
type Service struct {
	repo inserter
}

// NewService crea el servicio de bitácora.
func NewService(repo inserter) *Service {
	return &Service{repo: repo}
}

// Registrar agrega una entrada con mejor esfuerzo: una falla al auditar se
// registra en el log del servidor y no interrumpe la operación que la originó.
func (s *Service) Registrar(ctx context.Context, accion, descripcion, modulo string, usuarioID *uuid.UUID) {
	e := Entrada{
		ID:          uuid.New(),
		Accion:      accion,
		Descripcion: descripcion,
		Modulo:      modulo,
		UsuarioID:   usuarioID,
		CreadoEn:    time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		log.Error().Err(err).Str("accion", accion).Msg("bitácora: no se pudo registrar")
	}
}

// Recientes lista las últimas entradas.
func (s *Service) Recientes(ctx context.Context, limit int) ([]Entrada, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListRecent(ctx, limit)
}
