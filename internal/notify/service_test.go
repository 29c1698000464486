package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubNotifyRepo struct {
	subsPorUsuario map[uuid.UUID][]Suscripcion
	eventosInicio  []EventoPendiente
	eventosFalta   []EventoPendiente
	asignados      map[uuid.UUID][]uuid.UUID
	ausentes       map[uuid.UUID][]uuid.UUID

	claimInicio map[uuid.UUID]bool
	claimFalta  map[uuid.UUID]bool
	eliminadas  []uuid.UUID
}

func newStubNotifyRepo() *stubNotifyRepo {
	return &stubNotifyRepo{
		subsPorUsuario: make(map[uuid.UUID][]Suscripcion),
		asignados:      make(map[uuid.UUID][]uuid.UUID),
		ausentes:       make(map[uuid.UUID][]uuid.UUID),
		claimInicio:    make(map[uuid.UUID]bool),
		claimFalta:     make(map[uuid.UUID]bool),
	}
}

func (s *stubNotifyRepo) ListByUsuario(ctx context.Context, usuarioID uuid.UUID) ([]Suscripcion, error) {
	return s.subsPorUsuario[usuarioID], nil
}

func (s *stubNotifyRepo) ListByUsuarios(ctx context.Context, usuarioIDs []uuid.UUID) ([]Suscripcion, error) {
	var out []Suscripcion
	for _, id := range usuarioIDs {
		out = append(out, s.subsPorUsuario[id]...)
	}
	return out, nil
}

func (s *stubNotifyRepo) ListAll(ctx context.Context) ([]Suscripcion, error) {
	var out []Suscripcion
	for _, subs := range s.subsPorUsuario {
		out = append(out, subs...)
	}
	return out, nil
}

func (s *stubNotifyRepo) Upsert(ctx context.Context, sub Suscripcion) error {
	s.subsPorUsuario[sub.UsuarioID] = append(s.subsPorUsuario[sub.UsuarioID], sub)
	return nil
}

func (s *stubNotifyRepo) DeleteByEndpoint(ctx context.Context, usuarioID uuid.UUID, endpoint string) error {
	return nil
}

func (s *stubNotifyRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.eliminadas = append(s.eliminadas, id)
	return nil
}

func (s *stubNotifyRepo) EventosPorIniciar(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error) {
	var out []EventoPendiente
	for _, e := range s.eventosInicio {
		if s.claimInicio[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubNotifyRepo) EventosConFalta(ctx context.Context, desde, hasta time.Time) ([]EventoPendiente, error) {
	var out []EventoPendiente
	for _, e := range s.eventosFalta {
		if s.claimFalta[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubNotifyRepo) ClaimNotificadoInicio(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.claimInicio[id] {
		return false, nil
	}
	s.claimInicio[id] = true
	return true, nil
}

func (s *stubNotifyRepo) ClaimNotificadoFalta(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.claimFalta[id] {
		return false, nil
	}
	s.claimFalta[id] = true
	return true, nil
}

func (s *stubNotifyRepo) AsignadosIDs(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error) {
	return s.asignados[eventoID], nil
}

func (s *stubNotifyRepo) AsignadosSinAsistencia(ctx context.Context, eventoID uuid.UUID) ([]uuid.UUID, error) {
	return s.ausentes[eventoID], nil
}

type stubSender struct {
	mu       sync.Mutex
	enviados []Suscripcion
	fallos   map[uuid.UUID]error
}

func (s *stubSender) Enviar(ctx context.Context, sub Suscripcion, payload Payload) error {
	s.mu.Lock()
	s.enviados = append(s.enviados, sub)
	s.mu.Unlock()
	if err, ok := s.fallos[sub.ID]; ok {
		return err
	}
	return nil
}

func (s *stubSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.enviados)
}

func suscripcionDe(usuarioID uuid.UUID) Suscripcion {
	return Suscripcion{
		ID:        uuid.New(),
		UsuarioID: usuarioID,
		Endpoint:  "https://push.example/" + uuid.NewString(),
		P256dh:    "p256dh",
		Auth:      "auth",
	}
}

func nuevoNotifyService(repo *stubNotifyRepo, sender *stubSender) *Service {
	return NewService(repo, sender, time.UTC, zerolog.Nop(), 0)
}

func TestProcesarRecordatoriosReclamaUnaVez(t *testing.T) {
	repo := newStubNotifyRepo()
	sender := &stubSender{}
	svc := nuevoNotifyService(repo, sender)

	asignado := uuid.New()
	repo.subsPorUsuario[asignado] = []Suscripcion{suscripcionDe(asignado)}

	evento := EventoPendiente{ID: uuid.New(), Titulo: "Comisión de obras", Inicio: time.Now().Add(20 * time.Minute)}
	repo.eventosInicio = []EventoPendiente{evento}
	repo.asignados[evento.ID] = []uuid.UUID{asignado}

	now := time.Now()
	procesados, err := svc.ProcesarRecordatorios(context.Background(), now)
	if err != nil {
		t.Fatalf("primer barrido falló: %v", err)
	}
	if procesados != 1 {
		t.Fatalf("esperaba 1 evento procesado, obtuve %d", procesados)
	}
	if sender.total() != 1 {
		t.Fatalf("esperaba 1 envío, obtuve %d", sender.total())
	}

	// Segundo barrido: el evento ya fue reclamado y no se repite.
	procesados, err = svc.ProcesarRecordatorios(context.Background(), now)
	if err != nil {
		t.Fatalf("segundo barrido falló: %v", err)
	}
	if procesados != 0 {
		t.Fatalf("el segundo barrido no debe reprocesar, obtuve %d", procesados)
	}
	if sender.total() != 1 {
		t.Fatalf("el segundo barrido no debe reenviar, total %d", sender.total())
	}
}

func TestProcesarFaltasSoloAusentes(t *testing.T) {
	repo := newStubNotifyRepo()
	sender := &stubSender{}
	svc := nuevoNotifyService(repo, sender)

	presente := uuid.New()
	ausente := uuid.New()
	repo.subsPorUsuario[presente] = []Suscripcion{suscripcionDe(presente)}
	repo.subsPorUsuario[ausente] = []Suscripcion{suscripcionDe(ausente)}

	evento := EventoPendiente{ID: uuid.New(), Titulo: "Reunión de gabinete", Inicio: time.Now().Add(-time.Hour)}
	repo.eventosFalta = []EventoPendiente{evento}
	repo.ausentes[evento.ID] = []uuid.UUID{ausente}

	procesados, err := svc.ProcesarFaltas(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("barrido de faltas falló: %v", err)
	}
	if procesados != 1 {
		t.Fatalf("esperaba 1 evento procesado, obtuve %d", procesados)
	}
	if sender.total() != 1 {
		t.Fatalf("solo el ausente debe recibir aviso, envíos: %d", sender.total())
	}
	if sender.enviados[0].UsuarioID != ausente {
		t.Fatal("el aviso llegó al usuario equivocado")
	}
}

func TestDifundirSinSuscripcionesEsExito(t *testing.T) {
	svc := nuevoNotifyService(newStubNotifyRepo(), &stubSender{})

	resumen, err := svc.Difundir(context.Background(), "Aviso", "Sin destinatarios")
	if err != nil {
		t.Fatalf("difusión vacía falló: %v", err)
	}
	if !resumen.Success || resumen.Total != 0 {
		t.Fatalf("esperaba éxito con total 0, obtuve %+v", resumen)
	}
}

func TestDifundirLimpiaSuscripcionesExpiradas(t *testing.T) {
	repo := newStubNotifyRepo()

	usuario := uuid.New()
	viva := suscripcionDe(usuario)
	muerta := suscripcionDe(usuario)
	inestable := suscripcionDe(usuario)
	repo.subsPorUsuario[usuario] = []Suscripcion{viva, muerta, inestable}

	sender := &stubSender{fallos: map[uuid.UUID]error{
		muerta.ID:    ErrSuscripcionExpirada,
		inestable.ID: errors.New("timeout"),
	}}
	svc := nuevoNotifyService(repo, sender)

	resumen, err := svc.Difundir(context.Background(), "Aviso", "Cuerpo")
	if err != nil {
		t.Fatalf("difusión falló: %v", err)
	}
	if resumen.Total != 3 {
		t.Fatalf("esperaba total 3, obtuve %d", resumen.Total)
	}

	estados := make(map[uuid.UUID]string, len(resumen.Results))
	for _, r := range resumen.Results {
		estados[r.SuscripcionID] = r.Status
	}
	if estados[viva.ID] != "ok" || estados[muerta.ID] != "expirada" || estados[inestable.ID] != "error" {
		t.Fatalf("estados inesperados: %v", estados)
	}

	// Solo el endpoint reportado como inexistente se elimina.
	if len(repo.eliminadas) != 1 || repo.eliminadas[0] != muerta.ID {
		t.Fatalf("esperaba eliminar solo la suscripción expirada, eliminadas: %v", repo.eliminadas)
	}
}

func TestEnviarAUsuarioSinDispositivos(t *testing.T) {
	svc := nuevoNotifyService(newStubNotifyRepo(), &stubSender{})

	_, err := svc.EnviarAUsuario(context.Background(), uuid.New(), "Título", "Cuerpo", "")
	if !errors.Is(err, ErrSinSuscripciones) {
		t.Fatalf("esperaba ErrSinSuscripciones, obtuve %v", err)
	}
}
