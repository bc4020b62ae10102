package service

import (
	"context"
	"encoding/json"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/repository"
	"gestionventas/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Actor identifies who performs an operation. It is passed explicitly from
// the authenticated request down to the services.
type Actor struct {
	ID       uuid.UUID
	Username string
	Rol      string
}

// EventoAuditoria describes something worth keeping in the audit trail.
type EventoAuditoria struct {
	Accion    string
	Entidad   string
	EntidadID *string
	Payload   interface{}
	Actor     Actor
}

type AuditoriaService interface {
	// Registrar is fire-and-forget: it never fails the caller. It reports
	// whether the entry was accepted by the queue or the database.
	Registrar(ctx context.Context, ev EventoAuditoria) bool
	Listar(ctx context.Context, filter dto.AuditoriaFilter) (*dto.AuditoriaListResponse, error)
}

type auditoriaService struct {
	repo       repository.AuditoriaRepository
	dispatcher JobDispatcher
}

func NewAuditoriaService(repo repository.AuditoriaRepository, dispatcher JobDispatcher) AuditoriaService {
	return &auditoriaService{repo: repo, dispatcher: dispatcher}
}

// Registrar tries the redis queue first, then a direct insert, then gives up
// with a warning.
func (s *auditoriaService) Registrar(ctx context.Context, ev EventoAuditoria) bool {
	payload := toAuditoriaPayload(ev)

	if s.dispatcher != nil {
		err := s.dispatcher.EnqueueAuditoria(ctx, payload)
		if err == nil {
			return true
		}
		log.Debug().Err(err).Str("accion", ev.Accion).Msg("auditoria: enqueue failed, writing directly")
	}

	if s.repo != nil {
		err := s.repo.Create(ctx, payload.ToModel())
		if err == nil {
			return true
		}
		log.Warn().Err(err).Str("accion", ev.Accion).Str("entidad", ev.Entidad).Msg("auditoria: entry lost")
		return false
	}
	log.Warn().Str("accion", ev.Accion).Str("entidad", ev.Entidad).Msg("auditoria: no sink available, entry lost")
	return false
}

func toAuditoriaPayload(ev EventoAuditoria) worker.AuditoriaJobPayload {
	raw, err := json.Marshal(ev.Payload)
	if err != nil || ev.Payload == nil {
		raw = json.RawMessage(`{}`)
	}
	p := worker.AuditoriaJobPayload{
		Accion:     ev.Accion,
		Entidad:    ev.Entidad,
		EntidadID:  ev.EntidadID,
		Payload:    raw,
		OcurridoEn: time.Now(),
	}
	if ev.Actor.ID != uuid.Nil {
		id := ev.Actor.ID.String()
		p.UsuarioID = &id
	}
	if ev.Actor.Username != "" {
		u := ev.Actor.Username
		p.Username = &u
	}
	if ev.Actor.Rol != "" {
		r := ev.Actor.Rol
		p.Rol = &r
	}
	return p
}

func (s *auditoriaService) Listar(ctx context.Context, filter dto.AuditoriaFilter) (*dto.AuditoriaListResponse, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.AuditoriaResponse, len(entries))
	for i, a := range entries {
		var uid *string
		if a.UsuarioID != nil {
			s := a.UsuarioID.String()
			uid = &s
		}
		payload := json.RawMessage(a.Payload)
		if !json.Valid(payload) {
			payload = json.RawMessage(`{}`)
		}
		data[i] = dto.AuditoriaResponse{
			ID:        a.ID.String(),
			Accion:    a.Accion,
			Entidad:   a.Entidad,
			EntidadID: a.EntidadID,
			Payload:   payload,
			UsuarioID: uid,
			Username:  a.Username,
			Rol:       a.Rol,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
	}
	return &dto.AuditoriaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
