package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/infra"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ClienteService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error)
	// Eliminar refuses to delete a client that any proforma references.
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	// ConsultarDocumento looks a DNI or RUC up in the public registry to
	// pre-fill a new client. Nothing is stored.
	ConsultarDocumento(ctx context.Context, numero string) (*dto.DocumentoResponse, error)
}

// ConsultorDocumento is satisfied by *infra.DocumentoClient.
type ConsultorDocumento interface {
	Consultar(ctx context.Context, numero string) (*infra.DatosDocumento, error)
}

type clienteService struct {
	repo         repository.ClienteRepository
	proformaRepo repository.ProformaRepository
	auditoria    AuditoriaService
	documentos   ConsultorDocumento
}

func NewClienteService(repo repository.ClienteRepository, proformaRepo repository.ProformaRepository, auditoria AuditoriaService, documentos ConsultorDocumento) ClienteService {
	return &clienteService{repo: repo, proformaRepo: proformaRepo, auditoria: auditoria, documentos: documentos}
}

func (s *clienteService) Crear(ctx context.Context, actor Actor, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{
		Nombre:    strings.TrimSpace(req.Nombre),
		Email:     limpiarEmail(req.Email),
		Telefono:  strings.TrimSpace(req.Telefono),
		DniRuc:    strings.TrimSpace(req.DniRuc),
		Direccion: strings.TrimSpace(req.Direccion),
	}
	if len(c.Nombre) < 2 {
		return nil, &ValidacionError{Campos: map[string]string{"nombre": "minimo 2 caracteres"}}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.registrar(ctx, actor, "cliente.create", c)
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *clienteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrClienteNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *clienteService) Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error) {
	cs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ClienteResponse, len(cs))
	for i := range cs {
		data[i] = clienteToResponse(&cs[i])
	}
	return &dto.ClienteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *clienteService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrClienteNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if req.Nombre != nil {
		c.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Email != nil {
		c.Email = limpiarEmail(req.Email)
	}
	if req.Telefono != nil {
		c.Telefono = strings.TrimSpace(*req.Telefono)
	}
	if req.DniRuc != nil {
		c.DniRuc = strings.TrimSpace(*req.DniRuc)
	}
	if req.Direccion != nil {
		c.Direccion = strings.TrimSpace(*req.Direccion)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.registrar(ctx, actor, "cliente.update", c)
	resp := clienteToResponse(c)
	return &resp, nil
}

func (s *clienteService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	c, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return ErrClienteNoEncontrado
	}
	if err != nil {
		return err
	}
	n, err := s.proformaRepo.CountByCliente(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrClienteConProformas
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.registrar(ctx, actor, "cliente.delete", c)
	return nil
}

func (s *clienteService) ConsultarDocumento(ctx context.Context, numero string) (*dto.DocumentoResponse, error) {
	numero = strings.TrimSpace(numero)
	if !esDocumento(numero) {
		return nil, &ValidacionError{Campos: map[string]string{"numero": "DNI debe tener 8 digitos o RUC 11 digitos"}}
	}
	if s.documentos == nil {
		return nil, ErrConsultaDocumentoNoDisponible
	}

	d, err := s.documentos.Consultar(ctx, numero)
	switch {
	case errors.Is(err, infra.ErrDocumentoNoEncontrado):
		return nil, ErrDocumentoNoEncontrado
	case err != nil:
		log.Warn().Err(err).Str("numero", numero).Msg("cliente: document lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrConsultaDocumentoNoDisponible, err)
	}
	return &dto.DocumentoResponse{
		Tipo:      d.Tipo,
		Numero:    d.Numero,
		Nombre:    d.Nombre,
		Email:     d.Email,
		Telefono:  d.Telefono,
		Direccion: d.Direccion,
	}, nil
}

func esDocumento(n string) bool {
	if len(n) != 8 && len(n) != 11 {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *clienteService) registrar(ctx context.Context, actor Actor, accion string, c *model.Cliente) {
	id := c.ID.String()
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    accion,
		Entidad:   "clientes",
		EntidadID: &id,
		Payload:   map[string]interface{}{"nombre": c.Nombre, "dni_ruc": c.DniRuc},
		Actor:     actor,
	})
}

func limpiarEmail(e *string) *string {
	if e == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*e))
	if v == "" {
		return nil
	}
	return &v
}

func clienteToResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Email:     c.Email,
		Telefono:  c.Telefono,
		DniRuc:    c.DniRuc,
		Direccion: c.Direccion,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
