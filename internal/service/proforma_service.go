package service

import (
	"context"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProformaService manages quotes. A proforma is editable while borrador,
// becomes sellable once confirmada and is closed by the sale that consumes it.
type ProformaService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearProformaRequest) (*dto.ProformaResponse, error)
	// Obtener is an advisory snapshot; RegistrarVenta re-reads everything.
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ProformaResponse, error)
	Listar(ctx context.Context, filter dto.ProformaFilter) (*dto.ProformaListResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarProformaRequest) (*dto.ProformaResponse, error)
	Confirmar(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ProformaResponse, error)
}

type proformaService struct {
	repo        repository.ProformaRepository
	clienteRepo repository.ClienteRepository
	secuencia   *Secuenciador
	auditoria   AuditoriaService
	igvRate     decimal.Decimal
	igvIncluido bool
	retrier     txRetrier
}

func NewProformaService(
	repo repository.ProformaRepository,
	clienteRepo repository.ClienteRepository,
	secuencia *Secuenciador,
	auditoria AuditoriaService,
	cfg VentaConfig,
) ProformaService {
	return &proformaService{
		repo:        repo,
		clienteRepo: clienteRepo,
		secuencia:   secuencia,
		auditoria:   auditoria,
		igvRate:     cfg.IGVRate,
		igvIncluido: cfg.IGVIncluido,
		retrier:     newTxRetrier(cfg.MaxRetries),
	}
}

func (s *proformaService) Crear(ctx context.Context, actor Actor, req dto.CrearProformaRequest) (*dto.ProformaResponse, error) {
	cliente, err := s.cliente(ctx, req.ClienteID)
	if err != nil {
		return nil, err
	}
	lineas, err := lineasProforma(req.Items)
	if err != nil {
		return nil, err
	}
	incluido := s.igvIncluido
	if req.IGVIncluido != nil {
		incluido = *req.IGVIncluido
	}
	totales := CalcularTotales(lineas, s.igvRate, incluido)

	var p model.Proforma
	err = s.retrier.run(ctx, s.repo.DB(), "crear_proforma", func(tx *gorm.DB) error {
		_, numero, err := s.secuencia.AsignarSecuenciaTx(ctx, tx, model.ContadorProformas, FormatoProforma)
		if err != nil {
			return err
		}
		p = model.Proforma{
			ID:            uuid.New(),
			Numero:        numero,
			ClienteID:     cliente.ID,
			ClienteNombre: cliente.Nombre,
			Base:          totales.Base,
			IGV:           totales.IGV,
			Total:         totales.Total,
			IGVIncluido:   incluido,
			IGVRate:       s.igvRate,
			Estado:        model.ProformaBorrador,
			CreatedBy:     actor.ID,
			Items:         proformaItems(lineas),
		}
		return s.repo.CreateTx(tx, &p)
	})
	if err != nil {
		return nil, err
	}

	s.registrar(ctx, actor, "proforma.create", &p, map[string]interface{}{
		"numero": p.Numero, "cliente": p.ClienteNombre, "total": p.Total,
	})
	resp := proformaToResponse(&p)
	return &resp, nil
}

func (s *proformaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ProformaResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrProformaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	resp := proformaToResponse(p)
	return &resp, nil
}

func (s *proformaService) Listar(ctx context.Context, filter dto.ProformaFilter) (*dto.ProformaListResponse, error) {
	ps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProformaResponse, len(ps))
	for i := range ps {
		data[i] = proformaToResponse(&ps[i])
	}
	return &dto.ProformaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *proformaService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarProformaRequest) (*dto.ProformaResponse, error) {
	var cliente *model.Cliente
	if req.ClienteID != nil {
		c, err := s.cliente(ctx, *req.ClienteID)
		if err != nil {
			return nil, err
		}
		cliente = c
	}
	var lineas []Linea
	if req.Items != nil {
		l, err := lineasProforma(req.Items)
		if err != nil {
			return nil, err
		}
		lineas = l
	}

	var p *model.Proforma
	err := s.retrier.run(ctx, s.repo.DB(), "actualizar_proforma", func(tx *gorm.DB) error {
		actual, err := s.repo.FindByIDTx(tx, id)
		if repository.IsNotFound(err) {
			return ErrProformaNoEncontrada
		}
		if err != nil {
			return err
		}
		if actual.Estado != model.ProformaBorrador {
			return ErrProformaNoEditable
		}
		prev := actual.Version

		if cliente != nil {
			actual.ClienteID = cliente.ID
			actual.ClienteNombre = cliente.Nombre
		}
		if req.IGVIncluido != nil {
			actual.IGVIncluido = *req.IGVIncluido
		}
		docLineas := lineas
		if docLineas == nil {
			docLineas = lineasDeItems(actual.Items)
		}
		t := CalcularTotales(docLineas, actual.IGVRate, actual.IGVIncluido)
		actual.Base, actual.IGV, actual.Total = t.Base, t.IGV, t.Total
		actual.Items = proformaItems(docLineas)

		if err := s.repo.UpdateTx(tx, actual, prev); err != nil {
			return err
		}
		actual.Version = prev + 1
		actual.UpdatedAt = time.Now()
		p = actual
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.registrar(ctx, actor, "proforma.update", p, map[string]interface{}{
		"numero": p.Numero, "total": p.Total, "items": len(p.Items),
	})
	resp := proformaToResponse(p)
	return &resp, nil
}

// Confirmar moves borrador to confirmada. Confirming twice is a no-op.
func (s *proformaService) Confirmar(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ProformaResponse, error) {
	var p *model.Proforma
	cambio := false
	err := s.retrier.run(ctx, s.repo.DB(), "confirmar_proforma", func(tx *gorm.DB) error {
		cambio = false
		actual, err := s.repo.FindByIDTx(tx, id)
		if repository.IsNotFound(err) {
			return ErrProformaNoEncontrada
		}
		if err != nil {
			return err
		}
		switch actual.Estado {
		case model.ProformaConfirmada:
			p = actual
			return nil
		case model.ProformaCerrada:
			return ErrProformaCerrada
		}
		if len(actual.Items) == 0 {
			return ErrSinItems
		}
		if err := s.repo.CambiarEstadoTx(tx, actual.ID, actual.Version, model.ProformaConfirmada); err != nil {
			return err
		}
		actual.Estado = model.ProformaConfirmada
		actual.Version++
		p = actual
		cambio = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cambio {
		s.registrar(ctx, actor, "proforma.confirm", p, map[string]interface{}{"numero": p.Numero})
	}
	resp := proformaToResponse(p)
	return &resp, nil
}

func (s *proformaService) cliente(ctx context.Context, raw string) (*model.Cliente, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &ValidacionError{Campos: map[string]string{"cliente_id": "uuid invalido"}}
	}
	c, err := s.clienteRepo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrClienteNoEncontrado
	}
	return c, err
}

func (s *proformaService) registrar(ctx context.Context, actor Actor, accion string, p *model.Proforma, payload map[string]interface{}) {
	id := p.ID.String()
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    accion,
		Entidad:   "proformas",
		EntidadID: &id,
		Payload:   payload,
		Actor:     actor,
	})
}

func lineasProforma(items []dto.LineaProformaRequest) ([]Linea, error) {
	if len(items) == 0 {
		return nil, ErrSinItems
	}
	in := make([]Linea, len(items))
	for i, it := range items {
		in[i] = Linea{Codigo: it.Codigo, Nombre: it.Nombre, Precio: it.Precio, Cant: it.Cant}
	}
	return normalizarLineas("items", in)
}

func lineasDeItems(items []model.ProformaItem) []Linea {
	out := make([]Linea, len(items))
	for i, it := range items {
		out[i] = Linea{Codigo: it.Codigo, Nombre: it.Nombre, Precio: it.Precio, Cant: it.Cant}
	}
	return out
}

func proformaItems(lineas []Linea) []model.ProformaItem {
	out := make([]model.ProformaItem, len(lineas))
	for i, l := range lineas {
		out[i] = model.ProformaItem{
			Posicion: i,
			Codigo:   l.Codigo,
			Nombre:   l.Nombre,
			Precio:   l.Precio,
			Cant:     l.Cant,
			Subtotal: l.Subtotal(),
		}
	}
	return out
}

func proformaToResponse(p *model.Proforma) dto.ProformaResponse {
	items := make([]dto.ItemVentaResponse, len(p.Items))
	for i, it := range p.Items {
		items[i] = dto.ItemVentaResponse{
			Codigo:   it.Codigo,
			Nombre:   it.Nombre,
			Precio:   it.Precio,
			Cant:     it.Cant,
			Subtotal: it.Subtotal,
		}
	}
	resp := dto.ProformaResponse{
		ID:            p.ID.String(),
		Numero:        p.Numero,
		ClienteID:     p.ClienteID.String(),
		ClienteNombre: p.ClienteNombre,
		Items:         items,
		Base:          p.Base,
		IGV:           p.IGV,
		Total:         p.Total,
		IGVIncluido:   p.IGVIncluido,
		IGVRate:       p.IGVRate,
		Estado:        p.Estado,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.VentaID != nil {
		v := p.VentaID.String()
		resp.VentaID = &v
	}
	if p.CerradaEn != nil {
		c := p.CerradaEn.Format(time.RFC3339)
		resp.CerradaEn = &c
	}
	return resp
}
