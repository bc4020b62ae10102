package service

import (
	"context"
	"fmt"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// umbralBajoStock is the stock level at or below which a product is reported
// in the low-stock alerts.
const umbralBajoStock = 5

// LineaStock is a (code, quantity) request against inventory.
type LineaStock struct {
	Codigo string
	Cant   int
}

// ReservaStock is a validated line: the product as read inside the
// transaction plus the total quantity requested for it.
type ReservaStock struct {
	Producto model.Producto
	Cant     int
}

func (r ReservaStock) StockNuevo() int { return r.Producto.Stock - r.Cant }

type InventarioService interface {
	// ValidarStockTx is read-only: every line is checked before anything is
	// written, and the first failing line (in input order) decides the error.
	ValidarStockTx(ctx context.Context, tx *gorm.DB, lineas []LineaStock) ([]ReservaStock, error)
	// DescontarStockTx writes the reductions validated by ValidarStockTx.
	DescontarStockTx(ctx context.Context, tx *gorm.DB, reservas []ReservaStock, ventaID uuid.UUID) error

	AjustarStock(ctx context.Context, actor Actor, productoID uuid.UUID, req dto.AjustarStockRequest) (*dto.ProductoResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
	ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
}

type inventarioService struct {
	productoRepo   repository.ProductoRepository
	movimientoRepo repository.MovimientoStockRepository
	auditoria      AuditoriaService
	cache          *ProductoCache
	retrier        txRetrier
}

func NewInventarioService(
	productoRepo repository.ProductoRepository,
	movimientoRepo repository.MovimientoStockRepository,
	auditoria AuditoriaService,
	cache *ProductoCache,
	maxRetries int,
) InventarioService {
	return &inventarioService{
		productoRepo:   productoRepo,
		movimientoRepo: movimientoRepo,
		auditoria:      auditoria,
		cache:          cache,
		retrier:        newTxRetrier(maxRetries),
	}
}

// ── Validate / Reduce ────────────────────────────────────────────────────────

func (s *inventarioService) ValidarStockTx(_ context.Context, tx *gorm.DB, lineas []LineaStock) ([]ReservaStock, error) {
	// Lines repeating a code are summed so the comparison sees the full demand.
	orden := make([]string, 0, len(lineas))
	pedido := make(map[string]int, len(lineas))
	for _, l := range lineas {
		if _, ok := pedido[l.Codigo]; !ok {
			orden = append(orden, l.Codigo)
		}
		pedido[l.Codigo] += l.Cant
	}

	reservas := make([]ReservaStock, 0, len(orden))
	for _, codigo := range orden {
		p, err := s.productoRepo.FindByCodigoTx(tx, codigo)
		if repository.IsNotFound(err) {
			return nil, &ProductoNoEncontradoError{Codigo: codigo}
		}
		if err != nil {
			return nil, fmt.Errorf("leyendo producto %s: %w", codigo, err)
		}
		if !p.Activo {
			return nil, &ProductoNoEncontradoError{Codigo: codigo}
		}
		if p.Stock < pedido[codigo] {
			return nil, &StockInsuficienteError{
				Codigo:     p.Codigo,
				Nombre:     p.Nombre,
				Disponible: p.Stock,
				Solicitado: pedido[codigo],
			}
		}
		reservas = append(reservas, ReservaStock{Producto: *p, Cant: pedido[codigo]})
	}
	return reservas, nil
}

func (s *inventarioService) DescontarStockTx(_ context.Context, tx *gorm.DB, reservas []ReservaStock, ventaID uuid.UUID) error {
	for _, r := range reservas {
		nuevo := r.StockNuevo()
		if nuevo < 0 {
			return &StockInsuficienteError{
				Codigo:     r.Producto.Codigo,
				Nombre:     r.Producto.Nombre,
				Disponible: r.Producto.Stock,
				Solicitado: r.Cant,
			}
		}
		if err := s.productoRepo.UpdateStockTx(tx, r.Producto.ID, r.Producto.Version, nuevo); err != nil {
			return err
		}
		ref := ventaID
		mov := &model.MovimientoStock{
			ProductoID:    r.Producto.ID,
			Codigo:        r.Producto.Codigo,
			Tipo:          "venta",
			Cantidad:      -r.Cant,
			StockAnterior: r.Producto.Stock,
			StockNuevo:    nuevo,
			Motivo:        "Venta",
			ReferenciaID:  &ref,
		}
		if err := s.movimientoRepo.CreateTx(tx, mov); err != nil {
			return err
		}
	}
	return nil
}

// ── Manual adjustments ───────────────────────────────────────────────────────

func (s *inventarioService) AjustarStock(ctx context.Context, actor Actor, productoID uuid.UUID, req dto.AjustarStockRequest) (*dto.ProductoResponse, error) {
	var producto model.Producto
	var anterior int

	err := s.retrier.run(ctx, s.productoRepo.DB(), "ajustar_stock", func(tx *gorm.DB) error {
		p, err := s.productoRepo.FindByIDTx(tx, productoID)
		if repository.IsNotFound(err) {
			return ErrProductoNoEncontrado
		}
		if err != nil {
			return err
		}
		nuevo := p.Stock + req.Delta
		if nuevo < 0 {
			return &StockInsuficienteError{Codigo: p.Codigo, Nombre: p.Nombre, Disponible: p.Stock, Solicitado: -req.Delta}
		}
		if err := s.productoRepo.UpdateStockTx(tx, p.ID, p.Version, nuevo); err != nil {
			return err
		}
		mov := &model.MovimientoStock{
			ProductoID:    p.ID,
			Codigo:        p.Codigo,
			Tipo:          "ajuste_manual",
			Cantidad:      req.Delta,
			StockAnterior: p.Stock,
			StockNuevo:    nuevo,
			Motivo:        req.Motivo,
		}
		if err := s.movimientoRepo.CreateTx(tx, mov); err != nil {
			return err
		}
		anterior = p.Stock
		producto = *p
		producto.Stock = nuevo
		producto.Version++
		producto.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidarOAvisar(ctx, "producto.stock-adjust", producto.Codigo)
	id := producto.ID.String()
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    "producto.stock-adjust",
		Entidad:   "productos",
		EntidadID: &id,
		Payload: map[string]interface{}{
			"codigo":   producto.Codigo,
			"anterior": anterior,
			"nuevo":    producto.Stock,
			"motivo":   req.Motivo,
		},
		Actor: actor,
	})

	resp := productoToResponse(&producto)
	return &resp, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	f := repository.MovimientoStockFilter{Tipo: filter.Tipo, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		id, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, &ValidacionError{Campos: map[string]string{"producto_id": "uuid invalido"}}
		}
		f.ProductoID = &id
	}
	movs, total, err := s.movimientoRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, len(movs))
	for i, m := range movs {
		var ref *string
		if m.ReferenciaID != nil {
			r := m.ReferenciaID.String()
			ref = &r
		}
		data[i] = dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			ProductoID:    m.ProductoID.String(),
			Codigo:        m.Codigo,
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			ReferenciaID:  ref,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		}
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *inventarioService) ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	productos, err := s.productoRepo.ListBajoStock(ctx, umbralBajoStock)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, len(productos))
	for i, p := range productos {
		out[i] = dto.AlertaStockResponse{
			ProductoID: p.ID.String(),
			Codigo:     p.Codigo,
			Nombre:     p.Nombre,
			Stock:      p.Stock,
			Umbral:     umbralBajoStock,
		}
	}
	return out, nil
}
