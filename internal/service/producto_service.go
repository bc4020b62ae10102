package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error
	// ImportarCSV reads "codigo,nombre,precio,stock,impuesto" rows. Known codes
	// are updated (stock through a recorded adjustment), unknown ones created.
	ImportarCSV(ctx context.Context, actor Actor, r io.Reader) (*dto.ImportarCSVResponse, error)
}

type productoService struct {
	repo       repository.ProductoRepository
	secuencia  *Secuenciador
	inventario InventarioService
	auditoria  AuditoriaService
	cache      *ProductoCache
	retrier    txRetrier
}

func NewProductoService(
	repo repository.ProductoRepository,
	secuencia *Secuenciador,
	inventario InventarioService,
	auditoria AuditoriaService,
	cache *ProductoCache,
	maxRetries int,
) ProductoService {
	return &productoService{
		repo:       repo,
		secuencia:  secuencia,
		inventario: inventario,
		auditoria:  auditoria,
		cache:      cache,
		retrier:    newTxRetrier(maxRetries),
	}
}

func (s *productoService) Crear(ctx context.Context, actor Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	codigo := strings.ToUpper(strings.TrimSpace(req.Codigo))
	nombre := strings.TrimSpace(req.Nombre)

	verr := &ValidacionError{}
	if len(nombre) < 2 {
		verr.add("nombre", "minimo 2 caracteres")
	}
	if req.Precio.IsNegative() {
		verr.add("precio", "debe ser mayor o igual a 0")
	}
	if req.Stock < 0 {
		verr.add("stock", "debe ser mayor o igual a 0")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	var p model.Producto
	err := s.retrier.run(ctx, s.repo.DB(), "crear_producto", func(tx *gorm.DB) error {
		p = model.Producto{
			Codigo:   codigo,
			Nombre:   nombre,
			Precio:   req.Precio,
			Stock:    req.Stock,
			Impuesto: req.Impuesto,
			Activo:   true,
		}
		if p.Codigo == "" {
			_, numero, err := s.secuencia.AsignarSecuenciaTx(ctx, tx, model.ContadorProductos, FormatoProducto)
			if err != nil {
				return err
			}
			p.Codigo = numero
		}
		return s.repo.CreateTx(tx, &p)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrCodigoDuplicado
	}
	if err != nil {
		return nil, err
	}

	id := p.ID.String()
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    "producto.create",
		Entidad:   "productos",
		EntidadID: &id,
		Payload:   map[string]interface{}{"codigo": p.Codigo, "nombre": p.Nombre, "precio": p.Precio, "stock": p.Stock},
		Actor:     actor,
	})
	log.Info().Str("codigo", p.Codigo).Msg("producto creado")

	resp := productoToResponse(&p)
	return &resp, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrProductoNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error) {
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if cached, err := s.cache.Get(ctx, codigo); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		log.Debug().Err(err).Str("codigo", codigo).Msg("producto cache: read failed")
	}

	p, err := s.repo.FindByCodigo(ctx, codigo)
	if repository.IsNotFound(err) {
		return nil, ErrProductoNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	resp := productoToResponse(p)
	if err := s.cache.Set(ctx, &resp); err != nil {
		log.Debug().Err(err).Str("codigo", codigo).Msg("producto cache: write failed")
	}
	return &resp, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, len(productos))
	for i := range productos {
		data[i] = productoToResponse(&productos[i])
	}
	pages := 0
	if filter.Limit > 0 {
		pages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pages,
	}, nil
}

func (s *productoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrProductoNoEncontrado
	}
	if err != nil {
		return nil, err
	}

	cambios := map[string]interface{}{}
	if req.Nombre != nil {
		p.Nombre = strings.TrimSpace(*req.Nombre)
		cambios["nombre"] = p.Nombre
	}
	if req.Precio != nil {
		if req.Precio.IsNegative() {
			return nil, &ValidacionError{Campos: map[string]string{"precio": "debe ser mayor o igual a 0"}}
		}
		p.Precio = *req.Precio
		cambios["precio"] = p.Precio
	}
	if req.Impuesto != nil {
		p.Impuesto = *req.Impuesto
		cambios["impuesto"] = p.Impuesto
	}
	if req.Activo != nil {
		p.Activo = *req.Activo
		cambios["activo"] = p.Activo
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.cache.invalidarOAvisar(ctx, "producto.update", p.Codigo)

	sid := p.ID.String()
	cambios["codigo"] = p.Codigo
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    "producto.update",
		Entidad:   "productos",
		EntidadID: &sid,
		Payload:   cambios,
		Actor:     actor,
	})

	resp := productoToResponse(p)
	return &resp, nil
}

// Desactivar hides the product from sales; products are never hard-deleted
// because sale lines keep referencing their code.
func (s *productoService) Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return ErrProductoNoEncontrado
	}
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.cache.invalidarOAvisar(ctx, "producto.disable", p.Codigo)

	sid := id.String()
	s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    "producto.disable",
		Entidad:   "productos",
		EntidadID: &sid,
		Payload:   map[string]interface{}{"codigo": p.Codigo},
		Actor:     actor,
	})
	return nil
}

// ── CSV import ───────────────────────────────────────────────────────────────

var columnasCSV = []string{"codigo", "nombre", "precio", "stock", "impuesto"}

func (s *productoService) ImportarCSV(ctx context.Context, actor Actor, r io.Reader) (*dto.ImportarCSVResponse, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	out := &dto.ImportarCSVResponse{Errores: []dto.ErrorFilaCSV{}}
	fila := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		fila++
		if err != nil {
			out.Errores = append(out.Errores, dto.ErrorFilaCSV{Fila: fila, Motivo: "fila ilegible"})
			continue
		}
		if fila == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), columnasCSV[0]) {
			continue
		}

		req, err := parseFilaCSV(rec)
		if err != nil {
			out.Errores = append(out.Errores, dto.ErrorFilaCSV{Fila: fila, Codigo: codigoDeFila(rec), Motivo: err.Error()})
			continue
		}

		creado, err := s.importarFila(ctx, actor, req)
		if err != nil {
			out.Errores = append(out.Errores, dto.ErrorFilaCSV{Fila: fila, Codigo: req.Codigo, Motivo: err.Error()})
			continue
		}
		if creado {
			out.Creados++
		} else {
			out.Actualizados++
		}
	}

	log.Info().
		Int("creados", out.Creados).
		Int("actualizados", out.Actualizados).
		Int("errores", len(out.Errores)).
		Msg("importacion CSV de productos")
	return out, nil
}

// importarFila reports true when the row created a new product.
func (s *productoService) importarFila(ctx context.Context, actor Actor, req dto.CrearProductoRequest) (bool, error) {
	if req.Codigo == "" {
		_, err := s.Crear(ctx, actor, req)
		return true, err
	}

	existente, err := s.repo.FindByCodigo(ctx, req.Codigo)
	if repository.IsNotFound(err) {
		_, err := s.Crear(ctx, actor, req)
		return true, err
	}
	if err != nil {
		return false, err
	}

	activo := true
	if _, err := s.Actualizar(ctx, actor, existente.ID, dto.ActualizarProductoRequest{
		Nombre:   &req.Nombre,
		Precio:   &req.Precio,
		Impuesto: &req.Impuesto,
		Activo:   &activo,
	}); err != nil {
		return false, err
	}
	if delta := req.Stock - existente.Stock; delta != 0 {
		if _, err := s.inventario.AjustarStock(ctx, actor, existente.ID, dto.AjustarStockRequest{
			Delta:  delta,
			Motivo: "Importacion CSV",
		}); err != nil {
			return false, err
		}
	}
	return false, nil
}

func parseFilaCSV(rec []string) (dto.CrearProductoRequest, error) {
	if len(rec) < 4 {
		return dto.CrearProductoRequest{}, fmt.Errorf("se esperaban al menos 4 columnas (%s)", strings.Join(columnasCSV, ","))
	}
	campo := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	req := dto.CrearProductoRequest{
		Codigo: strings.ToUpper(campo(0)),
		Nombre: campo(1),
	}
	precio, err := decimal.NewFromString(campo(2))
	if err != nil || precio.IsNegative() {
		return req, errors.New("precio invalido")
	}
	req.Precio = precio

	stock, err := strconv.Atoi(campo(3))
	if err != nil || stock < 0 {
		return req, errors.New("stock invalido")
	}
	req.Stock = stock

	if v := campo(4); v != "" {
		imp, err := decimal.NewFromString(v)
		if err != nil || imp.IsNegative() {
			return req, errors.New("impuesto invalido")
		}
		req.Impuesto = imp
	}
	if len(req.Nombre) < 2 {
		return req, errors.New("nombre invalido")
	}
	return req, nil
}

func codigoDeFila(rec []string) string {
	if len(rec) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(rec[0]))
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	return dto.ProductoResponse{
		ID:        p.ID.String(),
		Codigo:    p.Codigo,
		Nombre:    p.Nombre,
		Precio:    p.Precio,
		Stock:     p.Stock,
		Impuesto:  p.Impuesto,
		Activo:    p.Activo,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
