package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"
	"gestionventas/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("gestionventas/service")

type VentaService interface {
	RegistrarVenta(ctx context.Context, actor Actor, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	// ObtenerPDF returns the path of the generated PDF receipt.
	ObtenerPDF(ctx context.Context, ventaID uuid.UUID) (string, error)
}

// VentaConfig carries the pricing and retry settings of the sale transaction.
type VentaConfig struct {
	IGVRate     decimal.Decimal
	IGVIncluido bool
	MaxRetries  int
}

type ventaService struct {
	repo            repository.VentaRepository
	proformaRepo    repository.ProformaRepository
	clienteRepo     repository.ClienteRepository
	comprobanteRepo repository.ComprobanteRepository
	secuencia       *Secuenciador
	inventario      InventarioService
	auditoria       AuditoriaService
	dispatcher      JobDispatcher
	cache           *ProductoCache
	eventos         EventPublisher
	cfg             VentaConfig
	retrier         txRetrier
}

func NewVentaService(
	repo repository.VentaRepository,
	proformaRepo repository.ProformaRepository,
	clienteRepo repository.ClienteRepository,
	comprobanteRepo repository.ComprobanteRepository,
	secuencia *Secuenciador,
	inventario InventarioService,
	auditoria AuditoriaService,
	dispatcher JobDispatcher,
	cache *ProductoCache,
	eventos EventPublisher,
	cfg VentaConfig,
) VentaService {
	return &ventaService{
		repo:            repo,
		proformaRepo:    proformaRepo,
		clienteRepo:     clienteRepo,
		comprobanteRepo: comprobanteRepo,
		secuencia:       secuencia,
		inventario:      inventario,
		auditoria:       auditoria,
		dispatcher:      dispatcher,
		cache:           cache,
		eventos:         eventos,
		cfg:             cfg,
		retrier:         newTxRetrier(cfg.MaxRetries),
	}
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// Before the transaction: reject empty or malformed lines, compute totals,
// short-circuit on a known idempotency key.
// One transaction, retried as a whole on conflict:
//   1. load the proforma (must be confirmada)
//   2. validate stock for every line
//   3. allocate the "ventas" number
//   4. insert venta + items
//   5. reduce stock
//   6. close the proforma
// After commit, best effort: audit, receipt job, cache invalidation.

func (s *ventaService) RegistrarVenta(ctx context.Context, actor Actor, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	ctx, span := tracer.Start(ctx, "VentaService.RegistrarVenta")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrSinItems
	}

	entrada := make([]Linea, len(req.Items))
	for i, it := range req.Items {
		entrada[i] = Linea{Codigo: it.Codigo, Nombre: it.Nombre, Precio: it.Precio, Cant: it.Cant}
	}
	lineas, err := normalizarLineas("items", entrada)
	if err != nil {
		return nil, err
	}

	var proformaID *uuid.UUID
	if req.ProformaID != nil && strings.TrimSpace(*req.ProformaID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.ProformaID))
		if err != nil {
			return nil, &ValidacionError{Campos: map[string]string{"proforma_id": "uuid invalido"}}
		}
		proformaID = &id
	}

	totales := CalcularTotales(lineas, s.cfg.IGVRate, s.cfg.IGVIncluido)
	if err := validarVenta(lineas, totales); err != nil {
		return nil, err
	}

	key := normalizarClave(req.IdempotencyKey)
	huella := huellaSolicitud(lineas, proformaID)
	if key != nil {
		if v, err := s.repo.FindByIdempotencyKey(ctx, *key); err == nil && v != nil {
			if !mismaSolicitud(v, huella) {
				ventasRechazadas.Add(ctx, 1, metric.WithAttributes(attribute.String("motivo", motivoRechazo(ErrClaveReutilizada))))
				return nil, ErrClaveReutilizada
			}
			return existenteToResponse(v), nil
		}
	}

	stockLineas := make([]LineaStock, len(lineas))
	for i, l := range lineas {
		stockLineas[i] = LineaStock{Codigo: l.Codigo, Cant: l.Cant}
	}

	var (
		venta     model.Venta
		reservas  []ReservaStock
		proforma  *model.Proforma
		existente *model.Venta
	)
	err = s.retrier.run(ctx, s.repo.DB(), "registrar_venta", func(tx *gorm.DB) error {
		existente, proforma, reservas = nil, nil, nil

		if key != nil {
			v, err := s.repo.FindByIdempotencyKeyTx(tx, *key)
			if err != nil {
				return err
			}
			if v != nil {
				if !mismaSolicitud(v, huella) {
					return ErrClaveReutilizada
				}
				existente = v
				return nil
			}
		}

		if proformaID != nil {
			p, err := s.proformaRepo.FindByIDTx(tx, *proformaID)
			if repository.IsNotFound(err) {
				return ErrProformaNoEncontrada
			}
			if err != nil {
				return err
			}
			switch p.Estado {
			case model.ProformaConfirmada:
			case model.ProformaCerrada:
				return ErrProformaCerrada
			default:
				return ErrProformaNoConfirmada
			}
			proforma = p
		}

		validadas, err := s.inventario.ValidarStockTx(ctx, tx, stockLineas)
		if err != nil {
			return err
		}

		_, numero, err := s.secuencia.AsignarSecuenciaTx(ctx, tx, model.ContadorVentas, FormatoVenta)
		if err != nil {
			return err
		}

		venta = model.Venta{
			ID:             uuid.New(),
			Numero:         numero,
			Base:           totales.Base,
			IGV:            totales.IGV,
			Total:          totales.Total,
			IGVIncluido:    s.cfg.IGVIncluido,
			IGVRate:        s.cfg.IGVRate,
			ProformaID:     proformaID,
			Estado:         model.VentaRegistrada,
			IdempotencyKey: key,
			RequestHash:    huella,
			CreatedBy:      actor.ID,
			CreatedAt:      time.Now(),
		}
		for i, l := range lineas {
			venta.Items = append(venta.Items, model.VentaItem{
				VentaID:  venta.ID,
				Posicion: i,
				Codigo:   l.Codigo,
				Nombre:   l.Nombre,
				Precio:   l.Precio,
				Cant:     l.Cant,
				Subtotal: l.Subtotal(),
			})
		}
		if err := s.repo.CreateTx(tx, &venta); err != nil {
			return err
		}

		if err := s.inventario.DescontarStockTx(ctx, tx, validadas, venta.ID); err != nil {
			return err
		}

		if proforma != nil {
			if err := s.proformaRepo.CerrarTx(tx, proforma.ID, proforma.Version, venta.ID, venta.CreatedAt); err != nil {
				return err
			}
		}

		reservas = validadas
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ventasRechazadas.Add(ctx, 1, metric.WithAttributes(attribute.String("motivo", motivoRechazo(err))))
		return nil, err
	}
	if existente != nil {
		return existenteToResponse(existente), nil
	}

	ventasRegistradas.Add(ctx, 1)
	ventaImporte.Record(ctx, venta.Total.InexactFloat64())
	span.SetAttributes(
		attribute.String("venta.numero", venta.Numero),
		attribute.Int("venta.items", len(venta.Items)),
	)
	log.Info().
		Str("numero", venta.Numero).
		Str("total", venta.Total.StringFixed(2)).
		Str("usuario", actor.Username).
		Msg("venta registrada")

	resp := ventaToResponse(&venta)
	resp.Advertencias = s.postCommit(context.WithoutCancel(ctx), actor, &venta, reservas, proforma)
	return &resp, nil
}

// huellaSolicitud hashes what makes two submissions the same sale: the
// normalized lines in order and the proforma they close.
func huellaSolicitud(lineas []Linea, proformaID *uuid.UUID) string {
	h := sha256.New()
	if proformaID != nil {
		fmt.Fprintf(h, "proforma:%s\n", proformaID)
	}
	for _, l := range lineas {
		fmt.Fprintf(h, "%s|%s|%d\n", l.Codigo, l.Precio.StringFixed(2), l.Cant)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Rows written before the fingerprint existed carry an empty hash and are
// accepted as-is.
func mismaSolicitud(v *model.Venta, huella string) bool {
	return v.RequestHash == "" || v.RequestHash == huella
}

// postCommit runs the side effects that are not part of the atomic unit.
// Nothing here can undo the sale; failures come back as warnings.
func (s *ventaService) postCommit(ctx context.Context, actor Actor, venta *model.Venta, reservas []ReservaStock, proforma *model.Proforma) []string {
	var adv []string
	ventaID := venta.ID.String()

	if !s.auditoria.Registrar(ctx, EventoAuditoria{
		Accion:    "venta.create",
		Entidad:   "ventas",
		EntidadID: &ventaID,
		Payload: map[string]interface{}{
			"numero":      venta.Numero,
			"total":       venta.Total,
			"items":       len(venta.Items),
			"proforma_id": venta.ProformaID,
		},
		Actor: actor,
	}) {
		adv = append(adv, "no se pudo registrar la auditoria de la venta")
	}

	for _, r := range reservas {
		pid := r.Producto.ID.String()
		if !s.auditoria.Registrar(ctx, EventoAuditoria{
			Accion:    "producto.stock-reduction",
			Entidad:   "productos",
			EntidadID: &pid,
			Payload: map[string]interface{}{
				"codigo":   r.Producto.Codigo,
				"nombre":   r.Producto.Nombre,
				"cant":     r.Cant,
				"anterior": r.Producto.Stock,
				"nuevo":    r.StockNuevo(),
				"venta_id": ventaID,
				"numero":   venta.Numero,
			},
			Actor: actor,
		}) {
			adv = append(adv, "no se pudo registrar la auditoria de stock de "+r.Producto.Codigo)
		}
	}

	job := worker.ComprobanteJobPayload{VentaID: ventaID}
	if proforma != nil {
		pfID := proforma.ID.String()
		if !s.auditoria.Registrar(ctx, EventoAuditoria{
			Accion:    "proforma.close",
			Entidad:   "proformas",
			EntidadID: &pfID,
			Payload:   map[string]interface{}{"numero": proforma.Numero, "venta_id": ventaID, "venta_numero": venta.Numero},
			Actor:     actor,
		}) {
			adv = append(adv, "no se pudo registrar la auditoria del cierre de proforma")
		}
		job.ClienteNombre = proforma.ClienteNombre
		if c, err := s.clienteRepo.FindByID(ctx, proforma.ClienteID); err == nil && c.Email != nil && *c.Email != "" {
			job.ClienteEmail = c.Email
		}
	}

	if s.dispatcher == nil {
		adv = append(adv, "no se pudo encolar la generacion del comprobante")
	} else if err := s.dispatcher.EnqueueComprobante(ctx, job); err != nil {
		log.Warn().Err(err).Str("numero", venta.Numero).Msg("venta: failed to enqueue comprobante")
		adv = append(adv, "no se pudo encolar la generacion del comprobante")
	}

	if s.eventos != nil {
		if err := s.eventos.Publish(ctx, venta.Numero, ventaRegistradaEvent(venta, reservas, actor)); err != nil {
			log.Warn().Err(err).Str("numero", venta.Numero).Msg("venta: failed to publish event")
			adv = append(adv, "no se pudo publicar el evento de la venta")
		}
	}

	codigos := make([]string, len(reservas))
	for i, r := range reservas {
		codigos[i] = r.Producto.Codigo
	}
	if err := s.cache.Invalidar(ctx, codigos...); err != nil {
		log.Warn().Err(err).Msg("venta: failed to invalidate product cache")
		adv = append(adv, "no se pudo refrescar la cache de productos")
	}

	for _, a := range adv {
		log.Warn().Str("numero", venta.Numero).Msg("venta post-commit: " + a)
	}
	return adv
}

// validarVenta checks the computed document before any transaction is opened.
func validarVenta(lineas []Linea, t Totales) error {
	verr := &ValidacionError{}
	if len(lineas) == 0 {
		verr.add("items", "debe contener al menos un producto")
	}
	if t.Total.IsNegative() {
		verr.add("total", "debe ser mayor o igual a 0")
	}
	if t.Base.IsNegative() || t.IGV.IsNegative() {
		verr.add("igv", "desglose invalido")
	}
	return verr.orNil()
}

func normalizarClave(k *string) *string {
	if k == nil {
		return nil
	}
	v := strings.TrimSpace(*k)
	if v == "" {
		return nil
	}
	return &v
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrVentaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	resp := ventaToResponse(v)
	return &resp, nil
}

func (s *ventaService) ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, len(ventas))
	for i := range ventas {
		data[i] = ventaToResponse(&ventas[i])
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *ventaService) ObtenerPDF(ctx context.Context, ventaID uuid.UUID) (string, error) {
	if _, err := s.repo.FindByID(ctx, ventaID); err != nil {
		if repository.IsNotFound(err) {
			return "", ErrVentaNoEncontrada
		}
		return "", err
	}
	comp, err := s.comprobanteRepo.FindByVentaID(ctx, ventaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrComprobantePendiente
		}
		return "", err
	}
	if comp.Estado != "generado" || comp.PDFPath == nil {
		return "", ErrComprobantePendiente
	}
	return *comp.PDFPath, nil
}

// ── Mappers ───────────────────────────────────────────────────────────────────

func ventaToResponse(v *model.Venta) dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, len(v.Items))
	for i, it := range v.Items {
		items[i] = dto.ItemVentaResponse{
			Codigo:   it.Codigo,
			Nombre:   it.Nombre,
			Precio:   it.Precio,
			Cant:     it.Cant,
			Subtotal: it.Subtotal,
		}
	}
	var pfID *string
	if v.ProformaID != nil {
		s := v.ProformaID.String()
		pfID = &s
	}
	return dto.VentaResponse{
		ID:          v.ID.String(),
		Numero:      v.Numero,
		Items:       items,
		Base:        v.Base,
		IGV:         v.IGV,
		Total:       v.Total,
		IGVIncluido: v.IGVIncluido,
		IGVRate:     v.IGVRate,
		ProformaID:  pfID,
		Estado:      v.Estado,
		CreatedBy:   v.CreatedBy.String(),
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

func existenteToResponse(v *model.Venta) *dto.VentaResponse {
	resp := ventaToResponse(v)
	resp.Existente = true
	return &resp
}

func ventaRegistradaEvent(v *model.Venta, reservas []ReservaStock, actor Actor) VentaRegistradaEvent {
	ev := VentaRegistradaEvent{
		Tipo:       "venta.registrada",
		VentaID:    v.ID.String(),
		Numero:     v.Numero,
		Total:      v.Total,
		Usuario:    actor.Username,
		OcurridoEn: v.CreatedAt,
		Items:      make([]EventoItemStock, len(reservas)),
	}
	if v.ProformaID != nil {
		id := v.ProformaID.String()
		ev.ProformaID = &id
	}
	for i, r := range reservas {
		ev.Items[i] = EventoItemStock{Codigo: r.Producto.Codigo, Cant: r.Cant, StockNuevo: r.StockNuevo()}
	}
	return ev
}
