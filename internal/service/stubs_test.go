package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"
	"gestionventas/internal/service"
	"gestionventas/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. DB() returns nil so services call fn(nil) instead of
// opening a transaction; nothing is rolled back on failure.

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[string]*model.Producto // by codigo
	// stockConflicts makes the next N UpdateStockTx calls lose the race.
	stockConflicts int
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

func newStubProductoRepo(ps ...*model.Producto) *stubProductoRepo {
	r := &stubProductoRepo{productos: make(map[string]*model.Producto)}
	for _, p := range ps {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.productos[p.Codigo] = p
	}
	return r
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	return r.CreateTx(nil, p)
}

func (r *stubProductoRepo) CreateTx(_ *gorm.DB, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.productos[p.Codigo]; ok {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.productos[p.Codigo] = &cp
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubProductoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) FindByCodigo(_ context.Context, codigo string) (*model.Producto, error) {
	return r.FindByCodigoTx(nil, codigo)
}

func (r *stubProductoRepo) FindByCodigoTx(_ *gorm.DB, codigo string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[strings.ToUpper(strings.TrimSpace(codigo))]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Producto, 0, len(r.productos))
	for _, p := range r.productos {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.productos[p.Codigo]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Nombre, cur.Precio, cur.Impuesto, cur.Activo = p.Nombre, p.Precio, p.Impuesto, p.Activo
	return nil
}

func (r *stubProductoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.productos {
		if p.ID == id {
			p.Activo = false
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) ListBajoStock(_ context.Context, umbral int) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, p := range r.productos {
		if p.Activo && p.Stock <= umbral {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductoRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, version int64, nuevoStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stockConflicts > 0 {
		r.stockConflicts--
		return repository.ErrConflictoVersion
	}
	for _, p := range r.productos {
		if p.ID == id {
			if p.Version != version {
				return repository.ErrConflictoVersion
			}
			p.Stock = nuevoStock
			p.Version++
			return nil
		}
	}
	return repository.ErrConflictoVersion
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

func (r *stubProductoRepo) stock(codigo string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.productos[codigo].Stock
}

type stubMovimientoRepo struct {
	mu    sync.Mutex
	items []model.MovimientoStock
}

var _ repository.MovimientoStockRepository = (*stubMovimientoRepo)(nil)

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *m)
	return nil
}

func (r *stubMovimientoRepo) List(_ context.Context, _ repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items, int64(len(r.items)), nil
}

type stubVentaRepo struct {
	mu     sync.Mutex
	ventas []model.Venta
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

func (r *stubVentaRepo) CreateTx(_ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.ventas {
		if existing.Numero == v.Numero {
			return repository.ErrConflictoVersion
		}
		if v.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *v.IdempotencyKey {
			return repository.ErrConflictoVersion
		}
	}
	r.ventas = append(r.ventas, *v)
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ventas {
		if r.ventas[i].ID == id {
			v := r.ventas[i]
			return &v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubVentaRepo) FindByIdempotencyKeyTx(_ *gorm.DB, key string) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ventas {
		if k := r.ventas[i].IdempotencyKey; k != nil && *k == key {
			v := r.ventas[i]
			return &v, nil
		}
	}
	return nil, nil
}

func (r *stubVentaRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Venta, error) {
	return r.FindByIdempotencyKeyTx(nil, key)
}

func (r *stubVentaRepo) List(_ context.Context, _ dto.VentaFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ventas, int64(len(r.ventas)), nil
}

func (r *stubVentaRepo) Resumen(_ context.Context, desde, hasta time.Time) (repository.ResumenVentas, error) {
	var out repository.ResumenVentas
	for _, v := range r.entre(desde, hasta) {
		out.Cantidad++
		out.Base = out.Base.Add(v.Base)
		out.IGV = out.IGV.Add(v.IGV)
		out.Total = out.Total.Add(v.Total)
	}
	return out, nil
}

func (r *stubVentaRepo) ListEntre(_ context.Context, desde, hasta time.Time) ([]model.Venta, error) {
	return r.entre(desde, hasta), nil
}

func (r *stubVentaRepo) TopProductos(_ context.Context, _, _ time.Time, _ int) ([]repository.TopProducto, error) {
	return nil, nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

func (r *stubVentaRepo) entre(desde, hasta time.Time) []model.Venta {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if !v.CreatedAt.Before(desde) && v.CreatedAt.Before(hasta) {
			out = append(out, v)
		}
	}
	return out
}

func (r *stubVentaRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ventas)
}

type stubProformaRepo struct {
	mu        sync.Mutex
	proformas map[uuid.UUID]*model.Proforma
}

var _ repository.ProformaRepository = (*stubProformaRepo)(nil)

func newStubProformaRepo() *stubProformaRepo {
	return &stubProformaRepo{proformas: make(map[uuid.UUID]*model.Proforma)}
}

func (r *stubProformaRepo) CreateTx(_ *gorm.DB, p *model.Proforma) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.proformas[p.ID] = &cp
	return nil
}

func (r *stubProformaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Proforma, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubProformaRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Proforma, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proformas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProformaRepo) List(_ context.Context, _ dto.ProformaFilter) ([]model.Proforma, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Proforma, 0, len(r.proformas))
	for _, p := range r.proformas {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProformaRepo) UpdateTx(_ *gorm.DB, p *model.Proforma, prevVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.proformas[p.ID]
	if !ok || cur.Version != prevVersion {
		return repository.ErrConflictoVersion
	}
	cp := *p
	cp.Version = prevVersion + 1
	r.proformas[p.ID] = &cp
	return nil
}

func (r *stubProformaRepo) CambiarEstadoTx(_ *gorm.DB, id uuid.UUID, prevVersion int64, estado string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.proformas[id]
	if !ok || cur.Version != prevVersion {
		return repository.ErrConflictoVersion
	}
	cur.Estado = estado
	cur.Version++
	return nil
}

func (r *stubProformaRepo) CerrarTx(_ *gorm.DB, id uuid.UUID, prevVersion int64, ventaID uuid.UUID, cerradaEn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.proformas[id]
	if !ok || cur.Version != prevVersion || cur.Estado == model.ProformaCerrada {
		return repository.ErrConflictoVersion
	}
	cur.Estado = model.ProformaCerrada
	cur.VentaID = &ventaID
	cur.CerradaEn = &cerradaEn
	cur.Version++
	return nil
}

func (r *stubProformaRepo) CountByCliente(_ context.Context, clienteID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.proformas {
		if p.ClienteID == clienteID {
			n++
		}
	}
	return n, nil
}

func (r *stubProformaRepo) DB() *gorm.DB { return nil }

type stubClienteRepo struct {
	mu       sync.Mutex
	clientes map[uuid.UUID]*model.Cliente
}

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

func newStubClienteRepo(cs ...*model.Cliente) *stubClienteRepo {
	r := &stubClienteRepo{clientes: make(map[uuid.UUID]*model.Cliente)}
	for _, c := range cs {
		r.clientes[c.ID] = c
	}
	return r
}

func (r *stubClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.clientes[c.ID] = &cp
	return nil
}

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clientes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubClienteRepo) List(_ context.Context, _ dto.ClienteFilter) ([]model.Cliente, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Cliente, 0, len(r.clientes))
	for _, c := range r.clientes {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubClienteRepo) Update(_ context.Context, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clientes[c.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *c
	r.clientes[c.ID] = &cp
	return nil
}

func (r *stubClienteRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clientes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.clientes, id)
	return nil
}

type stubContadorRepo struct {
	mu         sync.Mutex
	contadores map[string]*model.Contador
	// conflicts makes the next N AdvanceTx calls report a lost race.
	conflicts int
}

var _ repository.ContadorRepository = (*stubContadorRepo)(nil)

func newStubContadorRepo() *stubContadorRepo {
	return &stubContadorRepo{contadores: make(map[string]*model.Contador)}
}

func (r *stubContadorRepo) FindTx(_ *gorm.DB, id string) (*model.Contador, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contadores[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *stubContadorRepo) CreateTx(_ *gorm.DB, c *model.Contador) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrConflictoVersion
	}
	if _, ok := r.contadores[c.ID]; ok {
		return repository.ErrConflictoVersion
	}
	cp := *c
	r.contadores[c.ID] = &cp
	return nil
}

func (r *stubContadorRepo) AdvanceTx(_ *gorm.DB, id string, prevSeq, nextSeq int64, lastNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrConflictoVersion
	}
	c, ok := r.contadores[id]
	if !ok || c.Seq != prevSeq {
		return repository.ErrConflictoVersion
	}
	c.Seq = nextSeq
	c.LastNumber = lastNumber
	c.UpdatedAt = time.Now()
	return nil
}

func (r *stubContadorRepo) Find(_ context.Context, id string) (*model.Contador, error) {
	return r.FindTx(nil, id)
}

func (r *stubContadorRepo) List(_ context.Context) ([]model.Contador, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Contador, 0, len(r.contadores))
	for _, c := range r.contadores {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubContadorRepo) Reset(_ context.Context, id string, valor int64, lastNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contadores[id] = &model.Contador{ID: id, Seq: valor, LastNumber: lastNumber, UpdatedAt: time.Now()}
	return nil
}

func (r *stubContadorRepo) DB() *gorm.DB { return nil }

func (r *stubContadorRepo) seq(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contadores[id]; ok {
		return c.Seq
	}
	return 0
}

type stubComprobanteRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Comprobante // by venta id
}

var _ repository.ComprobanteRepository = (*stubComprobanteRepo)(nil)

func newStubComprobanteRepo() *stubComprobanteRepo {
	return &stubComprobanteRepo{items: make(map[uuid.UUID]*model.Comprobante)}
}

func (r *stubComprobanteRepo) Create(_ context.Context, c *model.Comprobante) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.VentaID] = &cp
	return nil
}

func (r *stubComprobanteRepo) FindByVentaID(_ context.Context, ventaID uuid.UUID) (*model.Comprobante, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[ventaID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubComprobanteRepo) Update(ctx context.Context, c *model.Comprobante) error {
	return r.Create(ctx, c)
}

func (r *stubComprobanteRepo) MarcarEmailEnviado(_ context.Context, _ uuid.UUID) error { return nil }

func (r *stubComprobanteRepo) ListPendingRetries(_ context.Context, _ time.Time, _ int) ([]model.Comprobante, error) {
	return nil, nil
}

type stubAuditoriaRepo struct {
	mu      sync.Mutex
	entries []model.Auditoria
	err     error
}

var _ repository.AuditoriaRepository = (*stubAuditoriaRepo)(nil)

func (r *stubAuditoriaRepo) Create(_ context.Context, a *model.Auditoria) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *a)
	return nil
}

func (r *stubAuditoriaRepo) List(_ context.Context, _ dto.AuditoriaFilter) ([]model.Auditoria, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, int64(len(r.entries)), nil
}

func (r *stubAuditoriaRepo) acciones() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Accion
	}
	return out
}

// stubDispatcher records jobs instead of pushing them to redis.
type stubDispatcher struct {
	mu             sync.Mutex
	auditorias     []worker.AuditoriaJobPayload
	comprobantes   []worker.ComprobanteJobPayload
	errAuditoria   error
	errComprobante error
}

var _ service.JobDispatcher = (*stubDispatcher)(nil)

func (d *stubDispatcher) EnqueueAuditoria(_ context.Context, p worker.AuditoriaJobPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errAuditoria != nil {
		return d.errAuditoria
	}
	d.auditorias = append(d.auditorias, p)
	return nil
}

func (d *stubDispatcher) EnqueueComprobante(_ context.Context, p worker.ComprobanteJobPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errComprobante != nil {
		return d.errComprobante
	}
	d.comprobantes = append(d.comprobantes, p)
	return nil
}

// stubPublisher keeps published events in memory.
type stubPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
	err    error
}

var _ service.EventPublisher = (*stubPublisher)(nil)

func (p *stubPublisher) Publish(_ context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

var errColaCaida = errors.New("redis: connection refused")

// ── Fixtures ──────────────────────────────────────────────────────────────────

var testActor = service.Actor{ID: uuid.New(), Username: "vendedor1", Rol: "seller"}

func producto(codigo, nombre, precio string, stock int) *model.Producto {
	return &model.Producto{
		ID:       uuid.New(),
		Codigo:   codigo,
		Nombre:   nombre,
		Precio:   decimal.RequireFromString(precio),
		Stock:    stock,
		Impuesto: decimal.Zero,
		Activo:   true,
	}
}

func linea(codigo string, cant int, precio string) dto.LineaVentaRequest {
	return dto.LineaVentaRequest{
		Codigo: codigo,
		Nombre: "Producto " + codigo,
		Precio: decimal.RequireFromString(precio),
		Cant:   cant,
	}
}

type ventaFixture struct {
	productos    *stubProductoRepo
	movimientos  *stubMovimientoRepo
	ventas       *stubVentaRepo
	proformas    *stubProformaRepo
	clientes     *stubClienteRepo
	contadores   *stubContadorRepo
	comprobantes *stubComprobanteRepo
	auditoria    *stubAuditoriaRepo
	dispatcher   *stubDispatcher
	eventos      *stubPublisher

	svc service.VentaService
}

func newVentaFixture(ps ...*model.Producto) *ventaFixture {
	f := &ventaFixture{
		productos:    newStubProductoRepo(ps...),
		movimientos:  &stubMovimientoRepo{},
		ventas:       &stubVentaRepo{},
		proformas:    newStubProformaRepo(),
		clientes:     newStubClienteRepo(),
		contadores:   newStubContadorRepo(),
		comprobantes: newStubComprobanteRepo(),
		auditoria:    &stubAuditoriaRepo{},
		dispatcher:   &stubDispatcher{},
		eventos:      &stubPublisher{},
	}
	f.build(3)
	return f
}

func (f *ventaFixture) build(maxRetries int) {
	// Audit goes straight to the repo; the dispatcher stub only sees receipts.
	auditoria := service.NewAuditoriaService(f.auditoria, nil)
	inventario := service.NewInventarioService(f.productos, f.movimientos, auditoria, nil, maxRetries)
	f.svc = service.NewVentaService(
		f.ventas, f.proformas, f.clientes, f.comprobantes,
		service.NewSecuenciador(f.contadores),
		inventario, auditoria, f.dispatcher, nil, f.eventos,
		service.VentaConfig{IGVRate: decimal.RequireFromString("0.18"), IGVIncluido: true, MaxRetries: maxRetries},
	)
}
