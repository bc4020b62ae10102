package service_test

import (
	"context"
	"errors"
	"testing"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrar(t *testing.T, f *ventaFixture, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	t.Helper()
	return f.svc.RegistrarVenta(context.Background(), testActor, req)
}

func proformaConfirmada(f *ventaFixture, estado string, items ...dto.LineaVentaRequest) *model.Proforma {
	email := "cliente@example.com"
	cliente := &model.Cliente{ID: uuid.New(), Nombre: "Ana Torres", Email: &email}
	f.clientes.clientes[cliente.ID] = cliente

	p := &model.Proforma{
		ID:            uuid.New(),
		Numero:        "PF-000001",
		ClienteID:     cliente.ID,
		ClienteNombre: cliente.Nombre,
		Estado:        estado,
		Version:       1,
	}
	for i, it := range items {
		p.Items = append(p.Items, model.ProformaItem{
			Posicion: i, Codigo: it.Codigo, Nombre: it.Nombre, Precio: it.Precio, Cant: it.Cant,
		})
	}
	f.proformas.proformas[p.ID] = p
	return p
}

// ── Happy path ────────────────────────────────────────────────────────────────

func TestRegistrarVenta_HappyPath(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 3, "10.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-000001", resp.Numero)
	assert.Equal(t, model.VentaRegistrada, resp.Estado)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("30.00")), "total: %s", resp.Total)
	assert.True(t, resp.Base.Equal(decimal.RequireFromString("25.42")), "base: %s", resp.Base)
	assert.True(t, resp.IGV.Equal(decimal.RequireFromString("4.58")), "igv: %s", resp.IGV)
	assert.Empty(t, resp.Advertencias)
	assert.False(t, resp.Existente)

	assert.Equal(t, 7, f.productos.stock("P001"))
	assert.Equal(t, int64(1), f.contadores.seq(model.ContadorVentas))
	require.Len(t, f.movimientos.items, 1)
	assert.Equal(t, -3, f.movimientos.items[0].Cantidad)
	assert.Equal(t, 10, f.movimientos.items[0].StockAnterior)
	assert.Equal(t, 7, f.movimientos.items[0].StockNuevo)

	assert.Equal(t, []string{"venta.create", "producto.stock-reduction"}, f.auditoria.acciones())
	require.Len(t, f.dispatcher.comprobantes, 1)
	assert.Equal(t, resp.ID, f.dispatcher.comprobantes[0].VentaID)
}

func TestRegistrarVenta_NumerosConsecutivos(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	first, err := registrar(t, f, dto.RegistrarVentaRequest{Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")}})
	require.NoError(t, err)
	second, err := registrar(t, f, dto.RegistrarVentaRequest{Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")}})
	require.NoError(t, err)

	assert.Equal(t, "V-000001", first.Numero)
	assert.Equal(t, "V-000002", second.Numero)
	assert.Equal(t, 8, f.productos.stock("P001"))
}

func TestRegistrarVenta_CodigoNormalizado(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("  p001 ", 2, "10.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "P001", resp.Items[0].Codigo)
	assert.Equal(t, 8, f.productos.stock("P001"))
}

func TestRegistrarVenta_AgregaCodigosRepetidos(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 5))

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 3, "10.00"), linea("P001", 3, "10.00")},
	})

	var stockErr *service.StockInsuficienteError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Disponible)
	assert.Equal(t, 6, stockErr.Solicitado)
	assert.Equal(t, 5, f.productos.stock("P001"))
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestRegistrarVenta_SinItems(t *testing.T) {
	f := newVentaFixture()

	_, err := registrar(t, f, dto.RegistrarVentaRequest{})

	assert.ErrorIs(t, err, service.ErrSinItems)
	assert.Equal(t, int64(0), f.contadores.seq(model.ContadorVentas))
}

func TestRegistrarVenta_LineaInvalida(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00"), linea("P001", 0, "-1")},
	})

	var verr *service.ValidacionError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Campos, "items[1].cant")
	assert.Contains(t, verr.Campos, "items[1].precio")
	assert.Equal(t, 10, f.productos.stock("P001"))
	assert.Equal(t, 0, f.ventas.count())
}

func TestRegistrarVenta_ProformaIDInvalido(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	bad := "no-es-uuid"

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		ProformaID: &bad,
		Items:      []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	var verr *service.ValidacionError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Campos, "proforma_id")
}

// ── Stock ─────────────────────────────────────────────────────────────────────

func TestRegistrarVenta_StockInsuficiente(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 2))

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 5, "10.00")},
	})

	var stockErr *service.StockInsuficienteError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P001", stockErr.Codigo)
	assert.Equal(t, "Arroz 5kg", stockErr.Nombre)
	assert.Equal(t, 2, stockErr.Disponible)
	assert.Equal(t, 5, stockErr.Solicitado)

	assert.Equal(t, 2, f.productos.stock("P001"))
	assert.Equal(t, 0, f.ventas.count())
	assert.Equal(t, int64(0), f.contadores.seq(model.ContadorVentas))
	assert.Empty(t, f.auditoria.acciones())
}

func TestRegistrarVenta_FallaParcialNoModificaNada(t *testing.T) {
	f := newVentaFixture(
		producto("P001", "Arroz 5kg", "10.00", 10),
		producto("P002", "Aceite 1L", "8.50", 1),
	)

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 2, "10.00"), linea("P002", 4, "8.50")},
	})

	var stockErr *service.StockInsuficienteError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P002", stockErr.Codigo)
	assert.Equal(t, 10, f.productos.stock("P001"))
	assert.Equal(t, 1, f.productos.stock("P002"))
	assert.Empty(t, f.movimientos.items)
}

func TestRegistrarVenta_PrimerErrorEnOrdenDeEntrada(t *testing.T) {
	f := newVentaFixture(
		producto("P001", "Arroz 5kg", "10.00", 0),
		producto("P002", "Aceite 1L", "8.50", 0),
	)

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P002", 1, "8.50"), linea("P001", 1, "10.00")},
	})

	var stockErr *service.StockInsuficienteError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P002", stockErr.Codigo)
}

func TestRegistrarVenta_ProductoDesconocido(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00"), linea("X999", 1, "1.00")},
	})

	var nf *service.ProductoNoEncontradoError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "X999", nf.Codigo)
	assert.Equal(t, 10, f.productos.stock("P001"))
}

func TestRegistrarVenta_ProductoInactivo(t *testing.T) {
	p := producto("P001", "Arroz 5kg", "10.00", 10)
	p.Activo = false
	f := newVentaFixture(p)

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	var nf *service.ProductoNoEncontradoError
	assert.ErrorAs(t, err, &nf)
}

// ── Proformas ─────────────────────────────────────────────────────────────────

func TestRegistrarVenta_CierraProforma(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	pf := proformaConfirmada(f, model.ProformaConfirmada, linea("P001", 2, "10.00"))
	pfID := pf.ID.String()

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		ProformaID: &pfID,
		Items:      []dto.LineaVentaRequest{linea("P001", 2, "10.00")},
	})
	require.NoError(t, err)

	cerrada := f.proformas.proformas[pf.ID]
	assert.Equal(t, model.ProformaCerrada, cerrada.Estado)
	require.NotNil(t, cerrada.VentaID)
	assert.Equal(t, resp.ID, cerrada.VentaID.String())
	assert.NotNil(t, cerrada.CerradaEn)
	require.NotNil(t, resp.ProformaID)
	assert.Equal(t, pfID, *resp.ProformaID)

	assert.Equal(t, []string{"venta.create", "producto.stock-reduction", "proforma.close"}, f.auditoria.acciones())
	require.Len(t, f.dispatcher.comprobantes, 1)
	job := f.dispatcher.comprobantes[0]
	assert.Equal(t, "Ana Torres", job.ClienteNombre)
	require.NotNil(t, job.ClienteEmail)
	assert.Equal(t, "cliente@example.com", *job.ClienteEmail)
}

func TestRegistrarVenta_ProformaNoConfirmada(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	pf := proformaConfirmada(f, model.ProformaBorrador, linea("P001", 1, "10.00"))
	pfID := pf.ID.String()

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		ProformaID: &pfID,
		Items:      []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	assert.ErrorIs(t, err, service.ErrProformaNoConfirmada)
	assert.Equal(t, 10, f.productos.stock("P001"))
}

func TestRegistrarVenta_ProformaYaCerrada(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	pf := proformaConfirmada(f, model.ProformaCerrada, linea("P001", 1, "10.00"))
	pfID := pf.ID.String()

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		ProformaID: &pfID,
		Items:      []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	assert.ErrorIs(t, err, service.ErrProformaCerrada)
	assert.Equal(t, 0, f.ventas.count())
}

func TestRegistrarVenta_ProformaInexistente(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	pfID := uuid.NewString()

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		ProformaID: &pfID,
		Items:      []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	assert.ErrorIs(t, err, service.ErrProformaNoEncontrada)
}

// ── Idempotency ───────────────────────────────────────────────────────────────

func TestRegistrarVenta_Idempotente(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	key := "caja1-20261016-0001"
	req := dto.RegistrarVentaRequest{
		Items:          []dto.LineaVentaRequest{linea("P001", 4, "10.00")},
		IdempotencyKey: &key,
	}

	first, err := registrar(t, f, req)
	require.NoError(t, err)
	second, err := registrar(t, f, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Numero, second.Numero)
	assert.True(t, second.Existente)
	assert.Equal(t, 6, f.productos.stock("P001"))
	assert.Equal(t, 1, f.ventas.count())
	assert.Equal(t, int64(1), f.contadores.seq(model.ContadorVentas))
}

func TestRegistrarVenta_ClaveReutilizadaConOtrosItems(t *testing.T) {
	f := newVentaFixture(
		producto("P001", "Arroz 5kg", "10.00", 10),
		producto("P002", "Azucar 1kg", "4.50", 10),
	)
	key := "caja1-20261016-0002"

	first, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items:          []dto.LineaVentaRequest{linea("P001", 2, "10.00")},
		IdempotencyKey: &key,
	})
	require.NoError(t, err)

	cases := map[string][]dto.LineaVentaRequest{
		"otro producto": {linea("P002", 2, "4.50")},
		"otra cantidad": {linea("P001", 3, "10.00")},
		"otro precio":   {linea("P001", 2, "9.00")},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := registrar(t, f, dto.RegistrarVentaRequest{Items: items, IdempotencyKey: &key})
			assert.ErrorIs(t, err, service.ErrClaveReutilizada)
		})
	}

	assert.Equal(t, 1, f.ventas.count())
	assert.Equal(t, 8, f.productos.stock("P001"))
	assert.Equal(t, 10, f.productos.stock("P002"))

	again, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items:          []dto.LineaVentaRequest{linea("P001", 2, "10.00")},
		IdempotencyKey: &key,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestRegistrarVenta_ClaveSinHuellaSeAcepta(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	key := "caja1-legacy"
	f.ventas.ventas = append(f.ventas.ventas, model.Venta{
		ID:             uuid.New(),
		Numero:         "V-000001",
		IdempotencyKey: &key,
		Estado:         model.VentaRegistrada,
	})

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items:          []dto.LineaVentaRequest{linea("P001", 5, "10.00")},
		IdempotencyKey: &key,
	})
	require.NoError(t, err)

	assert.True(t, resp.Existente)
	assert.Equal(t, "V-000001", resp.Numero)
	assert.Equal(t, 10, f.productos.stock("P001"))
}

// ── Concurrency conflicts ─────────────────────────────────────────────────────

func TestRegistrarVenta_ReintentaTrasConflicto(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	f.contadores.conflicts = 2

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-000001", resp.Numero)
	assert.Equal(t, 9, f.productos.stock("P001"))
	assert.Zero(t, f.contadores.conflicts, "los conflictos deben consumirse en reintentos")
}

func TestRegistrarVenta_ReintentaTrasConflictoConContadorExistente(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	first, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)
	require.Equal(t, "V-000001", first.Numero)

	f.contadores.conflicts = 2
	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-000002", resp.Numero)
	assert.Zero(t, f.contadores.conflicts)
	assert.Equal(t, 8, f.productos.stock("P001"))
	assert.Equal(t, int64(2), f.contadores.seq(model.ContadorVentas))
}

func TestRegistrarVenta_ReintentosAgotados(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	f.contadores.conflicts = 100

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})

	assert.ErrorIs(t, err, service.ErrConflictoConcurrencia)
	assert.Equal(t, 10, f.productos.stock("P001"))
	assert.Equal(t, 0, f.ventas.count())
	assert.Equal(t, 97, f.contadores.conflicts, "tres intentos, tres conflictos")
	assert.Equal(t, int64(0), f.contadores.seq(model.ContadorVentas))
}

// ── Post-commit ───────────────────────────────────────────────────────────────

func TestRegistrarVenta_AdvertenciaSiFallaLaCola(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	f.dispatcher.errComprobante = errColaCaida

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, "V-000001", resp.Numero)
	assert.Len(t, resp.Advertencias, 1)
	assert.Equal(t, 9, f.productos.stock("P001"))
}

func TestRegistrarVenta_AuditoriaPerdidaNoRevierte(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	f.auditoria.err = errors.New("insert failed")

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)

	assert.Len(t, resp.Advertencias, 2)
	assert.Equal(t, 1, f.ventas.count())
}

// ── Queries ───────────────────────────────────────────────────────────────────

func TestObtenerVenta_NoEncontrada(t *testing.T) {
	f := newVentaFixture()

	_, err := f.svc.ObtenerVenta(context.Background(), uuid.New())

	assert.ErrorIs(t, err, service.ErrVentaNoEncontrada)
}

func TestObtenerPDF(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)
	ventaID := uuid.MustParse(resp.ID)

	_, err = f.svc.ObtenerPDF(context.Background(), ventaID)
	assert.ErrorIs(t, err, service.ErrComprobantePendiente)

	path := "/tmp/pdfs/V-000001.pdf"
	f.comprobantes.items[ventaID] = &model.Comprobante{VentaID: ventaID, Numero: resp.Numero, Estado: "generado", PDFPath: &path}

	got, err := f.svc.ObtenerPDF(context.Background(), ventaID)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

// ── Events ────────────────────────────────────────────────────────────────────

func TestRegistrarVenta_PublicaEvento(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 4, "10.00")},
	})
	require.NoError(t, err)

	require.Len(t, f.eventos.events, 1)
	assert.Equal(t, []string{resp.Numero}, f.eventos.keys)
	ev, ok := f.eventos.events[0].(service.VentaRegistradaEvent)
	require.True(t, ok)
	assert.Equal(t, "venta.registrada", ev.Tipo)
	assert.Equal(t, resp.ID, ev.VentaID)
	assert.Equal(t, []service.EventoItemStock{{Codigo: "P001", Cant: 4, StockNuevo: 6}}, ev.Items)
}

func TestRegistrarVenta_FalloDeEventoEsAdvertencia(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 10))
	f.eventos.err = errors.New("kafka: leader not available")

	resp, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 1, "10.00")},
	})
	require.NoError(t, err)

	assert.Len(t, resp.Advertencias, 1)
	assert.Equal(t, 9, f.productos.stock("P001"))
}

func TestRegistrarVenta_RechazoNoPublica(t *testing.T) {
	f := newVentaFixture(producto("P001", "Arroz 5kg", "10.00", 1))

	_, err := registrar(t, f, dto.RegistrarVentaRequest{
		Items: []dto.LineaVentaRequest{linea("P001", 2, "10.00")},
	})

	require.Error(t, err)
	assert.Empty(t, f.eventos.events)
}
