package service_test

import (
	"context"
	"testing"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proformaFixture struct {
	proformas  *stubProformaRepo
	clientes   *stubClienteRepo
	contadores *stubContadorRepo
	auditoria  *stubAuditoriaRepo
	cliente    *model.Cliente

	svc service.ProformaService
}

func newProformaFixture() *proformaFixture {
	cliente := &model.Cliente{ID: uuid.New(), Nombre: "Ferreteria Lopez"}
	f := &proformaFixture{
		proformas:  newStubProformaRepo(),
		clientes:   newStubClienteRepo(cliente),
		contadores: newStubContadorRepo(),
		auditoria:  &stubAuditoriaRepo{},
		cliente:    cliente,
	}
	f.svc = service.NewProformaService(
		f.proformas, f.clientes,
		service.NewSecuenciador(f.contadores),
		service.NewAuditoriaService(f.auditoria, nil),
		service.VentaConfig{IGVRate: decimal.RequireFromString("0.18"), IGVIncluido: false, MaxRetries: 3},
	)
	return f
}

func lineaProforma(codigo string, cant int, precio string) dto.LineaProformaRequest {
	return dto.LineaProformaRequest{
		Codigo: codigo,
		Nombre: "Producto " + codigo,
		Precio: decimal.RequireFromString(precio),
		Cant:   cant,
	}
}

func (f *proformaFixture) crear(t *testing.T, items ...dto.LineaProformaRequest) *dto.ProformaResponse {
	t.Helper()
	resp, err := f.svc.Crear(context.Background(), testActor, dto.CrearProformaRequest{
		ClienteID: f.cliente.ID.String(),
		Items:     items,
	})
	require.NoError(t, err)
	return resp
}

func TestCrearProforma_NumeraYCalculaTotales(t *testing.T) {
	f := newProformaFixture()

	first := f.crear(t, lineaProforma("p001", 2, "50.00"))
	second := f.crear(t, lineaProforma("P002", 1, "10.00"))

	assert.Equal(t, "PF-000001", first.Numero)
	assert.Equal(t, "PF-000002", second.Numero)
	assert.Equal(t, model.ProformaBorrador, first.Estado)
	assert.Equal(t, "Ferreteria Lopez", first.ClienteNombre)
	assert.Equal(t, "P001", first.Items[0].Codigo)

	// tax added on top: base 100, igv 18
	assert.True(t, first.Base.Equal(decimal.NewFromInt(100)), "base: %s", first.Base)
	assert.True(t, first.IGV.Equal(decimal.NewFromInt(18)), "igv: %s", first.IGV)
	assert.True(t, first.Total.Equal(decimal.NewFromInt(118)), "total: %s", first.Total)
	assert.Contains(t, f.auditoria.acciones(), "proforma.create")
}

func TestCrearProforma_ClienteInexistente(t *testing.T) {
	f := newProformaFixture()

	_, err := f.svc.Crear(context.Background(), testActor, dto.CrearProformaRequest{
		ClienteID: uuid.NewString(),
		Items:     []dto.LineaProformaRequest{lineaProforma("P001", 1, "1.00")},
	})

	assert.ErrorIs(t, err, service.ErrClienteNoEncontrado)
	assert.Equal(t, int64(0), f.contadores.seq(model.ContadorProformas))
}

func TestCrearProforma_SinItems(t *testing.T) {
	f := newProformaFixture()

	_, err := f.svc.Crear(context.Background(), testActor, dto.CrearProformaRequest{ClienteID: f.cliente.ID.String()})

	assert.ErrorIs(t, err, service.ErrSinItems)
}

func TestActualizarProforma_RecalculaEnBorrador(t *testing.T) {
	f := newProformaFixture()
	pf := f.crear(t, lineaProforma("P001", 1, "10.00"))
	id := uuid.MustParse(pf.ID)

	upd, err := f.svc.Actualizar(context.Background(), testActor, id, dto.ActualizarProformaRequest{
		Items: []dto.LineaProformaRequest{lineaProforma("P001", 3, "10.00"), lineaProforma("P002", 1, "5.00")},
	})
	require.NoError(t, err)

	assert.Len(t, upd.Items, 2)
	assert.True(t, upd.Base.Equal(decimal.NewFromInt(35)), "base: %s", upd.Base)
	assert.True(t, upd.Total.Equal(decimal.RequireFromString("41.30")), "total: %s", upd.Total)
}

func TestActualizarProforma_ConfirmadaNoEditable(t *testing.T) {
	f := newProformaFixture()
	pf := f.crear(t, lineaProforma("P001", 1, "10.00"))
	id := uuid.MustParse(pf.ID)
	_, err := f.svc.Confirmar(context.Background(), testActor, id)
	require.NoError(t, err)

	_, err = f.svc.Actualizar(context.Background(), testActor, id, dto.ActualizarProformaRequest{
		Items: []dto.LineaProformaRequest{lineaProforma("P001", 9, "10.00")},
	})

	assert.ErrorIs(t, err, service.ErrProformaNoEditable)
}

func TestConfirmarProforma_Idempotente(t *testing.T) {
	f := newProformaFixture()
	pf := f.crear(t, lineaProforma("P001", 1, "10.00"))
	id := uuid.MustParse(pf.ID)

	first, err := f.svc.Confirmar(context.Background(), testActor, id)
	require.NoError(t, err)
	second, err := f.svc.Confirmar(context.Background(), testActor, id)
	require.NoError(t, err)

	assert.Equal(t, model.ProformaConfirmada, first.Estado)
	assert.Equal(t, model.ProformaConfirmada, second.Estado)

	confirms := 0
	for _, a := range f.auditoria.acciones() {
		if a == "proforma.confirm" {
			confirms++
		}
	}
	assert.Equal(t, 1, confirms)
}

func TestConfirmarProforma_Cerrada(t *testing.T) {
	f := newProformaFixture()
	pf := f.crear(t, lineaProforma("P001", 1, "10.00"))
	id := uuid.MustParse(pf.ID)
	f.proformas.proformas[id].Estado = model.ProformaCerrada

	_, err := f.svc.Confirmar(context.Background(), testActor, id)

	assert.ErrorIs(t, err, service.ErrProformaCerrada)
}

func TestObtenerProforma_NoEncontrada(t *testing.T) {
	f := newProformaFixture()

	_, err := f.svc.Obtener(context.Background(), uuid.New())

	assert.ErrorIs(t, err, service.ErrProformaNoEncontrada)
}
