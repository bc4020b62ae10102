package service_test

import (
	"context"
	"testing"

	"gestionventas/internal/model"
	"gestionventas/internal/repository"
	"gestionventas/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsignarSecuenciaTx_EmpiezaEnUno(t *testing.T) {
	repo := newStubContadorRepo()
	sec := service.NewSecuenciador(repo)

	n, numero, err := sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "V-000001", numero)

	n, numero, err = sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "V-000002", numero)
	assert.Equal(t, "V-000002", repo.contadores[model.ContadorVentas].LastNumber)
}

func TestAsignarSecuenciaTx_ContadoresIndependientes(t *testing.T) {
	sec := service.NewSecuenciador(newStubContadorRepo())

	_, v, err := sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)
	require.NoError(t, err)
	_, p, err := sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorProductos, service.FormatoProducto)
	require.NoError(t, err)

	assert.Equal(t, "V-000001", v)
	assert.Equal(t, "P001", p)
}

func TestAsignarSecuenciaTx_ConflictoSePropaga(t *testing.T) {
	repo := newStubContadorRepo()
	sec := service.NewSecuenciador(repo)
	_, _, err := sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)
	require.NoError(t, err)
	repo.conflicts = 1

	_, _, err = sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)

	assert.ErrorIs(t, err, repository.ErrConflictoVersion)
	assert.Equal(t, int64(1), repo.seq(model.ContadorVentas))
}

func TestReiniciarContador(t *testing.T) {
	repo := newStubContadorRepo()
	sec := service.NewSecuenciador(repo)

	resp, err := sec.Reiniciar(context.Background(), model.ContadorVentas, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), resp.Seq)
	assert.Equal(t, "V-000100", resp.LastNumber)

	_, numero, err := sec.AsignarSecuenciaTx(context.Background(), nil, model.ContadorVentas, service.FormatoVenta)
	require.NoError(t, err)
	assert.Equal(t, "V-000101", numero)
}

func TestReiniciarContador_Validacion(t *testing.T) {
	sec := service.NewSecuenciador(newStubContadorRepo())

	_, err := sec.Reiniciar(context.Background(), "facturas", 1)
	assert.ErrorIs(t, err, service.ErrContadorDesconocido)

	_, err = sec.Reiniciar(context.Background(), model.ContadorVentas, -1)
	var verr *service.ValidacionError
	assert.ErrorAs(t, err, &verr)
}

func TestObtenerContador_SinAsignarEsCero(t *testing.T) {
	sec := service.NewSecuenciador(newStubContadorRepo())

	resp, err := sec.Obtener(context.Background(), model.ContadorProformas)
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.Seq)
	assert.Empty(t, resp.UpdatedAt)
}
