package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/handler"
	"gestionventas/internal/middleware"
	"gestionventas/internal/model"
	"gestionventas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClienteService struct {
	service.ClienteService
	consultar func(numero string) (*dto.DocumentoResponse, error)
}

func (s *stubClienteService) ConsultarDocumento(_ context.Context, numero string) (*dto.DocumentoResponse, error) {
	return s.consultar(numero)
}

func clientesRouter(svc service.ClienteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := handler.NewClientesHandler(svc)
	g := r.Group("/v1/clientes", middleware.JWTAuth(testSecret))
	g.GET("/:id", middleware.RequireRole(model.RolAdmin, model.RolSeller, model.RolViewer), h.Obtener)
	g.GET("/documento/:numero", middleware.RequireRole(model.RolAdmin, model.RolSeller), h.ConsultarDocumento)
	return r
}

func TestConsultarDocumento_OK(t *testing.T) {
	svc := &stubClienteService{consultar: func(numero string) (*dto.DocumentoResponse, error) {
		return &dto.DocumentoResponse{Tipo: "dni", Numero: numero, Nombre: "PEREZ GOMEZ, JUAN"}, nil
	}}
	r := clientesRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/clientes/documento/12345678", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), model.RolSeller, "access", time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.DocumentoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "12345678", resp.Numero)
	assert.Equal(t, "PEREZ GOMEZ, JUAN", resp.Nombre)
}

func TestConsultarDocumento_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"numero invalido", &service.ValidacionError{Campos: map[string]string{"numero": "DNI debe tener 8 digitos o RUC 11 digitos"}}, http.StatusUnprocessableEntity},
		{"no encontrado", service.ErrDocumentoNoEncontrado, http.StatusNotFound},
		{"no disponible", fmt.Errorf("%w: circuit breaker is open", service.ErrConsultaDocumentoNoDisponible), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubClienteService{consultar: func(string) (*dto.DocumentoResponse, error) { return nil, tc.err }}
			req := httptest.NewRequest(http.MethodGet, "/v1/clientes/documento/12345678", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), model.RolAdmin, "access", time.Hour))
			w := httptest.NewRecorder()
			clientesRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "circuit breaker")
		})
	}
}

func TestConsultarDocumento_ViewerNoPuede(t *testing.T) {
	svc := &stubClienteService{consultar: func(string) (*dto.DocumentoResponse, error) {
		t.Fatal("no deberia consultar")
		return nil, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/clientes/documento/12345678", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), model.RolViewer, "access", time.Hour))
	w := httptest.NewRecorder()
	clientesRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
