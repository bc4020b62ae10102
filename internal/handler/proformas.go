package handler

import (
	"net/http"

	"gestionventas/internal/dto"
	"gestionventas/internal/service"

	"github.com/gin-gonic/gin"
)

type ProformasHandler struct{ svc service.ProformaService }

func NewProformasHandler(svc service.ProformaService) *ProformasHandler {
	return &ProformasHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear proforma
// @Tags         proformas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearProformaRequest true "Proforma"
// @Success      201  {object} dto.ProformaResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/proformas [post]
func (h *ProformasHandler) Crear(c *gin.Context) {
	var req dto.CrearProformaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener proforma
// @Description  Snapshot de la proforma para precargar una venta. No reserva stock.
// @Tags         proformas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la proforma"
// @Success      200  {object} dto.ProformaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/proformas/{id} [get]
func (h *ProformasHandler) Obtener(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar proformas
// @Tags         proformas
// @Produce      json
// @Security     BearerAuth
// @Param        estado     query string false "borrador | confirmada | cerrada"
// @Param        cliente_id query string false "UUID del cliente"
// @Success      200  {object} dto.ProformaListResponse
// @Router       /v1/proformas [get]
func (h *ProformasHandler) Listar(c *gin.Context) {
	var filter dto.ProformaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Modificar proforma en borrador
// @Tags         proformas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la proforma"
// @Param        body body dto.ActualizarProformaRequest true "Cambios"
// @Success      200  {object} dto.ProformaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/proformas/{id} [put]
func (h *ProformasHandler) Actualizar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarProformaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirmar godoc
// @Summary      Confirmar proforma
// @Tags         proformas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la proforma"
// @Success      200  {object} dto.ProformaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/proformas/{id}/confirmar [patch]
func (h *ProformasHandler) Confirmar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Confirmar(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
