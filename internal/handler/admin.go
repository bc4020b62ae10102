package handler

import (
	"net/http"

	"gestionventas/internal/dto"
	"gestionventas/internal/service"

	"github.com/gin-gonic/gin"
)

// ── Auditoria ────────────────────────────────────────────────────────────────

type AuditoriaHandler struct{ svc service.AuditoriaService }

func NewAuditoriaHandler(svc service.AuditoriaService) *AuditoriaHandler {
	return &AuditoriaHandler{svc: svc}
}

// Listar godoc
// @Summary      Consultar auditoria
// @Tags         auditoria
// @Produce      json
// @Security     BearerAuth
// @Param        entidad    query string false "ventas | productos | proformas | clientes | usuarios | contadores"
// @Param        accion     query string false "Accion, p.ej. venta.create"
// @Param        entidad_id query string false "ID de la entidad"
// @Success      200  {object} dto.AuditoriaListResponse
// @Router       /v1/auditoria [get]
func (h *AuditoriaHandler) Listar(c *gin.Context) {
	var filter dto.AuditoriaFilter
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

// ── Contadores ───────────────────────────────────────────────────────────────

type ContadoresHandler struct {
	svc       service.ContadorService
	auditoria service.AuditoriaService
}

func NewContadoresHandler(svc service.ContadorService, auditoria service.AuditoriaService) *ContadoresHandler {
	return &ContadoresHandler{svc: svc, auditoria: auditoria}
}

func (h *ContadoresHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ContadoresHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reiniciar godoc
// @Summary      Reiniciar contador
// @Description  Fija el valor actual; la siguiente asignacion devuelve valor+1.
// @Tags         contadores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "ventas | proformas | productos"
// @Param        body body dto.ReiniciarContadorRequest true "Nuevo valor"
// @Success      200  {object} dto.ContadorResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/contadores/{id} [put]
func (h *ContadoresHandler) Reiniciar(c *gin.Context) {
	var req dto.ReiniciarContadorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id := c.Param("id")
	resp, err := h.svc.Reiniciar(c.Request.Context(), id, req.Valor)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditoria.Registrar(c.Request.Context(), service.EventoAuditoria{
		Accion:    "contador.reset",
		Entidad:   "contadores",
		EntidadID: &id,
		Payload:   map[string]interface{}{"valor": req.Valor},
		Actor:     actorFrom(c),
	})
	c.JSON(http.StatusOK, resp)
}

// ── Reportes ─────────────────────────────────────────────────────────────────

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// Resumen godoc
// @Summary      Resumen de ventas
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Param        desde query string true "YYYY-MM-DD"
// @Param        hasta query string true "YYYY-MM-DD"
// @Success      200  {object} dto.ResumenVentasResponse
// @Router       /v1/reportes/resumen [get]
func (h *ReportesHandler) Resumen(c *gin.Context) {
	var filter dto.ReporteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Resumen(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportesHandler) PorDia(c *gin.Context) {
	var filter dto.ReporteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.PorDia(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportesHandler) TopProductos(c *gin.Context) {
	var filter dto.ReporteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.TopProductos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
