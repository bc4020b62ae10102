package handler

import (
	"net/http"
	"strings"

	"gestionventas/internal/dto"
	"gestionventas/internal/service"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets a client retry POST /v1/ventas safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Crea la venta de forma atomica: valida stock, asigna el numero V-NNNNNN, descuenta stock y cierra la proforma de origen. Un Idempotency-Key repetido devuelve la venta existente con 200.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "Clave de idempotencia"
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Success      200  {object} dto.VentaResponse "Venta ya registrada con esa clave"
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.StockError
// @Failure      422  {object} apierror.ValidationError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = &key
	}

	resp, err := h.svc.RegistrarVenta(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Existente {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// ObtenerVenta godoc
// @Summary      Obtener venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la venta"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Description  Retorna lista paginada de ventas filtrada por rango de fechas, numero o proforma.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        desde       query string false "Fecha YYYY-MM-DD"
// @Param        hasta       query string false "Fecha YYYY-MM-DD"
// @Param        numero      query string false "Numero V-NNNNNN"
// @Param        proforma_id query string false "UUID de la proforma"
// @Param        page        query int    false "Pagina (default 1)"
// @Param        limit       query int    false "Registros por pagina (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarVentas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DescargarPDF godoc
// @Summary      Descargar comprobante PDF
// @Tags         ventas
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la venta"
// @Success      200
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id}/pdf [get]
func (h *VentasHandler) DescargarPDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.ObtenerPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, "comprobante-"+id.String()+".pdf")
}
