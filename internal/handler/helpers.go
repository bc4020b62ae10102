package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"gestionventas/internal/apierror"
	"gestionventas/internal/middleware"
	"gestionventas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido"))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos"))
		return false
	}
	return validateStruct(c, filter)
}

func validateStruct(c *gin.Context, v interface{}) bool {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New("Solicitud invalida"))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			// "RegistrarVentaRequest.Items[0].Cant" -> "Items[0].Cant"
			ns := fe.Namespace()
			if i := strings.Index(ns, "."); i >= 0 {
				ns = ns[i+1:]
			}
			fields[ns] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service actor from the JWT claims.
func actorFrom(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}
	}
	id, _ := uuid.Parse(claims.UserID)
	return service.Actor{ID: id, Username: claims.Username, Rol: claims.Rol}
}

// respondError maps service errors to HTTP responses. Unknown errors are
// attached to the context and rendered by middleware.ErrorHandler.
func respondError(c *gin.Context, err error) {
	var (
		verr  *service.ValidacionError
		stock *service.StockInsuficienteError
		noPrd *service.ProductoNoEncontradoError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(verr.Campos))
	case errors.Is(err, service.ErrSinItems):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{"items": err.Error()}))
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, &apierror.StockError{
			Detail:     stock.Error(),
			Codigo:     stock.Codigo,
			Nombre:     stock.Nombre,
			Disponible: stock.Disponible,
			Solicitado: stock.Solicitado,
		})
	case errors.As(err, &noPrd):
		c.JSON(http.StatusNotFound, apierror.New(noPrd.Error()))
	case errors.Is(err, service.ErrConflictoConcurrencia):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, apierror.New(service.ErrConflictoConcurrencia.Error()))
	case errors.Is(err, service.ErrConsultaDocumentoNoDisponible):
		c.JSON(http.StatusServiceUnavailable, apierror.New(service.ErrConsultaDocumentoNoDisponible.Error()))
	case errors.Is(err, service.ErrVentaNoEncontrada),
		errors.Is(err, service.ErrProformaNoEncontrada),
		errors.Is(err, service.ErrProductoNoEncontrado),
		errors.Is(err, service.ErrClienteNoEncontrado),
		errors.Is(err, service.ErrDocumentoNoEncontrado),
		errors.Is(err, service.ErrUsuarioNoEncontrado),
		errors.Is(err, service.ErrContadorDesconocido),
		errors.Is(err, service.ErrComprobantePendiente):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrProformaNoConfirmada),
		errors.Is(err, service.ErrProformaCerrada),
		errors.Is(err, service.ErrProformaNoEditable),
		errors.Is(err, service.ErrCodigoDuplicado),
		errors.Is(err, service.ErrClienteConProformas),
		errors.Is(err, service.ErrClaveReutilizada):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCredenciales),
		errors.Is(err, service.ErrRefreshInvalido):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	default:
		// middleware.ErrorHandler logs it and writes the generic 500.
		_ = c.Error(err)
	}
}
