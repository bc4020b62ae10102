package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSinItems              = errors.New("la venta debe contener al menos un producto")
	ErrConflictoConcurrencia = errors.New("demasiadas operaciones concurrentes, intente nuevamente")
	ErrClaveReutilizada      = errors.New("la clave de idempotencia ya se uso con otra venta")

	ErrVentaNoEncontrada    = errors.New("venta no encontrada")
	ErrComprobantePendiente = errors.New("el comprobante aun no esta disponible")

	ErrProformaNoEncontrada = errors.New("proforma no encontrada")
	ErrProformaNoConfirmada = errors.New("la proforma debe estar confirmada para convertirse en venta")
	ErrProformaCerrada      = errors.New("la proforma ya fue convertida en venta")
	ErrProformaNoEditable   = errors.New("solo se pueden modificar proformas en borrador")

	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	ErrCodigoDuplicado      = errors.New("ya existe un producto con ese codigo")

	ErrClienteNoEncontrado = errors.New("cliente no encontrado")
	ErrClienteConProformas = errors.New("el cliente tiene proformas asociadas y no puede eliminarse")

	ErrDocumentoNoEncontrado         = errors.New("no se encontraron datos para el documento")
	ErrConsultaDocumentoNoDisponible = errors.New("la consulta de DNI/RUC no esta disponible")

	ErrContadorDesconocido = errors.New("contador desconocido")
	ErrUsuarioNoEncontrado = errors.New("usuario no encontrado")
	ErrCredenciales        = errors.New("credenciales invalidas")
	ErrRefreshInvalido     = errors.New("refresh token invalido o expirado")
)

// ProductoNoEncontradoError is raised when a line references a code that does
// not exist or is disabled.
type ProductoNoEncontradoError struct {
	Codigo string
}

func (e *ProductoNoEncontradoError) Error() string {
	return fmt.Sprintf("producto %s no encontrado", e.Codigo)
}

// StockInsuficienteError carries enough detail for the seller to fix the order.
type StockInsuficienteError struct {
	Codigo     string
	Nombre     string
	Disponible int
	Solicitado int
}

func (e *StockInsuficienteError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s (%s): disponible %d, solicitado %d",
		e.Nombre, e.Codigo, e.Disponible, e.Solicitado)
}

// ValidacionError groups input problems by field path (e.g. "items[1].cant").
type ValidacionError struct {
	Campos map[string]string
}

func (e *ValidacionError) Error() string {
	keys := make([]string, 0, len(e.Campos))
	for k := range e.Campos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Campos[k]
	}
	return "datos invalidos: " + strings.Join(parts, "; ")
}

func (e *ValidacionError) add(campo, motivo string) {
	if e.Campos == nil {
		e.Campos = make(map[string]string)
	}
	e.Campos[campo] = motivo
}

// orNil returns e only when at least one field failed.
func (e *ValidacionError) orNil() error {
	if len(e.Campos) == 0 {
		return nil
	}
	return e
}
