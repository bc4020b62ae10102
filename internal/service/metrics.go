package service

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("gestionventas/service")

// Instruments are created against the global delegate, so they start
// exporting once infra.InitMetrics installs a provider.
var (
	ventasRegistradas, _ = meter.Int64Counter("ventas.registradas",
		metric.WithDescription("Sales committed"))
	ventasRechazadas, _ = meter.Int64Counter("ventas.rechazadas",
		metric.WithDescription("Sales rejected inside the transaction, by reason"))
	txReintentos, _ = meter.Int64Counter("tx.reintentos",
		metric.WithDescription("Transaction attempts lost to a concurrent writer"))
	ventaImporte, _ = meter.Float64Histogram("ventas.importe",
		metric.WithDescription("Sale total"), metric.WithUnit("{PEN}"))
)

// motivoRechazo buckets a failed sale for the ventas.rechazadas counter.
func motivoRechazo(err error) string {
	var stockErr *StockInsuficienteError
	var noEncontrado *ProductoNoEncontradoError
	switch {
	case errors.As(err, &stockErr):
		return "stock"
	case errors.As(err, &noEncontrado):
		return "producto"
	case errors.Is(err, ErrConflictoConcurrencia):
		return "conflicto"
	case errors.Is(err, ErrClaveReutilizada):
		return "idempotencia"
	case errors.Is(err, ErrProformaNoEncontrada),
		errors.Is(err, ErrProformaNoConfirmada),
		errors.Is(err, ErrProformaCerrada):
		return "proforma"
	default:
		return "error"
	}
}
