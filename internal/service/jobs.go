package service

import (
	"context"
	"time"

	"gestionventas/internal/worker"

	"github.com/shopspring/decimal"
)

// JobDispatcher is the part of worker.Dispatcher the services depend on.
type JobDispatcher interface {
	EnqueueAuditoria(ctx context.Context, payload worker.AuditoriaJobPayload) error
	EnqueueComprobante(ctx context.Context, payload worker.ComprobanteJobPayload) error
}

var _ JobDispatcher = (*worker.Dispatcher)(nil)

// EventPublisher broadcasts committed facts to downstream consumers.
// Implemented by *infra.EventPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// VentaRegistradaEvent is published once per committed sale.
type VentaRegistradaEvent struct {
	Tipo       string            `json:"tipo"`
	VentaID    string            `json:"venta_id"`
	Numero     string            `json:"numero"`
	Total      decimal.Decimal   `json:"total"`
	ProformaID *string           `json:"proforma_id,omitempty"`
	Items      []EventoItemStock `json:"items"`
	Usuario    string            `json:"usuario"`
	OcurridoEn time.Time         `json:"ocurrido_en"`
}

// EventoItemStock is the per-product stock change carried by the event.
type EventoItemStock struct {
	Codigo     string `json:"codigo"`
	Cant       int    `json:"cant"`
	StockNuevo int    `json:"stock_nuevo"`
}
