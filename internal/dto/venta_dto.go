package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Desde      string `form:"desde"` // YYYY-MM-DD, inclusive
	Hasta      string `form:"hasta"` // YYYY-MM-DD, inclusive
	Numero     string `form:"numero"`
	ProformaID string `form:"proforma_id" validate:"omitempty,uuid"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LineaVentaRequest is one line of a sale. Name and price are a snapshot taken
// by the client; only the code is resolved against the live catalog.
type LineaVentaRequest struct {
	Codigo string          `json:"codigo" validate:"required,max=40"`
	Nombre string          `json:"nombre" validate:"required,max=200"`
	Precio decimal.Decimal `json:"precio" validate:"min=0"`
	Cant   int             `json:"cant"   validate:"required,min=1"`
}

type RegistrarVentaRequest struct {
	ProformaID *string             `json:"proforma_id" validate:"omitempty,uuid"`
	Items      []LineaVentaRequest `json:"items"       validate:"dive"`
	// IdempotencyKey is generated by the client once per intended sale; the
	// Idempotency-Key header takes precedence when both are present.
	IdempotencyKey *string `json:"idempotency_key" validate:"omitempty,max=64"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	Codigo   string          `json:"codigo"`
	Nombre   string          `json:"nombre"`
	Precio   decimal.Decimal `json:"precio"`
	Cant     int             `json:"cant"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type VentaResponse struct {
	ID          string              `json:"id"`
	Numero      string              `json:"numero"`
	Items       []ItemVentaResponse `json:"items"`
	Base        decimal.Decimal     `json:"base"`
	IGV         decimal.Decimal     `json:"igv"`
	Total       decimal.Decimal     `json:"total"`
	IGVIncluido bool                `json:"igv_incluido"`
	IGVRate     decimal.Decimal     `json:"igv_rate"`
	ProformaID  *string             `json:"proforma_id"`
	Estado      string              `json:"estado"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   string              `json:"created_at"`
	// Advertencias lists post-commit steps that failed; the sale itself is committed.
	Advertencias []string `json:"advertencias,omitempty"`
	// Existente is true when an idempotency key matched an already-committed sale.
	Existente bool `json:"existente,omitempty"`
}
