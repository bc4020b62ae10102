package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	// Codigo is optional; an empty code is allocated from the "productos" counter.
	Codigo   string          `json:"codigo"   validate:"omitempty,max=40"`
	Nombre   string          `json:"nombre"   validate:"required,min=2,max=200"`
	Precio   decimal.Decimal `json:"precio"   validate:"min=0"`
	Stock    int             `json:"stock"    validate:"min=0"`
	Impuesto decimal.Decimal `json:"impuesto" validate:"min=0,max=100"`
}

type ActualizarProductoRequest struct {
	Nombre   *string          `json:"nombre"   validate:"omitempty,min=2,max=200"`
	Precio   *decimal.Decimal `json:"precio"`
	Impuesto *decimal.Decimal `json:"impuesto"`
	Activo   *bool            `json:"activo"`
}

// AjustarStockRequest sets or shifts stock outside of a sale.
type AjustarStockRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Codigo string `form:"codigo"`
	Nombre string `form:"nombre"`
	// Activo: "true" (default) | "false" | "all"
	Activo string `form:"activo"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID        string          `json:"id"`
	Codigo    string          `json:"codigo"`
	Nombre    string          `json:"nombre"`
	Precio    decimal.Decimal `json:"precio"`
	Stock     int             `json:"stock"`
	Impuesto  decimal.Decimal `json:"impuesto"`
	Activo    bool            `json:"activo"`
	UpdatedAt string          `json:"updated_at"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ImportarCSVResponse summarises a bulk product import.
type ImportarCSVResponse struct {
	Creados      int            `json:"creados"`
	Actualizados int            `json:"actualizados"`
	Errores      []ErrorFilaCSV `json:"errores"`
}

type ErrorFilaCSV struct {
	Fila   int    `json:"fila"`
	Codigo string `json:"codigo"`
	Motivo string `json:"motivo"`
}
