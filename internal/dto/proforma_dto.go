package dto

import "github.com/shopspring/decimal"

type LineaProformaRequest struct {
	Codigo string          `json:"codigo" validate:"required,max=40"`
	Nombre string          `json:"nombre" validate:"required,max=200"`
	Precio decimal.Decimal `json:"precio" validate:"min=0"`
	Cant   int             `json:"cant"   validate:"required,min=1"`
}

type CrearProformaRequest struct {
	ClienteID string                 `json:"cliente_id" validate:"required,uuid"`
	Items     []LineaProformaRequest `json:"items"      validate:"required,min=1,dive"`
	// IGVIncluido overrides the configured default when set.
	IGVIncluido *bool `json:"igv_incluido"`
}

type ActualizarProformaRequest struct {
	ClienteID   *string                `json:"cliente_id" validate:"omitempty,uuid"`
	Items       []LineaProformaRequest `json:"items"      validate:"omitempty,min=1,dive"`
	IGVIncluido *bool                  `json:"igv_incluido"`
}

type ProformaFilter struct {
	Estado    string `form:"estado" validate:"omitempty,oneof=borrador confirmada cerrada"`
	ClienteID string `form:"cliente_id" validate:"omitempty,uuid"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type ProformaResponse struct {
	ID            string              `json:"id"`
	Numero        string              `json:"numero"`
	ClienteID     string              `json:"cliente_id"`
	ClienteNombre string              `json:"cliente_nombre"`
	Items         []ItemVentaResponse `json:"items"`
	Base          decimal.Decimal     `json:"base"`
	IGV           decimal.Decimal     `json:"igv"`
	Total         decimal.Decimal     `json:"total"`
	IGVIncluido   bool                `json:"igv_incluido"`
	IGVRate       decimal.Decimal     `json:"igv_rate"`
	Estado        string              `json:"estado"`
	VentaID       *string             `json:"venta_id"`
	CerradaEn     *string             `json:"cerrada_en"`
	CreatedAt     string              `json:"created_at"`
}

type ProformaListResponse struct {
	Data  []ProformaResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
