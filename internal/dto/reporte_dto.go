package dto

import "github.com/shopspring/decimal"

// ReporteFilter bounds every report by creation date (YYYY-MM-DD, inclusive).
type ReporteFilter struct {
	Desde string `form:"desde" validate:"required,datetime=2006-01-02"`
	Hasta string `form:"hasta" validate:"required,datetime=2006-01-02"`
	Top   int    `form:"top,default=10" validate:"min=1,max=100"`
}

type ResumenVentasResponse struct {
	Desde          string          `json:"desde"`
	Hasta          string          `json:"hasta"`
	Cantidad       int64           `json:"cantidad"`
	Base           decimal.Decimal `json:"base"`
	IGV            decimal.Decimal `json:"igv"`
	Total          decimal.Decimal `json:"total"`
	TicketPromedio decimal.Decimal `json:"ticket_promedio"`
}

type VentasPorDiaItem struct {
	Fecha    string          `json:"fecha"`
	Cantidad int64           `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
}

type TopProductoItem struct {
	Codigo   string          `json:"codigo"`
	Nombre   string          `json:"nombre"`
	Cantidad int64           `json:"cantidad"`
	Importe  decimal.Decimal `json:"importe"`
}
