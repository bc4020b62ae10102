package service

import (
	"context"
	"fmt"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/repository"

	"github.com/shopspring/decimal"
)

type ReporteService interface {
	Resumen(ctx context.Context, filter dto.ReporteFilter) (*dto.ResumenVentasResponse, error)
	// PorDia lists every day of the range, including days without sales.
	PorDia(ctx context.Context, filter dto.ReporteFilter) ([]dto.VentasPorDiaItem, error)
	TopProductos(ctx context.Context, filter dto.ReporteFilter) ([]dto.TopProductoItem, error)
}

type reporteService struct {
	repo repository.VentaRepository
}

func NewReporteService(repo repository.VentaRepository) ReporteService {
	return &reporteService{repo: repo}
}

const (
	fechaLayout = "2006-01-02"
	// maxDiasReporte bounds the per-day buckets and the rows ListEntre loads.
	maxDiasReporte = 366
)

// rango parses the inclusive [desde, hasta] dates into a half-open interval.
func rango(f dto.ReporteFilter) (time.Time, time.Time, error) {
	verr := &ValidacionError{}
	desde, err := time.ParseInLocation(fechaLayout, f.Desde, time.Local)
	if err != nil {
		verr.add("desde", "fecha invalida (YYYY-MM-DD)")
	}
	hasta, err := time.ParseInLocation(fechaLayout, f.Hasta, time.Local)
	if err != nil {
		verr.add("hasta", "fecha invalida (YYYY-MM-DD)")
	}
	if err := verr.orNil(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if hasta.Before(desde) {
		return time.Time{}, time.Time{}, &ValidacionError{Campos: map[string]string{"hasta": "debe ser posterior a desde"}}
	}
	if hasta.After(desde.AddDate(0, 0, maxDiasReporte-1)) {
		return time.Time{}, time.Time{}, &ValidacionError{Campos: map[string]string{
			"hasta": fmt.Sprintf("el rango no puede superar %d dias", maxDiasReporte),
		}}
	}
	return desde, hasta.AddDate(0, 0, 1), nil
}

func (s *reporteService) Resumen(ctx context.Context, filter dto.ReporteFilter) (*dto.ResumenVentasResponse, error) {
	desde, hasta, err := rango(filter)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.Resumen(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	promedio := decimal.Zero
	if r.Cantidad > 0 {
		promedio = r.Total.Div(decimal.NewFromInt(r.Cantidad)).Round(2)
	}
	return &dto.ResumenVentasResponse{
		Desde:          filter.Desde,
		Hasta:          filter.Hasta,
		Cantidad:       r.Cantidad,
		Base:           r.Base.Round(2),
		IGV:            r.IGV.Round(2),
		Total:          r.Total.Round(2),
		TicketPromedio: promedio,
	}, nil
}

func (s *reporteService) PorDia(ctx context.Context, filter dto.ReporteFilter) ([]dto.VentasPorDiaItem, error) {
	desde, hasta, err := rango(filter)
	if err != nil {
		return nil, err
	}
	ventas, err := s.repo.ListEntre(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	var out []dto.VentasPorDiaItem
	for d := desde; d.Before(hasta); d = d.AddDate(0, 0, 1) {
		fecha := d.Format(fechaLayout)
		idx[fecha] = len(out)
		out = append(out, dto.VentasPorDiaItem{Fecha: fecha, Total: decimal.Zero})
	}
	for _, v := range ventas {
		i, ok := idx[v.CreatedAt.In(time.Local).Format(fechaLayout)]
		if !ok {
			continue
		}
		out[i].Cantidad++
		out[i].Total = out[i].Total.Add(v.Total)
	}
	return out, nil
}

func (s *reporteService) TopProductos(ctx context.Context, filter dto.ReporteFilter) ([]dto.TopProductoItem, error) {
	desde, hasta, err := rango(filter)
	if err != nil {
		return nil, err
	}
	top := filter.Top
	if top <= 0 {
		top = 10
	}
	rows, err := s.repo.TopProductos(ctx, desde, hasta, top)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TopProductoItem, len(rows))
	for i, r := range rows {
		out[i] = dto.TopProductoItem{Codigo: r.Codigo, Nombre: r.Nombre, Cantidad: r.Cantidad, Importe: r.Importe.Round(2)}
	}
	return out, nil
}
