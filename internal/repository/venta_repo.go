package repository

import (
	"context"
	"errors"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResumenVentas is the aggregate row returned by Resumen.
type ResumenVentas struct {
	Cantidad int64
	Base     decimal.Decimal
	IGV      decimal.Decimal
	Total    decimal.Decimal
}

// TopProducto is one row of the best-sellers report.
type TopProducto struct {
	Codigo   string
	Nombre   string
	Cantidad int64
	Importe  decimal.Decimal
}

type VentaRepository interface {
	// CreateTx inserts the sale with its items. A unique violation (numero or
	// idempotency key taken by a concurrent commit) surfaces as ErrConflictoVersion.
	CreateTx(tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindByIdempotencyKeyTx returns (nil, nil) when the key is unused.
	FindByIdempotencyKeyTx(tx *gorm.DB, key string) (*model.Venta, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Venta, error)
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)

	// Reports
	Resumen(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error)
	ListEntre(ctx context.Context, desde, hasta time.Time) ([]model.Venta, error)
	TopProductos(ctx context.Context, desde, hasta time.Time, limit int) ([]TopProducto, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) CreateTx(tx *gorm.DB, v *model.Venta) error {
	return conflictOnDuplicate(tx.Create(v).Error)
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items", orderByPosicion).Where("id = ?", id).Take(&v).Error
	return &v, err
}

func (r *ventaRepo) FindByIdempotencyKeyTx(tx *gorm.DB, key string) (*model.Venta, error) {
	var v model.Venta
	err := tx.Preload("Items", orderByPosicion).Where("idempotency_key = ?", key).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Venta, error) {
	return r.FindByIdempotencyKeyTx(r.db.WithContext(ctx), key)
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Numero != "" {
		q = q.Where("numero = ?", filter.Numero)
	}
	if filter.ProformaID != "" {
		q = q.Where("proforma_id = ?", filter.ProformaID)
	}
	if t, err := time.ParseInLocation("2006-01-02", filter.Desde, time.Local); err == nil {
		q = q.Where("created_at >= ?", t)
	}
	if t, err := time.ParseInLocation("2006-01-02", filter.Hasta, time.Local); err == nil {
		q = q.Where("created_at < ?", t.AddDate(0, 0, 1))
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items", orderByPosicion).
		Order("numero DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}

func (r *ventaRepo) Resumen(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error) {
	var out ResumenVentas
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Select("COUNT(*) AS cantidad, COALESCE(SUM(base), 0) AS base, COALESCE(SUM(igv), 0) AS igv, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ? AND created_at < ?", desde, hasta).
		Scan(&out).Error
	return out, err
}

func (r *ventaRepo) ListEntre(ctx context.Context, desde, hasta time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", desde, hasta).
		Order("created_at ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) TopProductos(ctx context.Context, desde, hasta time.Time, limit int) ([]TopProducto, error) {
	var out []TopProducto
	err := r.db.WithContext(ctx).Table("venta_items").
		Select("venta_items.codigo AS codigo, MAX(venta_items.nombre) AS nombre, SUM(venta_items.cant) AS cantidad, SUM(venta_items.subtotal) AS importe").
		Joins("JOIN ventas ON ventas.id = venta_items.venta_id").
		Where("ventas.created_at >= ? AND ventas.created_at < ?", desde, hasta).
		Group("venta_items.codigo").
		Order("cantidad DESC, codigo ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func orderByPosicion(db *gorm.DB) *gorm.DB { return db.Order("posicion ASC") }
