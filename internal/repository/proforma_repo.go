package repository

import (
	"context"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProformaRepository interface {
	CreateTx(tx *gorm.DB, p *model.Proforma) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Proforma, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Proforma, error)
	List(ctx context.Context, filter dto.ProformaFilter) ([]model.Proforma, int64, error)
	// UpdateTx rewrites header and items of a draft, conditional on version.
	UpdateTx(tx *gorm.DB, p *model.Proforma, prevVersion int64) error
	CambiarEstadoTx(tx *gorm.DB, id uuid.UUID, prevVersion int64, estado string) error
	// CerrarTx marks the proforma as consumed by ventaID, conditional on version.
	CerrarTx(tx *gorm.DB, id uuid.UUID, prevVersion int64, ventaID uuid.UUID, cerradaEn time.Time) error
	CountByCliente(ctx context.Context, clienteID uuid.UUID) (int64, error)
	DB() *gorm.DB
}

type proformaRepo struct{ db *gorm.DB }

func NewProformaRepository(db *gorm.DB) ProformaRepository { return &proformaRepo{db: db} }

func (r *proformaRepo) DB() *gorm.DB { return r.db }

func (r *proformaRepo) CreateTx(tx *gorm.DB, p *model.Proforma) error {
	return conflictOnDuplicate(tx.Create(p).Error)
}

func (r *proformaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Proforma, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *proformaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Proforma, error) {
	var p model.Proforma
	err := tx.Preload("Items", orderByPosicion).Where("id = ?", id).Take(&p).Error
	return &p, err
}

func (r *proformaRepo) List(ctx context.Context, filter dto.ProformaFilter) ([]model.Proforma, int64, error) {
	var proformas []model.Proforma
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Proforma{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.ClienteID != "" {
		q = q.Where("cliente_id = ?", filter.ClienteID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items", orderByPosicion).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&proformas).Error
	return proformas, total, err
}

func (r *proformaRepo) UpdateTx(tx *gorm.DB, p *model.Proforma, prevVersion int64) error {
	res := tx.Model(&model.Proforma{}).
		Where("id = ? AND version = ? AND estado = ?", p.ID, prevVersion, model.ProformaBorrador).
		Updates(map[string]interface{}{
			"cliente_id":     p.ClienteID,
			"cliente_nombre": p.ClienteNombre,
			"base":           p.Base,
			"igv":            p.IGV,
			"total":          p.Total,
			"igv_incluido":   p.IGVIncluido,
			"igv_rate":       p.IGVRate,
			"version":        prevVersion + 1,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflictoVersion
	}
	if err := tx.Where("proforma_id = ?", p.ID).Delete(&model.ProformaItem{}).Error; err != nil {
		return err
	}
	for i := range p.Items {
		p.Items[i].ID = uuid.Nil
		p.Items[i].ProformaID = p.ID
	}
	if len(p.Items) == 0 {
		return nil
	}
	return tx.Create(&p.Items).Error
}

func (r *proformaRepo) CambiarEstadoTx(tx *gorm.DB, id uuid.UUID, prevVersion int64, estado string) error {
	res := tx.Model(&model.Proforma{}).
		Where("id = ? AND version = ?", id, prevVersion).
		Updates(map[string]interface{}{
			"estado":     estado,
			"version":    prevVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflictoVersion
	}
	return nil
}

func (r *proformaRepo) CerrarTx(tx *gorm.DB, id uuid.UUID, prevVersion int64, ventaID uuid.UUID, cerradaEn time.Time) error {
	res := tx.Model(&model.Proforma{}).
		Where("id = ? AND version = ? AND estado = ?", id, prevVersion, model.ProformaConfirmada).
		Updates(map[string]interface{}{
			"estado":     model.ProformaCerrada,
			"venta_id":   ventaID,
			"cerrada_en": cerradaEn,
			"version":    prevVersion + 1,
			"updated_at": cerradaEn,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflictoVersion
	}
	return nil
}

func (r *proformaRepo) CountByCliente(ctx context.Context, clienteID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Proforma{}).Where("cliente_id = ?", clienteID).Count(&n).Error
	return n, err
}
