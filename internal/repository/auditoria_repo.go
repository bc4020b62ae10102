package repository

import (
	"context"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"

	"gorm.io/gorm"
)

// AuditoriaRepository is append-only: there is no update or delete.
type AuditoriaRepository interface {
	Create(ctx context.Context, a *model.Auditoria) error
	List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.Auditoria, int64, error)
}

type auditoriaRepo struct{ db *gorm.DB }

func NewAuditoriaRepository(db *gorm.DB) AuditoriaRepository { return &auditoriaRepo{db: db} }

func (r *auditoriaRepo) Create(ctx context.Context, a *model.Auditoria) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *auditoriaRepo) List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.Auditoria, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Auditoria{})
	if filter.Entidad != "" {
		q = q.Where("entidad = ?", filter.Entidad)
	}
	if filter.Accion != "" {
		q = q.Where("accion = ?", filter.Accion)
	}
	if filter.EntidadID != "" {
		q = q.Where("entidad_id = ?", filter.EntidadID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []model.Auditoria
	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&out).Error
	return out, total, err
}
