package repository

import (
	"context"
	"errors"
	"time"

	"gestionventas/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContadorRepository persists named document sequences. The *Tx methods are
// the only ones allowed on the allocation path.
type ContadorRepository interface {
	// FindTx returns (nil, nil) when the counter has never been allocated.
	FindTx(tx *gorm.DB, id string) (*model.Contador, error)
	CreateTx(tx *gorm.DB, c *model.Contador) error
	// AdvanceTx moves the counter from prevSeq to nextSeq. It fails with
	// ErrConflictoVersion when the stored value is no longer prevSeq.
	AdvanceTx(tx *gorm.DB, id string, prevSeq, nextSeq int64, lastNumber string) error

	Find(ctx context.Context, id string) (*model.Contador, error)
	List(ctx context.Context) ([]model.Contador, error)
	Reset(ctx context.Context, id string, valor int64, lastNumber string) error
	DB() *gorm.DB
}

type contadorRepo struct{ db *gorm.DB }

func NewContadorRepository(db *gorm.DB) ContadorRepository { return &contadorRepo{db: db} }

func (r *contadorRepo) DB() *gorm.DB { return r.db }

func (r *contadorRepo) FindTx(tx *gorm.DB, id string) (*model.Contador, error) {
	var c model.Contador
	err := tx.Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contadorRepo) CreateTx(tx *gorm.DB, c *model.Contador) error {
	return conflictOnDuplicate(tx.Create(c).Error)
}

func (r *contadorRepo) AdvanceTx(tx *gorm.DB, id string, prevSeq, nextSeq int64, lastNumber string) error {
	res := tx.Model(&model.Contador{}).
		Where("id = ? AND seq = ?", id, prevSeq).
		Updates(map[string]interface{}{
			"seq":         nextSeq,
			"last_number": lastNumber,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflictoVersion
	}
	return nil
}

func (r *contadorRepo) Find(ctx context.Context, id string) (*model.Contador, error) {
	return r.FindTx(r.db.WithContext(ctx), id)
}

func (r *contadorRepo) List(ctx context.Context) ([]model.Contador, error) {
	var cs []model.Contador
	err := r.db.WithContext(ctx).Order("id ASC").Find(&cs).Error
	return cs, err
}

func (r *contadorRepo) Reset(ctx context.Context, id string, valor int64, lastNumber string) error {
	c := model.Contador{ID: id, Seq: valor, LastNumber: lastNumber, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"seq", "last_number", "updated_at"}),
	}).Create(&c).Error
}
