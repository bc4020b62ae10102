package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Producto is a sellable catalog item. Stock is mutated only by the sale
// transaction and by manual adjustments, always through a version-checked
// write (see repository.ProductoRepository.UpdateStockTx).
type Producto struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Codigo string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	Nombre string          `gorm:"index;not null"`
	Precio decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock  int             `gorm:"not null;default:0"`
	// Impuesto is a percentage in [0, 100]
	Impuesto decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Activo   bool            `gorm:"not null;default:true"`
	// Version is bumped on every stock write; concurrent writers lose the race
	// and retry their whole transaction.
	Version   int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Producto) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
