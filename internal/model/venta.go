package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VentaRegistrada is the only state a sale can be in.
const VentaRegistrada = "registrada"

// Venta is an immutable, numbered sale. There is no update path: items and
// totals are written once inside the sale transaction.
type Venta struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Numero      string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	Base        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IGV         decimal.Decimal `gorm:"type:decimal(12,2);not null;column:igv"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IGVIncluido bool            `gorm:"not null;column:igv_incluido"`
	IGVRate     decimal.Decimal `gorm:"type:decimal(5,4);not null;column:igv_rate"`
	ProformaID  *uuid.UUID      `gorm:"type:uuid;index"`
	Estado      string          `gorm:"type:varchar(20);not null;default:'registrada'"`
	// IdempotencyKey is supplied by the client so a retried submission after a
	// timeout returns the already-committed sale instead of creating another.
	IdempotencyKey *string `gorm:"type:varchar(64);uniqueIndex"`
	// RequestHash fingerprints the lines and proforma behind IdempotencyKey.
	RequestHash string    `gorm:"type:varchar(64)"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

// TableName pins the plural; gorm's inflector leaves "venta" unchanged.
func (Venta) TableName() string { return "ventas" }

func (v *Venta) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VentaItem is a snapshot of a line at sale time.
type VentaItem struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Posicion int             `gorm:"not null"`
	Codigo   string          `gorm:"type:varchar(40);index;not null"`
	Nombre   string          `gorm:"not null"`
	Precio   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cant     int             `gorm:"not null"`
	Subtotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (VentaItem) TableName() string { return "venta_items" }

func (i *VentaItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
