package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados de una proforma. cerrada is terminal and only reachable through a
// committed sale.
const (
	ProformaBorrador   = "borrador"
	ProformaConfirmada = "confirmada"
	ProformaCerrada    = "cerrada"
)

// Proforma is a non-binding quote for a client.
type Proforma struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Numero        string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	ClienteID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	ClienteNombre string          `gorm:"not null"`
	Base          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IGV           decimal.Decimal `gorm:"type:decimal(12,2);not null;column:igv"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IGVIncluido   bool            `gorm:"not null;column:igv_incluido"`
	IGVRate       decimal.Decimal `gorm:"type:decimal(5,4);not null;column:igv_rate"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'borrador'"`
	// VentaID back-references the sale that consumed this proforma.
	VentaID   *uuid.UUID `gorm:"type:uuid"`
	CerradaEn *time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid"`
	Version   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []ProformaItem `gorm:"foreignKey:ProformaID;constraint:OnDelete:CASCADE"`
}

func (Proforma) TableName() string { return "proformas" }

func (p *Proforma) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProformaItem is a line snapshot; it does not reference the live product row.
type ProformaItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProformaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Posicion   int             `gorm:"not null"`
	Codigo     string          `gorm:"type:varchar(40);not null"`
	Nombre     string          `gorm:"not null"`
	Precio     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cant       int             `gorm:"not null"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (ProformaItem) TableName() string { return "proforma_items" }

func (i *ProformaItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
