package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auditoria is an append-only audit trail entry.
// Accion: "venta.create" | "producto.stock-reduction" | "proforma.close" | ...
type Auditoria struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Accion    string     `gorm:"type:varchar(60);index;not null"`
	Entidad   string     `gorm:"type:varchar(30);index;not null"`
	EntidadID *string    `gorm:"type:varchar(64)"`
	Payload   string     `gorm:"type:text"` // JSON
	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	Username  *string
	Rol       *string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time  `gorm:"index"`
}

// TableName keeps the singular Spanish name used by the rest of the schema.
func (Auditoria) TableName() string { return "auditoria" }

func (a *Auditoria) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
