package model

import "time"

// Identificadores de contador, one per numbered document type.
const (
	ContadorVentas    = "ventas"
	ContadorProductos = "productos"
	ContadorProformas = "proformas"
)

// Contador is a named monotonic sequence. Seq doubles as the optimistic
// concurrency token: writes are conditional on the value that was read.
type Contador struct {
	ID         string `gorm:"type:varchar(30);primaryKey"`
	Seq        int64  `gorm:"not null;default:0"`
	LastNumber string `gorm:"type:varchar(20)"`
	UpdatedAt  time.Time
}

func (Contador) TableName() string { return "contadores" }
