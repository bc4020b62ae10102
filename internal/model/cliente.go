package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cliente is a customer that proformas are issued to.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"index;not null"`
	Email     *string   `gorm:"type:varchar(150)"`
	Telefono  string    `gorm:"type:varchar(15)"`
	DniRuc    string    `gorm:"type:varchar(11);index"`
	Direccion string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Cliente) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
