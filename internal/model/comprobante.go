package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comprobante tracks the PDF receipt generated after a sale commits.
// Estado: "pendiente" | "generado" | "error"
type Comprobante struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	VentaID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Numero  string    `gorm:"type:varchar(20);not null"`
	Estado  string    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	// PDFPath is absolute, under PDF_STORAGE_PATH
	PDFPath       *string `gorm:"column:pdf_path"`
	ClienteNombre string
	ClienteEmail  *string `gorm:"type:varchar(150)"`
	EmailEnviado  bool    `gorm:"not null;default:false"`
	// Retry fields: used by retry_cron to re-attempt failed generations
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at;index"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Comprobante) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
