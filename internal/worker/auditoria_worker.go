package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
)

// AuditoriaJobPayload is the job envelope sent to QueueAuditoria.
type AuditoriaJobPayload struct {
	Accion    string          `json:"accion"`
	Entidad   string          `json:"entidad"`
	EntidadID *string         `json:"entidad_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	UsuarioID *string         `json:"usuario_id,omitempty"`
	Username  *string         `json:"username,omitempty"`
	Rol       *string         `json:"rol,omitempty"`
	// OcurridoEn is stamped when the event happened, not when it is persisted.
	OcurridoEn time.Time `json:"ocurrido_en"`
}

// ToModel converts the payload into the persisted row.
func (p AuditoriaJobPayload) ToModel() *model.Auditoria {
	a := &model.Auditoria{
		Accion:    p.Accion,
		Entidad:   p.Entidad,
		EntidadID: p.EntidadID,
		Payload:   string(p.Payload),
		Username:  p.Username,
		Rol:       p.Rol,
		CreatedAt: p.OcurridoEn,
	}
	if p.UsuarioID != nil {
		if id, err := uuid.Parse(*p.UsuarioID); err == nil {
			a.UsuarioID = &id
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return a
}

// AuditoriaWorker persists audit entries drained from QueueAuditoria.
type AuditoriaWorker struct {
	repo repository.AuditoriaRepository
}

func NewAuditoriaWorker(repo repository.AuditoriaRepository) *AuditoriaWorker {
	return &AuditoriaWorker{repo: repo}
}

func (w *AuditoriaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload AuditoriaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("auditoria_worker: invalid payload: %w", err)
	}
	return w.repo.Create(ctx, payload.ToModel())
}
