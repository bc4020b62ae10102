package worker

// email_worker.go
// Processes email jobs from QueueEmail: sends the PDF receipt to the client
// through the SMTP mailer (which is guarded by a circuit breaker).

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gestionventas/internal/infra"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ComprobanteID string `json:"comprobante_id"`
	ToEmail       string `json:"to_email"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	PDFPath       string `json:"pdf_path"`
}

// Sender is the part of infra.Mailer the worker needs.
type Sender interface {
	SendComprobante(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	mailer          Sender
	comprobanteRepo repository.ComprobanteRepository
}

func NewEmailWorker(mailer Sender, comprobanteRepo repository.ComprobanteRepository) *EmailWorker {
	return &EmailWorker{mailer: mailer, comprobanteRepo: comprobanteRepo}
}

// Process sends an email with the PDF receipt as attachment. SMTP not being
// configured is not an error: the job is dropped with a log line.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.mailer.SendComprobante(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	if errors.Is(err, infra.ErrSMTPNoConfigurado) {
		log.Info().Str("to", payload.ToEmail).Msg("email_worker: SMTP not configured, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: comprobante sent successfully")

	if id, perr := uuid.Parse(payload.ComprobanteID); perr == nil && w.comprobanteRepo != nil {
		if err := w.comprobanteRepo.MarcarEmailEnviado(ctx, id); err != nil {
			log.Warn().Err(err).Str("comprobante_id", payload.ComprobanteID).Msg("email_worker: failed to flag email as sent")
		}
	}
	return nil
}
