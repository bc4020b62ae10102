package worker

// comprobante_worker.go
// Generates the PDF receipt of a committed sale. Runs outside the sale
// transaction: a failure here never affects the sale, it only schedules a
// retry picked up by retry_cron.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gestionventas/internal/infra"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxComprobanteRetries is how many failed generations retry_cron tolerates
// before giving up and moving the receipt to estado "error".
const MaxComprobanteRetries = 5

// ComprobanteJobPayload is the job envelope sent to QueueComprobante.
type ComprobanteJobPayload struct {
	VentaID       string  `json:"venta_id"`
	ClienteNombre string  `json:"cliente_nombre,omitempty"`
	ClienteEmail  *string `json:"cliente_email,omitempty"`
}

// ComprobanteWorker renders receipts with fpdf and hands them to the email queue.
type ComprobanteWorker struct {
	comprobanteRepo repository.ComprobanteRepository
	ventaRepo       repository.VentaRepository
	dispatcher      *Dispatcher
	pdfStoragePath  string
	empresa         string
}

func NewComprobanteWorker(
	comprobanteRepo repository.ComprobanteRepository,
	ventaRepo repository.VentaRepository,
	dispatcher *Dispatcher,
	pdfStoragePath string,
	empresa string,
) *ComprobanteWorker {
	return &ComprobanteWorker{
		comprobanteRepo: comprobanteRepo,
		ventaRepo:       ventaRepo,
		dispatcher:      dispatcher,
		pdfStoragePath:  pdfStoragePath,
		empresa:         empresa,
	}
}

// Process handles a single comprobante job:
//  1. Parse the payload and load the Venta with its items
//  2. Find or create the Comprobante row (estado="pendiente")
//  3. Render the PDF; on failure schedule a retry and return nil
//  4. Optionally enqueue the email job
func (w *ComprobanteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ComprobanteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("comprobante_worker: invalid payload: %w", err)
	}
	ventaID, err := uuid.Parse(payload.VentaID)
	if err != nil {
		return fmt.Errorf("comprobante_worker: invalid venta_id %q", payload.VentaID)
	}

	venta, err := w.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		return fmt.Errorf("comprobante_worker: venta %s: %w", payload.VentaID, err)
	}

	comp, err := w.comprobanteRepo.FindByVentaID(ctx, ventaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		comp = &model.Comprobante{
			VentaID:       ventaID,
			Numero:        venta.Numero,
			Estado:        "pendiente",
			ClienteNombre: payload.ClienteNombre,
			ClienteEmail:  payload.ClienteEmail,
		}
		if err := w.comprobanteRepo.Create(ctx, comp); err != nil {
			return fmt.Errorf("comprobante_worker: create comprobante: %w", err)
		}
	} else if err != nil {
		return err
	}
	if comp.Estado == "generado" {
		return nil
	}

	w.Generar(ctx, comp, venta)
	return nil
}

// Generar renders the PDF for comp and records the outcome on the row. Shared
// with retry_cron.
func (w *ComprobanteWorker) Generar(ctx context.Context, comp *model.Comprobante, venta *model.Venta) {
	pdfPath, err := infra.GenerateVentaPDF(venta, infra.ReceiptData{Empresa: w.empresa, Cliente: comp.ClienteNombre}, w.pdfStoragePath)
	if err != nil {
		comp.RetryCount++
		msg := err.Error()
		comp.LastError = &msg
		if comp.RetryCount >= MaxComprobanteRetries {
			comp.Estado = "error"
			comp.NextRetryAt = nil
			log.Error().Err(err).Str("venta", venta.Numero).Int("retries", comp.RetryCount).Msg("comprobante_worker: giving up")
		} else {
			next := time.Now().Add(computeRetryBackoff(comp.RetryCount))
			comp.NextRetryAt = &next
			log.Warn().Err(err).Str("venta", venta.Numero).Time("next_retry_at", next).Msg("comprobante_worker: PDF generation failed")
		}
		if uerr := w.comprobanteRepo.Update(ctx, comp); uerr != nil {
			log.Error().Err(uerr).Str("venta", venta.Numero).Msg("comprobante_worker: failed to persist retry state")
		}
		return
	}

	comp.Estado = "generado"
	comp.PDFPath = &pdfPath
	comp.NextRetryAt = nil
	comp.LastError = nil
	if err := w.comprobanteRepo.Update(ctx, comp); err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("comprobante_worker: failed to update comprobante")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("venta", venta.Numero).Msg("comprobante_worker: PDF generated")

	if comp.ClienteEmail == nil || *comp.ClienteEmail == "" || comp.EmailEnviado {
		return
	}
	emailJob := EmailJobPayload{
		ComprobanteID: comp.ID.String(),
		ToEmail:       *comp.ClienteEmail,
		Subject:       fmt.Sprintf("%s - Comprobante %s", w.empresa, venta.Numero),
		Body:          fmt.Sprintf("Adjuntamos su comprobante de compra %s.\nTotal: %s", venta.Numero, venta.Total.StringFixed(2)),
		PDFPath:       pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", *comp.ClienteEmail).Msg("comprobante_worker: failed to enqueue email")
	}
}

// computeRetryBackoff: 1m, 2m, 4m, 8m … capped at 1h.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	d := time.Minute << uint(retryCount-1)
	if d > time.Hour || d <= 0 {
		return time.Hour
	}
	return d
}
