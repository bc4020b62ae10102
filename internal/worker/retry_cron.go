package worker

// retry_cron.go
// Background goroutine that periodically re-attempts PDF generation for
// comprobantes stuck in estado='pendiente' with a next_retry_at in the past.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gestionventas/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	ComprobanteRepo repository.ComprobanteRepository
	VentaRepo       repository.VentaRepository
	Worker          *ComprobanteWorker
	RDB             *redis.Client
}

// StartRetryCron ticks every 30s until ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	comprobantes, err := cfg.ComprobanteRepo.ListPendingRetries(ctx, time.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(comprobantes) == 0 {
		return
	}

	log.Info().Int("count", len(comprobantes)).Msg("retry_cron: processing pending comprobantes")

	for i := range comprobantes {
		comp := &comprobantes[i]
		venta, err := cfg.VentaRepo.FindByID(ctx, comp.VentaID)
		if err != nil {
			log.Error().Err(err).Str("venta_id", comp.VentaID.String()).Msg("retry_cron: venta not found")
			continue
		}

		cfg.Worker.Generar(ctx, comp, venta)

		if comp.Estado == "error" {
			payload, _ := json.Marshal(ComprobanteJobPayload{VentaID: comp.VentaID.String(), ClienteEmail: comp.ClienteEmail})
			reason := fmt.Sprintf("max retries (%d) exceeded", MaxComprobanteRetries)
			if comp.LastError != nil {
				reason += ": " + *comp.LastError
			}
			SendToDLQ(ctx, cfg.RDB, QueueComprobante, "comprobante", payload, reason, comp.RetryCount)
		}
	}
}
