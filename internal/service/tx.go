package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gestionventas/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// txRetrier re-runs a whole transaction when it loses an optimistic
// concurrency race. Every attempt starts from scratch, so fn must rebuild
// all of its state from what it reads inside tx.
type txRetrier struct {
	maxTries uint
	initial  time.Duration
	max      time.Duration
}

func newTxRetrier(maxTries int) txRetrier {
	if maxTries < 1 {
		maxTries = 1
	}
	return txRetrier{maxTries: uint(maxTries), initial: 20 * time.Millisecond, max: 500 * time.Millisecond}
}

// run returns ErrConflictoConcurrencia (wrapping the last conflict) once the
// attempts are exhausted. Any other error stops the loop immediately.
func (r txRetrier) run(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.max

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := runTx(ctx, db, fn)
		if err == nil || repository.IsRetryable(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("tx: conflict, retrying")
			txReintentos.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
			trace.SpanFromContext(ctx).AddEvent("tx.retry", trace.WithAttributes(
				attribute.String("op", op),
				attribute.Int("attempt", attempt),
			))
		}),
	)
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if repository.IsRetryable(err) {
		log.Warn().Err(err).Str("op", op).Int("attempts", attempt).Msg("tx: retries exhausted")
		return fmt.Errorf("%w: %v", ErrConflictoConcurrencia, err)
	}
	return err
}
