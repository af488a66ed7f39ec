package worker

// retry_cron.go
// Background goroutine that periodically re-attempts SEFAZ submission for
// fiscal documents stuck with a next_retry_at in the past. The fiscal
// service owns the per-document backoff bookkeeping; the cron only ticks.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
)

const retryTickInterval = 30 * time.Second

// StartRetryCron launches a goroutine that ticks every 30s and resubmits
// due documents through the fiscal service. It respects the context for
// graceful shutdown.
func StartRetryCron(ctx context.Context, issuer FiscalIssuer, cb *infra.CircuitBreaker) {
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
				// If CB is open, skip entirely — don't hammer a downed gateway
				if cb.State() == infra.CBOpen {
					log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
					continue
				}
				n, err := issuer.ProcessDueRetries(ctx)
				if err != nil {
					log.Error().Err(err).Msg("retry_cron: failed to process retries")
					continue
				}
				if n > 0 {
					log.Info().Int("count", n).Msg("retry_cron: processed pending documents")
				}
			}
		}
	}()
}
