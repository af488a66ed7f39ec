package worker

// fiscal_worker.go
// Processes NFC-e issuance jobs from QueueFiscal. The heavy lifting (number
// allocation, XML, SEFAZ submission with retry + circuit breaker) lives in
// the fiscal service; the worker only parses the job and delegates.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
)

// FiscalIssuer is the slice of the fiscal service the workers need.
type FiscalIssuer interface {
	IssueNFCe(ctx context.Context, saleID uuid.UUID) (*dto.FiscalDocumentResponse, error)
	ProcessDueRetries(ctx context.Context) (int, error)
}

// FiscalWorker processes issuance jobs from QueueFiscal.
type FiscalWorker struct {
	issuer FiscalIssuer
}

func NewFiscalWorker(issuer FiscalIssuer) *FiscalWorker {
	return &FiscalWorker{issuer: issuer}
}

// Process handles a single issuance job. Transport-level SEFAZ failures are
// absorbed by the service (document stays PENDENTE with a scheduled retry),
// so an error here means the job itself is bad and belongs in the DLQ.
func (w *FiscalWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload FiscalJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("fiscal_worker: invalid payload: %w", err)
	}

	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		return fmt.Errorf("fiscal_worker: invalid sale_id %q", payload.SaleID)
	}

	doc, err := w.issuer.IssueNFCe(ctx, saleID)
	if err != nil {
		log.Error().Err(err).Str("sale_id", payload.SaleID).Msg("fiscal_worker: issuance failed")
		return err
	}

	log.Info().Str("sale_id", payload.SaleID).Int64("number", doc.Number).
		Str("status", doc.Status).Msg("fiscal_worker: document processed")
	return nil
}
