package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/usecase"
)

// VerifyWorker periodically scans for stale open transactions and re-verifies
// them against the provider. This covers the cases where a webhook never
// arrived or the process crashed between the redirect and the settlement.
type VerifyWorker struct {
	uc         usecase.ReconcileUseCase
	txs        repository.TransactionRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old an open transaction must be to retry
	log        *zerolog.Logger
}

func NewVerifyWorker(uc usecase.ReconcileUseCase, txs repository.TransactionRepository, interval, staleAfter time.Duration, log *zerolog.Logger) *VerifyWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := log.With().Str("worker", "verify").Logger()
	return &VerifyWorker{uc: uc, txs: txs, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *VerifyWorker) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *VerifyWorker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	open, err := w.txs.ListOpenOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list open transactions")
		return
	}
	for _, t := range open {
		w.verifyOne(ctx, t)
	}
}

func (w *VerifyWorker) verifyOne(ctx context.Context, t *model.Transaction) {
	// Drafts with no provider handle yet cannot be verified; they will
	// either receive a webhook or stay stuck until an operator looks.
	if t.State == model.StateDraft && t.ProviderReference == "" {
		return
	}
	got, err := w.uc.Reverify(ctx, t.Provider, t.Reference)
	if err != nil {
		w.log.Warn().Err(err).
			Str("provider", t.Provider).
			Str("reference", t.Reference).
			Msg("re-verify failed")
		return
	}
	if got.State != t.State {
		w.log.Info().
			Str("provider", t.Provider).
			Str("reference", t.Reference).
			Str("state", string(got.State)).
			Msg("re-verified transaction")
	}
}
