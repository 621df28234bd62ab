package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/infra/metrics"
)

// Locker serializes reconciliation per (provider, reference) key so
// concurrent duplicate notifications cannot race the state transition.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// ProcessNotification authenticates an inbound notification, matches
	// it to exactly one transaction, and applies its outcome exactly once.
	ProcessNotification(ctx context.Context, provider string, n adapter.Notification) (*model.Transaction, error)
	// Reverify fetches ground truth from the gateway for a known
	// reference and applies it. Best-effort path (browser return,
	// background worker, operator action): bounded retry with backoff.
	Reverify(ctx context.Context, provider, reference string) (*model.Transaction, error)
}

type ReconcileOptions struct {
	LockTTL       time.Duration
	VerifyRetries int
	VerifyBackoff time.Duration
}

type reconcileUC struct {
	txs      repository.TransactionRepository
	tm       repository.TransactionManager
	gateways map[string]adapter.GatewayClient
	locker   Locker
	opts     ReconcileOptions
	log      *zerolog.Logger
}

func NewReconcileUseCase(txs repository.TransactionRepository, tm repository.TransactionManager, gateways map[string]adapter.GatewayClient, locker Locker, opts ReconcileOptions, logger *zerolog.Logger) *reconcileUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.VerifyRetries <= 0 {
		opts.VerifyRetries = 3
	}
	if opts.VerifyBackoff <= 0 {
		opts.VerifyBackoff = 250 * time.Millisecond
	}
	return &reconcileUC{txs: txs, tm: tm, gateways: gateways, locker: locker, opts: opts, log: logger}
}

func (u *reconcileUC) ProcessNotification(ctx context.Context, provider string, n adapter.Notification) (*model.Transaction, error) {
	gc, ok := u.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for %q: %w", provider, domain.ErrConfiguration)
	}
	ref := n.Reference
	if ref == "" {
		ref = n.ProviderReference
	}
	if ref == "" {
		metrics.IncNotification(provider, "rejected")
		return nil, domain.ErrMalformedNotification
	}

	unlock, err := u.lock(ctx, provider, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := u.locate(ctx, nil, provider, n)
	if err != nil {
		metrics.IncNotification(provider, "rejected")
		u.log.Warn().Err(err).Str("provider", provider).Str("reference", ref).Msg("notification matched no transaction")
		return nil, err
	}

	// Authenticate before trusting any field. Gateways that sign their
	// webhooks get a MAC check against the found transaction's provider
	// secret; the rest get a server round trip whose payload replaces
	// the inbound body.
	if sv, ok := gc.(adapter.SignatureVerifier); ok {
		if !sv.VerifySignature(n.RawBody, n.Signature) {
			metrics.IncNotification(provider, "rejected")
			u.log.Warn().Str("provider", provider).Str("reference", t.Reference).Msg("notification signature rejected")
			return nil, domain.ErrSignatureMismatch
		}
	} else {
		vr, err := gc.Verify(ctx, verifyRef(t))
		if err != nil {
			metrics.IncNotification(provider, "error")
			return nil, err
		}
		applyVerifyResult(&n, vr)
	}

	return u.settleLocked(ctx, gc, t.ID, n)
}

func (u *reconcileUC) Reverify(ctx context.Context, provider, reference string) (*model.Transaction, error) {
	gc, ok := u.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for %q: %w", provider, domain.ErrConfiguration)
	}
	if reference == "" {
		return nil, domain.ErrMalformedNotification
	}

	unlock, err := u.lock(ctx, provider, reference)
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := u.locate(ctx, nil, provider, adapter.Notification{Reference: reference, ProviderReference: reference})
	if err != nil {
		u.log.Warn().Err(err).Str("provider", provider).Str("reference", reference).Msg("reverify matched no transaction")
		return nil, err
	}
	if t.State.Terminal() {
		return t, nil
	}

	vr, err := u.verifyWithRetry(ctx, gc, verifyRef(t))
	if err != nil {
		metrics.IncNotification(provider, "error")
		return nil, err
	}
	var n adapter.Notification
	n.Reference = t.Reference
	applyVerifyResult(&n, vr)

	return u.settleLocked(ctx, gc, t.ID, n)
}

func (u *reconcileUC) lock(ctx context.Context, provider, ref string) (func(), error) {
	key := "reconcile:" + provider + ":" + ref
	token, err := u.locker.TryLock(ctx, key, u.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := u.locker.Unlock(ctx, key, token); err != nil {
			u.log.Error().Err(err).Str("key", key).Msg("unlock failed")
		}
	}, nil
}

// locate finds exactly one transaction for the notification, searching
// by merchant reference first, then by the gateway's own reference.
func (u *reconcileUC) locate(ctx context.Context, tx repository.Tx, provider string, n adapter.Notification) (*model.Transaction, error) {
	if n.Reference != "" {
		t, err := u.txs.FindByReference(ctx, tx, provider, n.Reference)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if n.ProviderReference != "" {
		t, err := u.txs.FindByProviderReference(ctx, tx, provider, n.ProviderReference)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrUnknownTransaction
}

// settleLocked re-reads the transaction under a row lock and applies
// the authenticated notification exactly once.
func (u *reconcileUC) settleLocked(ctx context.Context, gc adapter.GatewayClient, id string, n adapter.Notification) (*model.Transaction, error) {
	provider := gc.Name()
	var out *model.Transaction
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.locate(ctx, tx, provider, n)
		if err != nil {
			return err
		}
		out = t

		if t.State.Terminal() {
			// At-least-once delivery: duplicates of a settled outcome are
			// acknowledged without re-mutating state.
			metrics.IncNotification(provider, "noop")
			u.log.Info().Str("reference", t.Reference).Str("state", string(t.State)).Msg("transaction already settled; notification ignored")
			return nil
		}

		if t.ProviderReference == "" && n.ProviderReference != "" {
			if err := u.txs.SetProviderReference(ctx, tx, t.ID, n.ProviderReference); err != nil {
				return err
			}
			t.ProviderReference = n.ProviderReference
		}

		state, msg, settledAt := u.resolve(t, gc.MapStatus(n.Status), n)

		won, err := u.txs.UpdateStateIfOpen(ctx, tx, t.ID, state, msg, settledAt)
		if err != nil {
			return err
		}
		if !won {
			metrics.IncNotification(provider, "noop")
			u.log.Info().Str("reference", t.Reference).Msg("concurrent notification already settled transaction")
			return nil
		}

		t.State = state
		t.StateMessage = msg
		t.SettledAt = settledAt
		metrics.IncSettlement(provider, string(state))
		metrics.IncNotification(provider, "settled")

		evt := u.log.Info()
		if state == model.StateError {
			evt = u.log.Warn()
		}
		evt.Str("reference", t.Reference).Str("state", string(state)).Str("detail", msg).Msg("transaction state applied")
		return nil
	})
	if err != nil {
		metrics.IncNotification(provider, "error")
		return nil, err
	}
	return out, nil
}

// resolve maps a canonical outcome to the state transition, enforcing
// the amount and currency guards for done. A gateway-reported success
// with a short payment or substituted currency settles into error,
// never done.
func (u *reconcileUC) resolve(t *model.Transaction, outcome model.Outcome, n adapter.Notification) (model.State, string, *time.Time) {
	switch outcome {
	case model.OutcomeDone:
		if !n.HasAmount || !t.AmountMatches(n.AmountPaid) {
			return model.StateError, fmt.Sprintf("amount mismatch: expected %.2f, received %.2f", t.Amount, n.AmountPaid), nil
		}
		if !t.CurrencyMatches(n.Currency) {
			return model.StateError, fmt.Sprintf("currency mismatch: expected %s, received %s", t.Currency, n.Currency), nil
		}
		now := time.Now()
		return model.StateDone, "", &now
	case model.OutcomePending:
		return model.StatePending, "", nil
	case model.OutcomeCancelled:
		msg := "payment " + n.Status
		if n.Reason != "" {
			msg += ": " + n.Reason
		}
		return model.StateCancelled, msg, nil
	default:
		return model.StateError, "unknown payment status: " + n.Status, nil
	}
}

func (u *reconcileUC) verifyWithRetry(ctx context.Context, gc adapter.GatewayClient, ref string) (*adapter.VerifyResult, error) {
	var lastErr error
	for attempt := 1; attempt <= u.opts.VerifyRetries; attempt++ {
		vr, err := gc.Verify(ctx, ref)
		if err == nil {
			return vr, nil
		}
		lastErr = err
		// Credential problems will not heal on retry.
		if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrConfiguration) {
			return nil, err
		}
		if attempt == u.opts.VerifyRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * u.opts.VerifyBackoff):
		}
	}
	return nil, lastErr
}

// verifyRef picks the identifier the gateway's verify endpoint expects:
// its own reference when assigned, the merchant reference otherwise.
func verifyRef(t *model.Transaction) string {
	if t.ProviderReference != "" {
		return t.ProviderReference
	}
	return t.Reference
}

func applyVerifyResult(n *adapter.Notification, vr *adapter.VerifyResult) {
	n.Status = vr.Status
	n.AmountPaid = vr.AmountPaid
	n.HasAmount = vr.HasAmount
	n.Currency = vr.Currency
	n.Reason = vr.Reason
}
