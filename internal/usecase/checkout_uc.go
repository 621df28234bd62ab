package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// Initiate creates a draft transaction and opens a hosted checkout
	// with the gateway. Gateway failures propagate to the caller so the
	// customer sees a failed-to-start message; the transaction stays draft.
	Initiate(ctx context.Context, provider string, amount float64, currency, customerName, customerEmail string, meta map[string]any) (*model.Transaction, string, error)
}

type checkoutUC struct {
	txs       repository.TransactionRepository
	gateways  map[string]adapter.GatewayClient
	returnURL func(provider string) string
	log       *zerolog.Logger
}

func NewCheckoutUseCase(txs repository.TransactionRepository, gateways map[string]adapter.GatewayClient, returnURL func(provider string) string, logger *zerolog.Logger) *checkoutUC {
	return &checkoutUC{txs: txs, gateways: gateways, returnURL: returnURL, log: logger}
}

func (u *checkoutUC) Initiate(ctx context.Context, provider string, amount float64, currency, customerName, customerEmail string, meta map[string]any) (*model.Transaction, string, error) {
	gc, ok := u.gateways[provider]
	if !ok {
		return nil, "", fmt.Errorf("no gateway registered for %q: %w", provider, domain.ErrConfiguration)
	}
	if amount <= 0 || currency == "" {
		return nil, "", domain.ErrInvalidArgument
	}

	now := time.Now()
	t := &model.Transaction{
		ID:            uuid.NewString(),
		Reference:     newReference(),
		Provider:      provider,
		Amount:        amount,
		Currency:      currency,
		State:         model.StateDraft,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.txs.Save(ctx, nil, t); err != nil {
		return nil, "", err
	}

	res, err := gc.Initiate(ctx, adapter.InitiateRequest{
		Reference:     t.Reference,
		Amount:        amount,
		Currency:      currency,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		ReturnURL:     u.returnURL(provider),
		Metadata:      meta,
	})
	if err != nil {
		metrics.IncCheckout(provider, "error")
		u.log.Error().Err(err).Str("reference", t.Reference).Msg("checkout initiation failed")
		return nil, "", err
	}

	if res.ProviderReference != "" {
		if err := u.txs.SetProviderReference(ctx, nil, t.ID, res.ProviderReference); err != nil {
			return nil, "", err
		}
		t.ProviderReference = res.ProviderReference
	}

	metrics.IncCheckout(provider, "ok")
	u.log.Info().Str("reference", t.Reference).Str("provider", provider).Float64("amount", amount).Msg("checkout initiated")
	return t, res.CheckoutURL, nil
}

// newReference mints a merchant reference. ULIDs sort by creation time,
// which keeps gateway dashboards and DB scans readable.
func newReference() string {
	return "TX-" + ulid.Make().String()
}
