package repository

import (
	"context"
	"time"

	"commerce-payment-providers/internal/domain/model"
)

// TransactionRepository stores payment transactions. Lookups used for
// reconciliation take the provider code so references are scoped per
// gateway variant.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByReference(ctx context.Context, tx Tx, provider, reference string) (*model.Transaction, error)
	FindByProviderReference(ctx context.Context, tx Tx, provider, providerRef string) (*model.Transaction, error)

	// SetProviderReference records the gateway-assigned reference, only
	// when none is stored yet. Never overwrites.
	SetProviderReference(ctx context.Context, tx Tx, id, providerRef string) error

	// UpdateStateIfOpen atomically moves the transaction into state
	// unless it is already done or cancelled. Returns whether the update
	// won; a false result means a concurrent notification already
	// settled the row.
	UpdateStateIfOpen(ctx context.Context, tx Tx, id string, state model.State, message string, settledAt *time.Time) (bool, error)

	// ListOpenOlderThan returns draft/pending transactions created
	// before the cutoff, oldest first, for background re-verification.
	ListOpenOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)

	// ListByState returns transactions for the operator API; state ""
	// means all states.
	ListByState(ctx context.Context, tx Tx, state model.State, offset, limit int) ([]*model.Transaction, error)
}
