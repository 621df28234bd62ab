package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txColumns = `id, reference, provider_reference, provider, amount, currency, state, state_message, customer_name, customer_email, created_at, updated_at, settled_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := row.Scan(&t.ID, &t.Reference, &t.ProviderReference, &t.Provider, &t.Amount, &t.Currency, &t.State, &t.StateMessage, &t.CustomerName, &t.CustomerEmail, &t.CreatedAt, &t.UpdatedAt, &t.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (
  id, reference, provider_reference, provider, amount, currency, state, state_message, customer_name, customer_email, created_at, updated_at, settled_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  provider_reference=$3, state=$7, state_message=$8, updated_at=$12, settled_at=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Reference, t.ProviderReference, t.Provider, t.Amount, t.Currency, t.State, t.StateMessage, t.CustomerName, t.CustomerEmail, t.CreatedAt, t.UpdatedAt, t.SettledAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, tx repository.Tx, provider, reference string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE reference=$1 AND provider=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference, provider)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

// FindByProviderReference resolves a gateway-assigned reference to at
// most one transaction. Gateway references are never reused, so a
// second match means the data is inconsistent; the lookup refuses to
// pick one.
func (r *transactionRepo) FindByProviderReference(ctx context.Context, tx repository.Tx, provider, providerRef string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE provider_reference=$1 AND provider=$2 LIMIT 2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	rows, err := queryRows(ctx, r.pool, tx, q, providerRef, provider)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	matches, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, domain.ErrMalformedNotification
	}
}

// SetProviderReference writes the gateway reference only when the stored
// value is still empty. The reference is immutable once set.
func (r *transactionRepo) SetProviderReference(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	const q = `UPDATE transactions SET provider_reference=$2, updated_at=NOW() WHERE id=$1 AND (provider_reference IS NULL OR provider_reference='');`
	_, err := execSQL(ctx, r.pool, tx, q, id, providerRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// UpdateStateIfOpen atomically updates state unless the row is already
// terminal. Done/cancelled are never re-mutated; error rows stay
// recoverable so a later consistent verification (manual or retried
// webhook) can resolve them.
func (r *transactionRepo) UpdateStateIfOpen(ctx context.Context, tx repository.Tx, id string, state model.State, message string, settledAt *time.Time) (bool, error) {
	const q = `
    UPDATE transactions
       SET state = $2,
           state_message = $3,
           settled_at = COALESCE($4, settled_at),
           updated_at = NOW()
     WHERE id = $1
       AND state NOT IN ('done','cancelled')`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(state), message, settledAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) ListOpenOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	// Error rows are deliberately excluded: they wait for an operator.
	const q = `SELECT ` + txColumns + ` FROM transactions WHERE state IN ('draft','pending') AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *transactionRepo) ListByState(ctx context.Context, tx repository.Tx, state model.State, offset, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + txColumns + ` FROM transactions`
	args := []interface{}{}
	if state != "" {
		q += ` WHERE state=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
		args = append(args, string(state), offset, limit)
	} else {
		q += ` ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
		args = append(args, offset, limit)
	}
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
