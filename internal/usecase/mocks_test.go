//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memTransactionRepo is a small in-memory implementation used by unit
// tests. It enforces the same set-once and CAS semantics the Postgres
// repository does.
type memTransactionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Transaction // by ID
	saveErr error                         // used by tests to simulate save failures
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{store: make(map[string]*model.Transaction)}
}

func (m *memTransactionRepo) put(t *model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
}

func (m *memTransactionRepo) get(id string) *model.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

func (m *memTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.put(t)
	return nil
}

func (m *memTransactionRepo) FindByReference(ctx context.Context, tx repository.Tx, provider, reference string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.Provider == provider && t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) FindByProviderReference(ctx context.Context, tx repository.Tx, provider, providerRef string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *model.Transaction
	for _, t := range m.store {
		if t.Provider == provider && t.ProviderReference != "" && t.ProviderReference == providerRef {
			if found != nil {
				return nil, domain.ErrMalformedNotification
			}
			cp := *t
			found = &cp
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *memTransactionRepo) SetProviderReference(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.ProviderReference != "" {
		return nil
	}
	t.ProviderReference = providerRef
	return nil
}

func (m *memTransactionRepo) UpdateStateIfOpen(ctx context.Context, tx repository.Tx, id string, state model.State, message string, settledAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.State.Terminal() {
		return false, nil
	}
	t.State = state
	t.StateMessage = message
	t.SettledAt = settledAt
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *memTransactionRepo) ListOpenOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if (t.State == model.StateDraft || t.State == model.StatePending) && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memTransactionRepo) ListByState(ctx context.Context, tx repository.Tx, state model.State, offset, limit int) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if state == "" || t.State == state {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockGateway is a configurable GatewayClient. Tests override the
// function hooks they care about.
type mockGateway struct {
	name          string
	InitiateFunc  func(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error)
	VerifyFunc    func(ctx context.Context, reference string) (*adapter.VerifyResult, error)
	MapStatusFunc func(gatewayStatus string) model.Outcome

	verifyCalls int
}

func (g *mockGateway) Name() string { return g.name }

func (g *mockGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	if g.InitiateFunc != nil {
		return g.InitiateFunc(ctx, req)
	}
	return &adapter.InitiateResult{CheckoutURL: "https://pay.example.test/" + req.Reference}, nil
}

func (g *mockGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	g.verifyCalls++
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, reference)
	}
	return nil, domain.ErrGateway
}

func (g *mockGateway) MapStatus(gatewayStatus string) model.Outcome {
	if g.MapStatusFunc != nil {
		return g.MapStatusFunc(gatewayStatus)
	}
	switch strings.ToLower(gatewayStatus) {
	case "paid", "success":
		return model.OutcomeDone
	case "pending":
		return model.OutcomePending
	case "failed", "cancelled", "expired":
		return model.OutcomeCancelled
	default:
		return model.OutcomeUnknown
	}
}

// signedMockGateway additionally implements adapter.SignatureVerifier,
// standing in for gateways that sign their webhooks.
type signedMockGateway struct {
	mockGateway
	VerifySignatureFunc func(rawPayload []byte, suppliedSignature string) bool
}

func (g *signedMockGateway) VerifySignature(rawPayload []byte, suppliedSignature string) bool {
	if g.VerifySignatureFunc != nil {
		return g.VerifySignatureFunc(rawPayload, suppliedSignature)
	}
	return suppliedSignature == "good"
}

// memLocker is an in-process Locker for tests.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	next int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return "", domain.ErrLockNotAcquired
	}
	l.next++
	token := "tok-" + time.Now().Format("150405") + "-" + string(rune('a'+l.next%26))
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// fakeTxManager runs the body without a real storage transaction; the
// in-memory repo accepts a nil Tx handle.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
