package sched_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/infra/sched"
)

type stubRepo struct {
	open []*model.Transaction
}

func (s *stubRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error { return nil }
func (s *stubRepo) FindByReference(ctx context.Context, tx repository.Tx, provider, reference string) (*model.Transaction, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) FindByProviderReference(ctx context.Context, tx repository.Tx, provider, providerRef string) (*model.Transaction, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) SetProviderReference(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	return nil
}
func (s *stubRepo) UpdateStateIfOpen(ctx context.Context, tx repository.Tx, id string, state model.State, message string, settledAt *time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) ListOpenOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	return s.open, nil
}
func (s *stubRepo) ListByState(ctx context.Context, tx repository.Tx, state model.State, offset, limit int) ([]*model.Transaction, error) {
	return nil, nil
}

type recordingReconciler struct {
	mu         sync.Mutex
	reverified []string
	done       chan struct{}
	once       sync.Once
}

func (r *recordingReconciler) ProcessNotification(ctx context.Context, provider string, n adapter.Notification) (*model.Transaction, error) {
	return nil, domain.ErrOperationFailed
}

func (r *recordingReconciler) Reverify(ctx context.Context, provider, reference string) (*model.Transaction, error) {
	r.mu.Lock()
	r.reverified = append(r.reverified, provider+":"+reference)
	n := len(r.reverified)
	r.mu.Unlock()
	if n >= 2 {
		r.once.Do(func() { close(r.done) })
	}
	return &model.Transaction{Reference: reference, Provider: provider, State: model.StateDone}, nil
}

func TestVerifyWorker(t *testing.T) {
	logger := zerolog.New(io.Discard)

	repo := &stubRepo{open: []*model.Transaction{
		{Reference: "TX-1", Provider: "monnify", State: model.StatePending, CreatedAt: time.Now().Add(-time.Hour)},
		{Reference: "TX-2", Provider: "paystack", State: model.StateDraft, ProviderReference: "PSK|2", CreatedAt: time.Now().Add(-time.Hour)},
		// Draft that never reached the gateway: nothing to verify yet.
		{Reference: "TX-3", Provider: "paystack", State: model.StateDraft, CreatedAt: time.Now().Add(-time.Hour)},
	}}
	reconciler := &recordingReconciler{done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sched.NewVerifyWorker(reconciler, repo, 10*time.Millisecond, time.Minute, &logger)
	go w.Start(ctx)

	select {
	case <-reconciler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not re-verify the stale transactions in time")
	}
	cancel()

	reconciler.mu.Lock()
	defer reconciler.mu.Unlock()
	seen := map[string]bool{}
	for _, v := range reconciler.reverified {
		seen[v] = true
	}
	if !seen["monnify:TX-1"] || !seen["paystack:TX-2"] {
		t.Errorf("re-verified = %v", reconciler.reverified)
	}
	if seen["paystack:TX-3"] {
		t.Error("draft without a provider reference was sent to the gateway")
	}
}
