package usecase

import (
	"context"
	"sync"
	"time"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// memTaskRepo is a small in-memory TaskRepository used by unit tests.
type memTaskRepo struct {
	mu    sync.Mutex
	store map[string]*model.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{store: make(map[string]*model.Task)}
}

func (m *memTaskRepo) Save(ctx context.Context, tx repository.Tx, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTaskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaskRepo) MarkRunning(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return t.MarkRunning(time.Now()), nil
}

func (m *memTaskRepo) Complete(ctx context.Context, tx repository.Tx, id string, status model.TaskStatus, result map[string]any, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if status == model.TaskStatusSuccess {
		return t.Complete(result, time.Now()), nil
	}
	return t.Fail(errMsg, time.Now()), nil
}

func (m *memTaskRepo) UpdateRetry(ctx context.Context, tx repository.Tx, id string, retryCount int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.store[id]; ok && !t.Terminal() {
		t.Status = model.TaskStatusPending
		t.RetryCount = retryCount
		t.LastError = lastErr
	}
	return nil
}

func (m *memTaskRepo) SetProgress(ctx context.Context, tx repository.Tx, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.store[id]; ok {
		t.SetProgress(progress)
	}
	return nil
}

// memUserRepo provides in-memory balances with the same atomicity
// guarantees the Postgres repo gives (single locked read-modify-write).
type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	refunds map[string]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User), refunds: make(map[string]bool)}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) DebitCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if u.Credits < amount {
		return false, nil
	}
	u.Credits -= amount
	return true, nil
}

func (m *memUserRepo) CreditCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.Credits += amount
	}
	return nil
}

func (m *memUserRepo) RecordRefund(ctx context.Context, tx repository.Tx, taskID, userID string, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refunds[taskID] {
		return false, nil
	}
	m.refunds[taskID] = true
	return true, nil
}

func (m *memUserRepo) credits(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.Credits
	}
	return 0
}

// memKeyRepo serves a fixed provider key list.
type memKeyRepo struct {
	keys []*model.ProviderKey
}

func (m *memKeyRepo) ListEnabled(ctx context.Context, tx repository.Tx) ([]*model.ProviderKey, error) {
	return m.keys, nil
}

func (m *memKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProviderKey, error) {
	for _, k := range m.keys {
		if k.ID == id {
			return k, nil
		}
	}
	return nil, domain.ErrNotFound
}

// fakeQueue records enqueued tasks; failErr simulates a saturated queue.
type fakeQueue struct {
	mu      sync.Mutex
	tasks   []*model.Task
	failErr error
}

func (f *fakeQueue) Enqueue(ctx context.Context, t *model.Task) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeQueue) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// fakeResolver maps every model to one provider.
type fakeResolver struct{ provider string }

func (f *fakeResolver) ResolveProvider(string) string { return f.provider }

// fakeCounters is an unlimited counter store.
type fakeCounters struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: make(map[string]int64)}
}

func (f *fakeCounters) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], time.Now().Add(window), nil
}

func (f *fakeCounters) count(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key]
}

// noopTM runs the callback without a real transaction.
type noopTM struct{}

func (noopTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
