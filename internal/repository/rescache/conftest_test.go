package rescache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/db"
	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

type mockExecutor struct {
	mu      sync.Mutex
	result  domain.Result
	err     error
	calls   int
	block   chan struct{}
	entered chan struct{}
}

func (m *mockExecutor) Execute(ctx context.Context, _ string, _ *params.Bag) (domain.Result, error) {
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}
	}
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.result, m.err
}

func (m *mockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	ttls  map[string]time.Duration
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
		m.ttls = make(map[string]time.Duration)
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedExecutor(t *testing.T, inner *mockExecutor) (*CachedExecutor, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, time.Minute, nil, zap.NewNop())
	return ce, ms
}

func bag(kv ...string) *params.Bag {
	p := params.New()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Add(kv[i], kv[i+1])
	}
	return p
}
