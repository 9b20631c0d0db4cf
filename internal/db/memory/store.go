// Package memory is an in-process db.Store for single-instance deployments and tests.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/multiid/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const defaultMaxEntries = 10000

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no per-key expiry
}

// Store is a bounded LRU key-value store with optional per-key TTL.
type Store struct {
	cache  *lru.LRU[string, entry]
	closed atomic.Bool
	now    func() time.Time
}

// NewStore creates a store holding at most maxEntries keys.
// defaultTTL bounds every entry's lifetime; zero disables the store-wide expiry.
func NewStore(maxEntries int, defaultTTL time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Store{
		cache: lru.NewLRU[string, entry](maxEntries, nil, defaultTTL),
		now:   time.Now,
	}
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns immediately; an open in-process store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close purges the store and rejects further use.
func (s *Store) Close() {
	s.closed.Store(true)
	s.cache.Purge()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrClosed}
	}
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.cache.Remove(key)
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value that expires after ttl. A non-positive ttl stores without one.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpSet, Err: db.ErrClosed}
	}
	e := entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.cache.Add(key, e)
	return nil
}

// Del deletes a key.
func (s *Store) Del(_ context.Context, key string) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpDel, Err: db.ErrClosed}
	}
	s.cache.Remove(key)
	return nil
}
