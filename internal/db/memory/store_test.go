package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/multiid/internal/db"
)

func TestSetGet(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q", got)
	}

	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v" {
		t.Error("Get must return a copy")
	}
}

func TestGet_Missing(t *testing.T) {
	s := NewStore(10, 0)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_Expires(t *testing.T) {
	s := NewStore(10, 0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after expiry, got %v", err)
	}
	if s.cache.Len() != 0 {
		t.Errorf("expired key should be evicted on read, Len = %d", s.cache.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore(2, 0)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))
	_, _ = s.Get(ctx, "a")
	_ = s.Set(ctx, "c", []byte("3"))

	if _, err := s.Get(ctx, "b"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected b to be evicted, got %v", err)
	}
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Errorf("a should survive: %v", err)
	}
}

func TestDel(t *testing.T) {
	s := NewStore(10, 0)
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"))

	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del missing: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestClose(t *testing.T) {
	s := NewStore(10, time.Hour)
	ctx := context.Background()

	if err := s.WaitForReady(ctx, time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
	s.Close()

	if err := s.Ping(ctx); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Ping after Close: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Set after Close: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Get after Close: %v", err)
	}
}
