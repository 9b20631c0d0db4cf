package rescache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/domain"
)

func TestExecute_CacheMissThenHit(t *testing.T) {
	want := domain.Result{Handler: "select", ContentType: "application/json", Body: []byte(`{"response":{}}`)}
	inner := &mockExecutor{result: want}
	ce, ms := newTestCachedExecutor(t, inner)
	ctx := context.Background()

	got, err := ce.Execute(ctx, "select", bag("q", `id:"1"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("miss result = %+v", got)
	}

	key := CacheKey("select", bag("q", `id:"1"`))
	if ms.ttls[key] != time.Minute {
		t.Errorf("ttl = %v", ms.ttls[key])
	}

	got, err = ce.Execute(ctx, "select", bag("q", `id:"1"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("hit result = %+v", got)
	}
	if inner.Calls() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.Calls())
	}
}

func TestExecute_ErrorNotCached(t *testing.T) {
	innerErr := domain.NewBackendStatus(400, "bad")
	inner := &mockExecutor{err: innerErr}
	ce, ms := newTestCachedExecutor(t, inner)

	_, err := ce.Execute(context.Background(), "select", bag("q", "x"))
	if err != innerErr { //nolint:errorlint // must be returned unchanged
		t.Fatalf("expected unchanged error, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("failed responses must not be cached")
	}
}

func TestExecute_StoreGetErrorFallsThrough(t *testing.T) {
	inner := &mockExecutor{result: domain.Result{Body: []byte("ok")}}
	ce, ms := newTestCachedExecutor(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}

	got, err := ce.Execute(context.Background(), "select", bag("q", "x"))
	if err != nil {
		t.Fatalf("store failures must not surface: %v", err)
	}
	if string(got.Body) != "ok" || inner.Calls() != 1 {
		t.Errorf("got %q, calls %d", got.Body, inner.Calls())
	}
}

func TestExecute_StoreSetErrorIgnored(t *testing.T) {
	inner := &mockExecutor{result: domain.Result{Body: []byte("ok")}}
	ce, ms := newTestCachedExecutor(t, inner)
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		return errors.New("READONLY")
	}

	if _, err := ce.Execute(context.Background(), "select", bag("q", "x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_CorruptEntryRefetched(t *testing.T) {
	inner := &mockExecutor{result: domain.Result{Body: []byte("fresh")}}
	ce, ms := newTestCachedExecutor(t, inner)
	_ = ms.SetWithTTL(context.Background(), CacheKey("select", bag("q", "x")), []byte("{not json"), 0)

	got, err := ce.Execute(context.Background(), "select", bag("q", "x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got.Body) != "fresh" {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestExecute_ConcurrentMissesShareCall(t *testing.T) {
	inner := &mockExecutor{result: domain.Result{Body: []byte("ok")}, block: make(chan struct{})}
	ce, _ := newTestCachedExecutor(t, inner)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ce.Execute(context.Background(), "mlt", bag("q", "x"))
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(inner.block)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.Calls() < 1 || inner.Calls() >= n {
		t.Errorf("inner calls = %d, want fewer than %d", inner.Calls(), n)
	}
}

func TestExecute_CanceledCallerDoesNotFailOthers(t *testing.T) {
	inner := &mockExecutor{
		result:  domain.Result{Body: []byte("ok")},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	ce, ms := newTestCachedExecutor(t, inner)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ce.Execute(firstCtx, "mlt", bag("q", "x"))
		firstErr <- err
	}()
	<-inner.entered

	type outcome struct {
		res domain.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := ce.Execute(context.Background(), "mlt", bag("q", "x"))
		second <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: expected context.Canceled, got %v", err)
	}

	close(inner.block)
	got := <-second
	if got.err != nil {
		t.Fatalf("second caller failed: %v", got.err)
	}
	if string(got.res.Body) != "ok" {
		t.Errorf("Body = %q", got.res.Body)
	}
	if inner.Calls() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.Calls())
	}
	if _, err := ms.Get(context.Background(), CacheKey("mlt", bag("q", "x"))); err != nil {
		t.Error("result of the shared call should be cached")
	}
}

func TestExecute_SharedCallTimeout(t *testing.T) {
	inner := &mockExecutor{block: make(chan struct{})}
	defer close(inner.block)
	ce, _ := newTestCachedExecutor(t, inner)
	ce.timeout = 20 * time.Millisecond

	_, err := ce.Execute(context.Background(), "select", bag("q", "x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExecute_HitMissCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_result_cache_total"}, []string{"result"})
	inner := &mockExecutor{result: domain.Result{Body: []byte("ok")}}
	ce := New(inner, &mockKVStore{}, 0, counter, zap.NewNop())

	for range 3 {
		if _, err := ce.Execute(context.Background(), "select", bag("q", "x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit = %v", got)
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("select", bag("q", "x", "rows", "1"))
	if !strings.HasPrefix(a, domain.KeyPrefix+"result:") {
		t.Errorf("key %q lacks prefix", a)
	}
	if a != CacheKey("select", bag("q", "x", "rows", "1")) {
		t.Error("equal requests must share a key")
	}
	if a == CacheKey("mlt", bag("q", "x", "rows", "1")) {
		t.Error("handler must be part of the key")
	}
	if a == CacheKey("select", bag("q", "y", "rows", "1")) {
		t.Error("params must be part of the key")
	}
	if CacheKey("select", nil) != CacheKey("select", bag()) {
		t.Error("nil and empty bags must share a key")
	}
}
