package multiid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/multiid/internal/backend/handlermap"
	"github.com/kailas-cloud/multiid/internal/db"
	dbMemory "github.com/kailas-cloud/multiid/internal/db/memory"
	dbValkey "github.com/kailas-cloud/multiid/internal/db/valkey"
	"github.com/kailas-cloud/multiid/internal/domain/idfield"
	"github.com/kailas-cloud/multiid/internal/repository/rescache"
	"github.com/kailas-cloud/multiid/internal/transport/solr"
	"github.com/kailas-cloud/multiid/internal/usecase/connector"
	"github.com/kailas-cloud/multiid/internal/usecase/execution"
	healthuc "github.com/kailas-cloud/multiid/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 5 * time.Minute
)

// connectorUseCase is the internal interface for record lookups.
type connectorUseCase interface {
	Retrieve(ctx context.Context, id string, p *Params) (Result, error)
	Similar(ctx context.Context, id string, p *Params) (Result, error)
	UniqueKey() string
	IDFields() idfield.List
}

// Client is the multiid SDK entry point.
type Client struct {
	store     db.Store // nil without a cache
	conn      connectorUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. When a Valkey or Redis cache is configured, the provided
// context is used for its readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{cacheTTL: defaultCacheTTL}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("multiid: backend url required (use WithSolr)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("multiid: cache not ready: %w", err)
		}
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil && store != nil {
		store.Close()
	}
	return c, err
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.cacheDriver {
	case "":
		return nil, nil
	case "memory":
		return dbMemory.NewStore(cfg.cacheMaxEntries, cfg.cacheTTL), nil
	case "valkey", "redis":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:      cfg.cacheAddrs,
			Password:   cfg.cachePassword,
			Standalone: cfg.cacheStandalone,
		})
		if err != nil {
			return nil, fmt.Errorf("multiid: create %s store: %w", cfg.cacheDriver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("multiid: unknown cache driver %q", cfg.cacheDriver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	base, err := solr.NewExecutor(&solr.Config{
		BaseURL:    cfg.baseURL,
		Username:   cfg.username,
		Password:   cfg.password,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
		Logger:     obs.zapLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("multiid: %w", err)
	}

	exec := execution.NewThrottledExecutor(base, cfg.maxRPS, cfg.burst)
	if store != nil {
		exec = rescache.New(exec, store, cfg.cacheTTL, obs.cacheCounter(), obs.zapLogger())
	}

	table := handlermap.Default()
	for op, h := range cfg.handlers {
		table[op] = h
	}
	handlers, err := handlermap.New(table)
	if err != nil {
		return nil, fmt.Errorf("multiid: %w", err)
	}

	// Pass nil interface (not typed nil pointer) when caching is off.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}

	return &Client{
		store:     store,
		conn:      connector.New(handlers, exec, cfg.idFields),
		healthSvc: healthuc.New(base, cachePinger),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Retrieve fetches the record whose identifier fields match id.
// p may be nil; when given it is modified in place and must not be shared
// across concurrent calls. Errors are returned unchanged.
func (c *Client) Retrieve(ctx context.Context, id string, p *Params) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", id, start, err) }()

	return c.conn.Retrieve(ctx, id, p)
}

// Similar fetches records similar to the one whose identifier fields match id.
func (c *Client) Similar(ctx context.Context, id string, p *Params) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("similar", id, start, err) }()

	return c.conn.Similar(ctx, id, p)
}

// UniqueKey returns the field that uniquely identifies a returned document.
func (c *Client) UniqueKey() string {
	return c.conn.UniqueKey()
}

// IDFields returns the identifier fields queried for every lookup.
func (c *Client) IDFields() []string {
	return c.conn.IDFields()
}
