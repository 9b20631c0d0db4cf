package multiid

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	username   string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	maxRPS     float64
	burst      int

	idFields string
	handlers map[Operation]Handler

	cacheDriver     string // "", "memory", "valkey" or "redis"
	cacheAddrs      []string
	cachePassword   string
	cacheStandalone bool
	cacheMaxEntries int
	cacheTTL        time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSolr sets the backend core or collection URL, e.g. http://localhost:8983/solr/biblio.
func WithSolr(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
	})
}

// WithBasicAuth sets backend HTTP basic auth credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithTimeout sets the backend request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the HTTP client used for backend requests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithRateLimit caps backend requests at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRPS = rps
		c.burst = burst
	})
}

// WithIDFields sets the comma-separated identifier fields, e.g. "id,isbn,issn".
// Default: "id".
func WithIDFields(fields string) Option {
	return optionFunc(func(c *clientConfig) {
		c.idFields = fields
	})
}

// WithHandler overrides the backend handler of one operation.
// Defaults: retrieve uses "select", similar uses "mlt".
func WithHandler(op Operation, h Handler) Option {
	return optionFunc(func(c *clientConfig) {
		if c.handlers == nil {
			c.handlers = make(map[Operation]Handler)
		}
		c.handlers[op] = h
	})
}

// WithValkey caches backend responses in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithRedis caches backend responses in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithStandalone disables cluster topology discovery for the Valkey/Redis cache.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheStandalone = true
	})
}

// WithMemoryCache caches up to maxEntries backend responses in process.
func WithMemoryCache(maxEntries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.cacheMaxEntries = maxEntries
	})
}

// WithCacheTTL sets how long cached responses live. Default: 5m.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithLogger sets a structured logger for SDK operations.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics with the given registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
