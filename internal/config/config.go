package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/multiid/internal/backend/handlermap"
	"github.com/kailas-cloud/multiid/internal/domain/operation"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheValkey = "valkey"
	CacheRedis  = "redis"
)

// Config holds the multiid server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Backend BackendConfig `yaml:"backend"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds search backend settings.
type BackendConfig struct {
	URL        string                   `yaml:"url"`
	Username   string                   `yaml:"username"`
	Password   string                   `yaml:"password"`
	TimeoutSec int                      `yaml:"timeout_sec"`
	PingPath   string                   `yaml:"ping_path"`
	MaxRPS     float64                  `yaml:"max_rps"` // 0 = unlimited
	Burst      int                      `yaml:"burst"`
	Handlers   map[string]HandlerConfig `yaml:"handlers"` // keyed by operation: retrieve, similar
}

// HandlerConfig describes one backend handler and its parameter policy.
type HandlerConfig struct {
	Path       string              `yaml:"path"`
	Defaults   map[string][]string `yaml:"defaults"`
	Appends    map[string][]string `yaml:"appends"`
	Invariants map[string][]string `yaml:"invariants"`
}

// SearchConfig holds identifier lookup settings.
type SearchConfig struct {
	IDFields string `yaml:"id_fields"` // comma-separated; empty means "id"
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, valkey, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	MaxEntries       int      `yaml:"max_entries"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a result cache is configured.
func (c CacheConfig) Enabled() bool {
	return c.Driver != "" && c.Driver != CacheNone
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 35
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 30
	}
	if c.Backend.PingPath == "" {
		c.Backend.PingPath = "admin/ping"
	}
	if c.Backend.MaxRPS > 0 && c.Backend.Burst <= 0 {
		c.Backend.Burst = int(c.Backend.MaxRPS) + 1
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.MaxRPS < 0 {
		return fmt.Errorf("backend.max_rps must not be negative, got %v", c.Backend.MaxRPS)
	}
	for name, h := range c.Backend.Handlers {
		if !operation.Operation(name).IsValid() {
			return fmt.Errorf("backend.handlers.%s: unknown operation, expected one of %v", name, operation.All())
		}
		if strings.Trim(strings.TrimSpace(h.Path), "/") == "" {
			return fmt.Errorf("backend.handlers.%s.path is required", name)
		}
	}
	if len(c.Auth.APIKeys) > 0 && !hasKey(c.Auth.APIKeys) {
		return fmt.Errorf("auth.api_keys has only empty entries; remove the list to disable auth")
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
		// ok
	case CacheValkey, CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf(
			"cache.driver must be one of none, memory, valkey, redis, got %q", c.Cache.Driver,
		)
	}
	return nil
}

func hasKey(keys []string) bool {
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

// Handlers returns the backend handler table: the stock layout overridden by configured handlers.
func (c *Config) Handlers() map[operation.Operation]handlermap.Handler {
	out := handlermap.Default()
	for name, h := range c.Backend.Handlers {
		out[operation.Operation(name)] = handlermap.Handler{
			Path:       h.Path,
			Defaults:   h.Defaults,
			Appends:    h.Appends,
			Invariants: h.Invariants,
		}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
