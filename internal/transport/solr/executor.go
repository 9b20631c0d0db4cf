package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultPingPath  = "admin/ping"
	maxResponseBytes = 32 << 20
	maxErrorBody     = 512
)

// Config holds the Solr core connection settings.
type Config struct {
	BaseURL    string // e.g. http://localhost:8983/solr/biblio
	Username   string
	Password   string
	Timeout    time.Duration
	PingPath   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Executor sends prepared parameter bags to Solr request handlers over HTTP.
type Executor struct {
	baseURL  string
	username string
	password string
	pingPath string
	client   *http.Client
	logger   *zap.Logger
}

// NewExecutor creates a Solr executor.
func NewExecutor(cfg *Config) (*Executor, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("solr base url is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	pingPath := strings.Trim(cfg.PingPath, "/")
	if pingPath == "" {
		pingPath = defaultPingPath
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		pingPath: pingPath,
		client:   client,
		logger:   logger,
	}, nil
}

// Execute POSTs p form-encoded to <base>/<handler> and returns the raw body.
// wt=json is added when the bag does not choose a response writer; p itself is not modified.
func (e *Executor) Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error) {
	body := p.Clone()
	if !body.Has("wt") {
		body.Set("wt", "json")
	}

	endpoint := e.baseURL + "/" + strings.Trim(handler, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return domain.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Result{}, fmt.Errorf("solr %s: %w: %w", handler, domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Result{}, fmt.Errorf("solr %s: read body: %w: %w", handler, domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(data)
		e.logger.Warn("Solr request failed",
			zap.String("handler", handler),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return domain.Result{}, fmt.Errorf("solr %s: %w", handler, domain.NewBackendStatus(resp.StatusCode, msg))
	}

	return domain.Result{
		Handler:     handler,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// HealthCheck calls the core's ping handler.
func (e *Executor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/"+e.pingPath+"?wt=json", http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("solr ping: %w: %w", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("solr ping: %w", domain.NewBackendStatus(resp.StatusCode, ""))
	}
	return nil
}

func (e *Executor) authorize(req *http.Request) {
	if e.username != "" {
		req.SetBasicAuth(e.username, e.password)
	}
}

// errorMessage extracts error.msg from a Solr JSON error body, falling back to the truncated raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Msg string `json:"msg"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Msg != "" {
		return parsed.Error.Msg
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
