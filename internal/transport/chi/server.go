// Package chi exposes the identifier connector over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
	logpkg "github.com/kailas-cloud/multiid/internal/logger"
	"github.com/kailas-cloud/multiid/internal/usecase/connector"
	healthuc "github.com/kailas-cloud/multiid/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// recordConnector is the consumer interface for the identifier connector (ISP).
type recordConnector interface {
	Retrieve(ctx context.Context, id string, p *params.Bag) (domain.Result, error)
	Similar(ctx context.Context, id string, p *params.Bag) (domain.Result, error)
	UniqueKey() string
}

// Server serves record lookups, health and metrics.
type Server struct {
	connector     recordConnector
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(c recordConnector, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		connector: c,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		backendStatusHandler,
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, ErrorCodeBackendUnavailable),
		sentinelHandler(domain.ErrUnknownOperation, http.StatusInternalServerError, ErrorCodeInternalError),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/records/{id}", s.GetRecord)
	r.Get("/records/{id}/similar", s.GetSimilarRecords)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bindID(w, r)
	if !ok {
		return
	}

	ctx := logpkg.With(r.Context(), zap.String("record_id", id))
	res, err := s.connector.Retrieve(ctx, id, requestParams(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeResult(w, res)
}

// GetSimilarRecords handles GET /records/{id}/similar.
func (s *Server) GetSimilarRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bindID(w, r)
	if !ok {
		return
	}

	var rows *int
	if err := runtime.BindQueryParameter("form", true, false, "rows", r.URL.Query(), &rows); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter rows: "+err.Error())
		return
	}
	if rows != nil && *rows < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "rows must not be negative")
		return
	}

	p := requestParams(r)
	if rows != nil {
		p.Set("rows", strconv.Itoa(*rows))
	}

	ctx := logpkg.With(r.Context(), zap.String("record_id", id))
	res, err := s.connector.Similar(ctx, id, p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeResult(w, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) bindID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return "", false
	}
	return id, true
}

// requestParams copies the query string into a fresh bag. q belongs to the connector.
func requestParams(r *http.Request) *params.Bag {
	p := params.FromValues(r.URL.Query())
	p.Remove(connector.QueryParam)
	return p
}

func (s *Server) writeResult(w http.ResponseWriter, res domain.Result) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(UniqueKeyHeader, s.connector.UniqueKey())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// backendStatusHandler maps a backend 4xx to 400 with the backend's message. Other statuses fall through.
func backendStatusHandler(w http.ResponseWriter, err error) bool {
	var bse *domain.BackendStatusError
	if !errors.As(err, &bse) || bse.Status < 400 || bse.Status >= 500 {
		return false
	}
	msg := bse.Body
	if msg == "" {
		msg = domain.ErrBackendStatus.Error()
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBackendRejected, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
