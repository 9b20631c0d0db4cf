package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multiid/internal/backend/handlermap"
	"github.com/kailas-cloud/multiid/internal/config"
	"github.com/kailas-cloud/multiid/internal/db"
	dbMemory "github.com/kailas-cloud/multiid/internal/db/memory"
	dbValkey "github.com/kailas-cloud/multiid/internal/db/valkey"
	logpkg "github.com/kailas-cloud/multiid/internal/logger"
	"github.com/kailas-cloud/multiid/internal/metrics"
	"github.com/kailas-cloud/multiid/internal/repository/rescache"
	chiTransport "github.com/kailas-cloud/multiid/internal/transport/chi"
	"github.com/kailas-cloud/multiid/internal/transport/solr"
	"github.com/kailas-cloud/multiid/internal/usecase/connector"
	"github.com/kailas-cloud/multiid/internal/usecase/execution"
	healthuc "github.com/kailas-cloud/multiid/internal/usecase/health"
	"github.com/kailas-cloud/multiid/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting multiid API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.URL),
		zap.String("id_fields", cfg.Search.IDFields),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	base, err := solr.NewExecutor(&solr.Config{
		BaseURL:  cfg.Backend.URL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Timeout:  time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		PingPath: cfg.Backend.PingPath,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create backend executor", zap.Error(err))
	}

	store, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to open result cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
		logger.Info("Result cache ready", zap.String("driver", cfg.Cache.Driver))
	}

	// Executor chain: Solr -> Throttled -> Instrumented -> Cached (outermost, hits skip backend metrics)
	var exec connector.Executor = execution.NewInstrumentedExecutor(
		execution.NewThrottledExecutor(base, cfg.Backend.MaxRPS, cfg.Backend.Burst), logger,
	)
	if store != nil {
		exec = rescache.New(exec, store, cfg.Cache.TTL(), metrics.ResultCacheTotal, logger)
	}

	handlers, err := handlermap.New(cfg.Handlers())
	if err != nil {
		logger.Fatal("Invalid backend handlers", zap.Error(err))
	}

	for _, op := range handlers.Operations() {
		path, _ := handlers.Handler(op)
		logger.Info("Backend handler mapped", zap.String("operation", op.String()), zap.String("handler", path))
	}

	conn := connector.New(handlers, exec, cfg.Search.IDFields)
	logger.Info("Connector ready",
		zap.String("unique_key", conn.UniqueKey()),
		zap.Stringer("id_fields", conn.IDFields()),
	)

	// Pass nil interface (not typed nil pointer) when caching is off.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(base, cachePinger)

	server := chiTransport.NewServer(conn, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openCache creates the result cache store for the configured driver. Returns nil when caching is off.
func openCache(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.CacheMemory:
		store = dbMemory.NewStore(cfg.MaxEntries, cfg.TTL())
	case config.CacheValkey, config.CacheRedis:
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:      cfg.Addrs,
			Password:   cfg.Password,
			Standalone: cfg.Driver == config.CacheRedis,
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("unique_key", ww.Header().Get(chiTransport.UniqueKeyHeader)),
			)
		})
	}
}
