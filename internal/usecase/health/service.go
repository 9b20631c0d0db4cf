package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the cache failed while the backend is reachable.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backend BackendChecker
	cache   CachePinger
	timeout time.Duration
}

// New creates a Service. cache can be nil when result caching is disabled.
func New(backend BackendChecker, cache CachePinger) *Service {
	return &Service{backend: backend, cache: cache, timeout: defaultCheckTimeout}
}

// Check runs health checks against all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var backend, cache CheckResult

	var g errgroup.Group
	g.Go(func() error {
		backend = s.run(ctx, s.backend.HealthCheck)
		return nil
	})
	if s.cache != nil {
		g.Go(func() error {
			cache = s.run(ctx, s.cache.Ping)
			return nil
		})
	}
	_ = g.Wait()

	checks := map[string]CheckResult{"backend": backend}
	if s.cache != nil {
		checks["cache"] = cache
	}

	status := Healthy
	switch {
	case checks["backend"] == CheckError:
		status = Unhealthy
	case checks["cache"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
