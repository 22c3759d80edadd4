package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/empdex/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Unhealthy indicates the search engine is unreachable.
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

// SearchEngineCheck is the key of the search engine entry in Report.Checks.
const SearchEngineCheck = "search_engine"

const defaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine  Pinger
	timeout time.Duration
}

// New creates a Service.
func New(engine Pinger) *Service {
	return &Service{engine: engine, timeout: defaultTimeout}
}

// WithTimeout bounds each ping.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check pings the search engine.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := map[string]CheckResult{SearchEngineCheck: CheckOK}
	status := Healthy
	if err := s.engine.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Search engine ping failed", zap.Error(err))
		checks[SearchEngineCheck] = CheckError
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
