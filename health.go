package agentos

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthStatus represents the health state of a module or of the aggregate.
type HealthStatus int

const (
	// HealthStatusUnknown indicates that the status cannot be determined,
	// typically because a check has not yet completed.
	HealthStatusUnknown HealthStatus = iota

	// HealthStatusHealthy indicates the module is operating normally.
	HealthStatusHealthy

	// HealthStatusDegraded indicates the module is operational but some
	// non-critical functionality is impaired.
	HealthStatusDegraded

	// HealthStatusUnhealthy indicates the module is not functioning properly.
	HealthStatusUnhealthy
)

// String returns the string representation of the health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// IsHealthy returns true if the status represents a healthy state.
func (s HealthStatus) IsHealthy() bool {
	return s == HealthStatusHealthy
}

// Healthy builds a healthy report with an optional message. Convenience for
// module implementations.
func Healthy(message string) HealthReport {
	return HealthReport{Status: HealthStatusHealthy, Message: message}
}

// Unhealthy builds an unhealthy report carrying the failure message.
func Unhealthy(message string) HealthReport {
	return HealthReport{Status: HealthStatusUnhealthy, Message: message}
}

// HealthReport is the result of a single module health check.
type HealthReport struct {
	// Module is filled in by the aggregator; module implementations may
	// leave it empty.
	Module string `json:"module"`

	// Status is the health status determined by the check.
	Status HealthStatus `json:"status"`

	// Message provides human-readable detail, concise but informative.
	Message string `json:"message,omitempty"`

	// CheckedAt indicates when the check was performed.
	CheckedAt time.Time `json:"checkedAt"`

	// Optional indicates the module does not affect aggregate readiness.
	// Set by the aggregator: every non-core module is optional.
	Optional bool `json:"optional"`

	// Details carries additional structured diagnostic data.
	Details map[string]any `json:"details,omitempty"`
}

// AggregatedHealth is the fan-in result over every live module.
//
// Readiness considers core modules only; Health is the worst status across
// all modules. Status hierarchy: healthy < degraded < unhealthy < unknown.
type AggregatedHealth struct {
	Health      HealthStatus   `json:"health"`
	Readiness   HealthStatus   `json:"readiness"`
	Reports     []HealthReport `json:"reports"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// HealthAggregatorConfig tunes the aggregator.
type HealthAggregatorConfig struct {
	// CheckTimeout bounds each individual module check. Default 200ms.
	CheckTimeout time.Duration

	// CacheTTL is how long an aggregate result is served without re-checking.
	// Default 250ms. Zero disables caching.
	CacheTTL time.Duration
}

// HealthAggregator dispatches module health checks concurrently and folds
// the reports into a single aggregate. Checks are read-only and independent,
// so fan-out is safe; each check runs under its own timeout so one stuck
// module cannot block the aggregate result.
type HealthAggregator struct {
	registry *Registry
	logger   Logger

	checkTimeout time.Duration
	cacheTTL     time.Duration

	mu         sync.Mutex
	lastResult *AggregatedHealth
	lastCheck  time.Time
}

// NewHealthAggregator creates an aggregator over the given registry.
func NewHealthAggregator(registry *Registry, logger Logger, config HealthAggregatorConfig) *HealthAggregator {
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 200 * time.Millisecond
	}
	if config.CacheTTL < 0 {
		config.CacheTTL = 0
	}
	return &HealthAggregator{
		registry:     registry,
		logger:       logger,
		checkTimeout: config.CheckTimeout,
		cacheTTL:     config.CacheTTL,
	}
}

// Collect checks every live module concurrently and aggregates the results.
// A fresh cached aggregate is returned as-is when within the TTL.
func (a *HealthAggregator) Collect(ctx context.Context) AggregatedHealth {
	a.mu.Lock()
	if a.cacheTTL > 0 && a.lastResult != nil && time.Since(a.lastCheck) < a.cacheTTL {
		result := *a.lastResult
		a.mu.Unlock()
		return result
	}
	a.mu.Unlock()

	instances := a.registry.All()
	reports := make([]HealthReport, 0, len(instances))
	results := make(chan HealthReport, len(instances))

	for _, inst := range instances {
		go a.checkOne(ctx, inst, results)
	}
	for range instances {
		reports = append(reports, <-results)
	}

	aggregated := aggregate(reports)
	aggregated.GeneratedAt = time.Now()

	a.mu.Lock()
	if a.cacheTTL > 0 {
		a.lastResult = &aggregated
		a.lastCheck = time.Now()
	}
	a.mu.Unlock()

	return aggregated
}

// Invalidate drops the cached aggregate so the next Collect re-checks.
func (a *HealthAggregator) Invalidate() {
	a.mu.Lock()
	a.lastResult = nil
	a.lastCheck = time.Time{}
	a.mu.Unlock()
}

// checkOne runs a single module's health check under its own timeout, with
// panic recovery: a panicking or stuck check reports unhealthy instead of
// poisoning the aggregate.
func (a *HealthAggregator) checkOne(ctx context.Context, inst *Instance, results chan<- HealthReport) {
	optional := inst.Descriptor.Type != ModuleTypeCore

	checkCtx, cancel := context.WithTimeout(ctx, a.checkTimeout)
	defer cancel()

	done := make(chan HealthReport, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- HealthReport{
					Status:  HealthStatusUnhealthy,
					Message: fmt.Sprintf("health check panicked: %v", r),
					Details: map[string]any{"panic": fmt.Sprint(r)},
				}
			}
		}()
		done <- inst.Module.HealthCheck(checkCtx)
	}()

	var report HealthReport
	select {
	case report = <-done:
	case <-checkCtx.Done():
		report = HealthReport{
			Status:  HealthStatusUnhealthy,
			Message: fmt.Sprintf("health check timed out after %s", a.checkTimeout),
		}
	}

	report.Module = inst.Descriptor.Name
	report.Optional = optional
	if report.CheckedAt.IsZero() {
		report.CheckedAt = time.Now()
	}
	results <- report
}

// aggregate applies the aggregation rules: health folds every report,
// readiness folds required (core) reports only.
func aggregate(reports []HealthReport) AggregatedHealth {
	health := HealthStatusHealthy
	readiness := HealthStatusHealthy
	for _, report := range reports {
		health = worstStatus(health, report.Status)
		if !report.Optional {
			readiness = worstStatus(readiness, report.Status)
		}
	}
	if reports == nil {
		reports = []HealthReport{}
	}
	return AggregatedHealth{Health: health, Readiness: readiness, Reports: reports}
}

// worstStatus returns the worse of two statuses.
// Hierarchy: healthy < degraded < unhealthy < unknown.
func worstStatus(a, b HealthStatus) HealthStatus {
	priority := map[HealthStatus]int{
		HealthStatusHealthy:   0,
		HealthStatusDegraded:  1,
		HealthStatusUnhealthy: 2,
		HealthStatusUnknown:   3,
	}
	if priority[a] >= priority[b] {
		return a
	}
	return b
}
