package agentos

import (
	"context"
	"fmt"
)

// Orchestrator is the single entry point consumed by CLI and HTTP callers.
// It composes the registry (live state), the catalog store (persisted state),
// the manager (reconciliation), and the health aggregator, so front-ends
// never touch those components directly.
type Orchestrator struct {
	registry *Registry
	catalog  CatalogStore
	manager  *Manager
	health   *HealthAggregator
	logger   Logger
}

// NewOrchestrator wires a facade over the given components.
func NewOrchestrator(registry *Registry, catalog CatalogStore, manager *Manager, health *HealthAggregator, logger Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		catalog:  catalog,
		manager:  manager,
		health:   health,
		logger:   logger,
	}
}

// GetModule returns the live instance for name. The second return value is
// false when the module is not running — ERROR and disabled modules are
// absent from the registry even when they exist as catalog rows.
func (o *Orchestrator) GetModule(name string) (*Instance, bool) {
	return o.registry.Get(name)
}

// GetAllModules returns every live instance in registration order.
func (o *Orchestrator) GetAllModules() []*Instance {
	return o.registry.All()
}

// GetCatalogEntry returns the persisted record for name. Works for modules
// in any state, including ERROR and disabled.
func (o *Orchestrator) GetCatalogEntry(ctx context.Context, name string) (Record, error) {
	rec, err := o.catalog.Get(ctx, name)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read catalog entry for %q: %w", name, err)
	}
	return rec, nil
}

// ListCatalog returns every persisted record, ordered by name.
func (o *Orchestrator) ListCatalog(ctx context.Context) ([]Record, error) {
	records, err := o.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return records, nil
}

// EnableModule flips the persisted enabled flag on. Takes effect on the next
// load cycle.
func (o *Orchestrator) EnableModule(ctx context.Context, name string) error {
	return o.manager.Enable(ctx, name)
}

// DisableModule flips the persisted enabled flag off. Marks intent only; a
// running instance is not stopped.
func (o *Orchestrator) DisableModule(ctx context.Context, name string) error {
	return o.manager.Disable(ctx, name)
}

// ScanForModules triggers a full manifest rescan and catalog reconciliation.
func (o *Orchestrator) ScanForModules(ctx context.Context) (ScanResult, error) {
	return o.manager.Scan(ctx)
}

// ValidateCoreModules checks every live module against its manifest,
// failing only on core-module drift.
func (o *Orchestrator) ValidateCoreModules(ctx context.Context) (ValidationReport, error) {
	return o.manager.ValidateAgainstManifests(ctx)
}

// HealthCheckAll fans out health checks over every live module and returns
// the aggregate.
func (o *Orchestrator) HealthCheckAll(ctx context.Context) AggregatedHealth {
	return o.health.Collect(ctx)
}
