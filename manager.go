package agentos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ScanResult summarizes one reconciliation pass over the module roots.
type ScanResult struct {
	// ScanID is a unique identifier for this pass, useful for correlating
	// log lines and events.
	ScanID string `json:"scanId"`

	// Descriptors holds every module discovered, in discovery order, with
	// the persisted enabled flag already applied.
	Descriptors []Descriptor `json:"descriptors"`

	Created []string `json:"created"`
	Updated []string `json:"updated"`

	// Failed lists modules whose catalog upsert failed. Upsert failures are
	// per-module and never abort the scan.
	Failed []ScanFailure `json:"failed,omitempty"`
}

// ScanFailure records one module whose catalog upsert failed.
type ScanFailure struct {
	Module string `json:"module"`
	Err    string `json:"error"`
}

// ValidationReport carries the non-fatal findings of a validation pass.
// Hard failures are returned separately as a *ValidationError.
type ValidationReport struct {
	Checked  []string `json:"checked"`
	Warnings []string `json:"warnings,omitempty"`
}

// Manager owns reconciliation between the manifest reader's current output
// and the catalog store. Every catalog mutation in the system goes through
// the manager's serialized API, so a concurrent scan and an operator's
// enable call cannot race into a lost update.
type Manager struct {
	reader   *ManifestReader
	catalog  CatalogStore
	registry *Registry
	broker   *EventBroker
	logger   Logger
	roots    []string

	mu sync.Mutex
}

// NewManager creates a manager scanning the given module roots.
func NewManager(reader *ManifestReader, catalog CatalogStore, registry *Registry, broker *EventBroker, logger Logger, roots ...string) *Manager {
	return &Manager{
		reader:   reader,
		catalog:  catalog,
		registry: registry,
		broker:   broker,
		logger:   logger,
		roots:    roots,
	}
}

// Scan re-reads all manifests and upserts each descriptor into the catalog:
// insert when the name is unseen, otherwise update the descriptor fields
// while preserving the stored enabled flag — a rescan must never silently
// re-enable a module an operator disabled.
func (m *Manager) Scan(ctx context.Context) (ScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := ScanResult{ScanID: uuid.NewString()}

	descriptors, err := m.reader.ReadRoots(m.roots...)
	if err != nil {
		return result, fmt.Errorf("scan failed: %w", err)
	}

	for _, desc := range descriptors {
		merged, created, err := m.upsert(ctx, desc)
		if err != nil {
			m.logger.Error("Failed to upsert catalog record", "module", desc.Name, "error", err)
			result.Failed = append(result.Failed, ScanFailure{Module: desc.Name, Err: err.Error()})
			continue
		}
		if created {
			result.Created = append(result.Created, desc.Name)
		} else {
			result.Updated = append(result.Updated, desc.Name)
		}
		result.Descriptors = append(result.Descriptors, merged)
	}

	m.logger.Info("Module scan completed", "scanId", result.ScanID,
		"discovered", len(result.Descriptors), "created", len(result.Created),
		"updated", len(result.Updated), "failed", len(result.Failed))
	m.broker.emit(ctx, EventTypeScanCompleted, result)

	return result, nil
}

// Upsert reconciles a single descriptor into the catalog, serialized with
// every other catalog mutation. Used by statically registered core modules
// that have no on-disk manifest.
func (m *Manager) Upsert(ctx context.Context, desc Descriptor) (Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged, _, err := m.upsert(ctx, desc)
	return merged, err
}

// upsert inserts a new record or updates the descriptor fields of an
// existing one. The stored enabled flag and lifecycle status always win over
// the manifest: discovery describes what a module is, not what the operator
// wants. Callers hold m.mu.
func (m *Manager) upsert(ctx context.Context, desc Descriptor) (Descriptor, bool, error) {
	existing, err := m.catalog.Get(ctx, desc.Name)
	if errors.Is(err, ErrCatalogNotFound) {
		if err := m.catalog.Create(ctx, RecordFromDescriptor(desc)); err != nil {
			return desc, false, err
		}
		return desc, true, nil
	}
	if err != nil {
		return desc, false, err
	}

	rec := RecordFromDescriptor(desc)
	rec.Enabled = existing.Enabled
	rec.Status = existing.Status
	rec.Error = existing.Error
	if err := m.catalog.Update(ctx, rec); err != nil {
		return desc, false, err
	}
	desc.Enabled = existing.Enabled
	return desc, false, nil
}

// Enable flips the persisted flag on. Takes effect on the next load cycle.
func (m *Manager) Enable(ctx context.Context, name string) error {
	return m.setEnabled(ctx, name, true)
}

// Disable flips the persisted flag off. Marks intent only: a currently
// running module keeps running until explicitly stopped or reloaded.
func (m *Manager) Disable(ctx context.Context, name string) error {
	return m.setEnabled(ctx, name, false)
}

func (m *Manager) setEnabled(ctx context.Context, name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.catalog.SetEnabled(ctx, name, enabled); err != nil {
		return fmt.Errorf("failed to set enabled=%t for module %q: %w", enabled, name, err)
	}
	m.logger.Info("Module enabled flag changed", "module", name, "enabled", enabled)
	return nil
}

// ValidateAgainstManifests compares every live module against its manifest.
// Mismatches of version, dependencies (as a sorted set), or the enabled flag
// on core modules are hard errors, aggregated into one *ValidationError
// raised only after the whole set has been checked. Everything else —
// missing manifest files, drift on non-core modules, config/metadata drift —
// is downgraded to a warning so ecosystem drift cannot block startup.
func (m *Manager) ValidateAgainstManifests(ctx context.Context) (ValidationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := ValidationReport{}
	var hard []Mismatch

	for _, inst := range m.registry.All() {
		desc := inst.Descriptor
		report.Checked = append(report.Checked, desc.Name)

		manifest, found, err := m.reader.ReadDir(desc.Path)
		if err != nil || !found {
			warning := fmt.Sprintf("%s: manifest missing or unreadable at %s", desc.Name, desc.Path)
			report.Warnings = append(report.Warnings, warning)
			m.logger.Warn("Validation warning", "module", desc.Name, "warning", warning)
			continue
		}

		mismatches := diffDescriptor(desc, manifest)

		if enabled, err := m.storedEnabled(ctx, desc.Name); err == nil && manifest.Enabled != enabled {
			mismatches = append(mismatches, Mismatch{
				Module: desc.Name, Field: "enabled",
				Want: fmt.Sprint(manifest.Enabled), Got: fmt.Sprint(enabled),
			})
		}

		for _, mm := range mismatches {
			if desc.Type == ModuleTypeCore {
				hard = append(hard, mm)
				m.logger.Error("Core module drift detected", "module", mm.Module, "field", mm.Field,
					"manifest", mm.Want, "runtime", mm.Got)
			} else {
				report.Warnings = append(report.Warnings, mm.String())
				m.logger.Warn("Module drift detected", "module", mm.Module, "field", mm.Field,
					"manifest", mm.Want, "runtime", mm.Got)
			}
		}

		// Config and metadata drift stays a warning even on core modules.
		if !mapsEqual(desc.Config, manifest.Config) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: config drift", desc.Name))
		}
		if !mapsEqual(desc.Metadata, manifest.Metadata) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: metadata drift", desc.Name))
		}
	}

	if len(hard) > 0 {
		return report, &ValidationError{Mismatches: hard}
	}
	return report, nil
}

func (m *Manager) storedEnabled(ctx context.Context, name string) (bool, error) {
	rec, err := m.catalog.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return rec.Enabled, nil
}

// diffDescriptor compares the fields whose drift matters for a running
// module. Dependency lists compare as sorted sets so ordering differences
// do not falsely flag.
func diffDescriptor(running Descriptor, manifest Descriptor) []Mismatch {
	var mismatches []Mismatch
	if running.Version != manifest.Version {
		mismatches = append(mismatches, Mismatch{
			Module: running.Name, Field: "version", Want: manifest.Version, Got: running.Version,
		})
	}
	if !sortedEqual(running.Dependencies, manifest.Dependencies) {
		mismatches = append(mismatches, Mismatch{
			Module: running.Name, Field: "dependencies",
			Want: fmt.Sprint(sortedCopy(manifest.Dependencies)),
			Got:  fmt.Sprint(sortedCopy(running.Dependencies)),
		})
	}
	return mismatches
}

func sortedCopy(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

func sortedEqual(a, b []string) bool {
	sa, sb := sortedCopy(a), sortedCopy(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}
