package agentos

import (
	"errors"
	"fmt"
	"strings"
)

// Runtime errors
var (
	// Manifest errors
	ErrManifestNameMissing = errors.New("manifest is missing required field 'name'")
	ErrManifestInvalid     = errors.New("manifest could not be parsed")

	// Dependency resolution errors
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrMissingDependency  = errors.New("module depends on non-existent module")

	// Lifecycle errors
	ErrModuleInit      = errors.New("module initialization failed")
	ErrModuleStart     = errors.New("module start failed")
	ErrBootAborted     = errors.New("boot aborted by core module failure")
	ErrFactoryMissing  = errors.New("no factory registered for module")
	ErrFactoryNil      = errors.New("factory cannot be nil")
	ErrFactoryConflict = errors.New("factory already registered for module")

	// Export surface errors
	ErrExportMissing   = errors.New("declared export missing from capability surface")
	ErrExportNil       = errors.New("declared export is nil")
	ErrExportWrongKind = errors.New("declared export has wrong kind")

	// Registry errors
	ErrModuleAlreadyRegistered = errors.New("module already registered")

	// Catalog errors
	ErrCatalogNotFound = errors.New("catalog record not found")
	ErrCatalogConflict = errors.New("catalog record already exists")

	// Validation errors
	ErrValidationFailed = errors.New("core module validation failed")

	// Runtime construction errors
	ErrLoggerNil     = errors.New("logger cannot be nil")
	ErrCatalogNil    = errors.New("catalog store cannot be nil")
	ErrNoModuleRoots = errors.New("no module roots configured")
	ErrNotBooted     = errors.New("runtime has not been booted")
)

// CycleError reports a dependency cycle. Path holds every module on the
// cycle, in traversal order, with the entry node repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCircularDependency }

// MissingDependencyError reports a dependency edge pointing outside the
// descriptor set. It names both ends so the operator knows what to fix.
type MissingDependencyError struct {
	Module  string
	Missing string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %q depends on non-existent module %q", e.Module, e.Missing)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// BootAbortedError is raised when a core module fails during boot. Modules
// already started are not rolled back; the caller decides whether to retry
// the boot or exit.
type BootAbortedError struct {
	// Module is the core module whose failure aborted the boot.
	Module string
	// Phase is "init" or "start".
	Phase string
	// Cause is the failure returned by the module.
	Cause error
	// Started lists modules that were running when the boot aborted.
	Started []string
	// NotAttempted lists modules that were never reached.
	NotAttempted []string
}

func (e *BootAbortedError) Error() string {
	return fmt.Sprintf("boot aborted: core module %q failed during %s: %v (started: [%s], not attempted: [%s])",
		e.Module, e.Phase, e.Cause,
		strings.Join(e.Started, ", "), strings.Join(e.NotAttempted, ", "))
}

func (e *BootAbortedError) Unwrap() error { return ErrBootAborted }

// Mismatch describes one discrepancy between a core module's manifest and
// its running state.
type Mismatch struct {
	Module string
	Field  string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s manifest=%q runtime=%q", m.Module, m.Field, m.Want, m.Got)
}

// ValidationError aggregates every core-module mismatch found by a
// validation pass. It is raised only after the full module set has been
// checked so operators see everything wrong in one report.
type ValidationError struct {
	Mismatches []Mismatch
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("core module validation failed: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
