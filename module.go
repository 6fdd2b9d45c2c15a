// Package agentos provides the module lifecycle and dependency-orchestration
// runtime for the agentos platform. It turns a set of independently-authored
// modules — authentication, task queues, agent sessions, protocol servers —
// into a running system with deterministic startup/shutdown order, failure
// isolation, and a queryable catalog.
//
// Modules are discovered from on-disk manifests, ordered by their declared
// dependencies, and driven through a fixed lifecycle. A persisted catalog
// records every known module so that external tooling (CLI, HTTP) can
// introspect and control the system even while it is down.
//
// Basic usage:
//
//	rt, err := agentos.NewRuntime(
//		agentos.WithLogger(logger),
//		agentos.WithModuleRoots("./modules"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	rt.RegisterFactory("auth", auth.New)
//	if err := rt.Boot(ctx); err != nil {
//		log.Fatal(err)
//	}
package agentos

import "context"

// Module is the contract every managed component must satisfy. The runtime
// never sniffs for optional lifecycle methods; a module that has nothing to
// do in a phase returns nil.
type Module interface {
	// Name returns the unique identifier for this module. It must match the
	// name declared in the module's manifest and is used as the dependency
	// graph node id and the registry key.
	//
	// Example: "auth", "tasks", "agent-sessions"
	Name() string

	// Init prepares the module for Start. It receives the config bag from the
	// module's descriptor and is called in dependency order — every one of
	// the module's dependencies is running before Init is invoked.
	Init(ctx context.Context, config map[string]any) error

	// Start begins the module's runtime operations. The provided context is
	// the runtime's lifecycle context; when it is cancelled the module should
	// wind down gracefully.
	Start(ctx context.Context) error

	// Stop performs graceful shutdown. It is called in reverse dependency
	// order and is best-effort: errors are logged, never propagated upward.
	// The context carries the per-module shutdown budget.
	Stop(ctx context.Context) error

	// HealthCheck reports the module's current health. It must be read-only
	// and fast; the runtime guards each call with its own timeout.
	HealthCheck(ctx context.Context) HealthReport

	// Exports returns the module's capability surface: named accessors
	// (services, state, operations) available to the rest of the system.
	// The surface is validated against the manifest's export declarations
	// after a successful Init.
	Exports() map[string]any
}

// Factory constructs a live module instance from its descriptor. Factories
// are registered in code; manifests supply descriptors only. A discovered
// descriptor with no registered factory cannot be loaded.
type Factory func(desc Descriptor) (Module, error)
