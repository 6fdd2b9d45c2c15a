package agentos

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultStopTimeout is the per-module shutdown budget. A module that does
// not return from Stop within the budget is treated as stopped anyway, so an
// unresponsive module cannot hang process exit.
const defaultStopTimeout = 5 * time.Second

// Loader drives the lifecycle state machine for each module in resolved
// order. A single control flow performs the initialize/start pass —
// dependency order must be respected, and two modules initializing
// concurrently could race on shared resources during early boot.
type Loader struct {
	registry *Registry
	catalog  CatalogStore
	broker   *EventBroker
	logger   Logger

	stopTimeout time.Duration

	mu     sync.Mutex
	loaded []*Instance // load order, reversed at shutdown
}

// NewLoader creates a loader writing live instances into registry and status
// updates into catalog. broker may be nil when eventing is not wired.
func NewLoader(registry *Registry, catalog CatalogStore, broker *EventBroker, logger Logger) *Loader {
	return &Loader{
		registry:    registry,
		catalog:     catalog,
		broker:      broker,
		logger:      logger,
		stopTimeout: defaultStopTimeout,
	}
}

// SetStopTimeout overrides the per-module shutdown budget.
func (l *Loader) SetStopTimeout(d time.Duration) {
	if d > 0 {
		l.stopTimeout = d
	}
}

// Load initializes and starts every enabled module in resolved order.
//
// Per module: construct via its factory, Init, validate the export surface,
// register, Start. Any failure sets the module to ERROR; a failing core
// module aborts the whole boot with a *BootAbortedError naming the modules
// never attempted, while a failing non-core module is logged and isolated.
// Modules already started when a boot aborts are not rolled back; a later
// Load pass finds them in the registry and leaves them running, so a
// retried boot reuses the survivors instead of double-starting them.
func (l *Loader) Load(ctx context.Context, ordered []Descriptor, factories map[string]Factory) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, desc := range ordered {
		if !desc.Enabled {
			l.logger.Info("Module disabled, skipping", "module", desc.Name)
			l.broker.emit(ctx, EventTypeModuleSkipped, map[string]any{"module": desc.Name, "reason": "disabled"})
			continue
		}

		if _, ok := l.registry.Get(desc.Name); ok {
			l.logger.Debug("Module already live, reusing instance", "module", desc.Name)
			continue
		}

		factory, ok := factories[desc.Name]
		if !ok {
			err := fmt.Errorf("%w: %s", ErrFactoryMissing, desc.Name)
			if abort := l.fail(ctx, nil, desc, "init", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}

		module, err := factory(desc)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrModuleInit, desc.Name, err)
			if abort := l.fail(ctx, nil, desc, "init", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}

		inst := NewInstance(module, desc)
		l.transition(ctx, inst, StatusInitializing, nil)

		if err := module.Init(ctx, desc.Config); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrModuleInit, desc.Name, err)
			if abort := l.fail(ctx, inst, desc, "init", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}

		// Init succeeded; the capability surface still has to match the
		// manifest's export declarations.
		if err := ValidateExports(desc, module); err != nil {
			if abort := l.fail(ctx, inst, desc, "init", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}

		if err := l.registry.Register(inst); err != nil {
			if abort := l.fail(ctx, inst, desc, "init", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}
		l.broker.emit(ctx, EventTypeModuleInitialized, map[string]any{"module": desc.Name})

		if err := module.Start(ctx); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrModuleStart, desc.Name, err)
			l.registry.Remove(desc.Name)
			if abort := l.fail(ctx, inst, desc, "start", err, ordered[i+1:]); abort != nil {
				return abort
			}
			continue
		}

		l.transition(ctx, inst, StatusRunning, nil)
		l.loaded = append(l.loaded, inst)
		l.logger.Info("Module started", "module", desc.Name, "version", desc.Version, "type", desc.Type)
		l.broker.emit(ctx, EventTypeModuleStarted, map[string]any{"module": desc.Name, "version": desc.Version})
	}

	return nil
}

// fail records a lifecycle failure. It returns a non-nil *BootAbortedError
// when the failed module is core, which ends the boot; otherwise the module
// is isolated and loading continues.
func (l *Loader) fail(ctx context.Context, inst *Instance, desc Descriptor, phase string, cause error, remaining []Descriptor) error {
	if inst != nil {
		l.transition(ctx, inst, StatusError, cause)
	} else if err := l.catalog.SetStatus(ctx, desc.Name, StatusError, cause.Error()); err != nil {
		l.logger.Error("Failed to record module error in catalog", "module", desc.Name, "error", err)
	}

	l.broker.emit(ctx, EventTypeModuleFailed, map[string]any{
		"module": desc.Name, "phase": phase, "error": cause.Error(),
	})

	if desc.Type != ModuleTypeCore {
		l.logger.Error("Module failed, continuing without it",
			"module", desc.Name, "type", desc.Type, "phase", phase, "error", cause)
		return nil
	}

	notAttempted := make([]string, 0, len(remaining))
	for _, d := range remaining {
		notAttempted = append(notAttempted, d.Name)
	}
	started := make([]string, 0, len(l.loaded))
	for _, li := range l.loaded {
		started = append(started, li.Descriptor.Name)
	}
	abort := &BootAbortedError{
		Module:       desc.Name,
		Phase:        phase,
		Cause:        cause,
		Started:      started,
		NotAttempted: notAttempted,
	}
	l.logger.Error("Core module failed, aborting boot",
		"module", desc.Name, "phase", phase, "error", cause, "notAttempted", notAttempted)
	return abort
}

// Shutdown stops every loaded module in reverse load order. Individual stop
// failures are logged and tolerated; each Stop runs under the per-module
// budget and a module exceeding it is treated as stopped. The registry is
// cleared when the pass completes.
func (l *Loader) Shutdown(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.loaded) - 1; i >= 0; i-- {
		inst := l.loaded[i]
		name := inst.Descriptor.Name
		l.transition(ctx, inst, StatusStopping, nil)
		l.logger.Info("Stopping module", "module", name)

		if err := l.stopWithTimeout(ctx, inst); err != nil {
			l.logger.Error("Error stopping module, continuing shutdown", "module", name, "error", err)
		}

		l.transition(ctx, inst, StatusStopped, nil)
		l.registry.Remove(name)
		l.broker.emit(ctx, EventTypeModuleStopped, map[string]any{"module": name})
	}

	l.loaded = nil
	l.registry.Clear()
}

// stopWithTimeout runs inst.Stop under the per-module budget. The Stop call
// itself is not interruptible, so a stuck module leaks its goroutine; the
// shutdown pass moves on regardless.
func (l *Loader) stopWithTimeout(ctx context.Context, inst *Instance) error {
	stopCtx, cancel := context.WithTimeout(ctx, l.stopTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("stop panicked: %v", r)
			}
		}()
		done <- inst.Module.Stop(stopCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-stopCtx.Done():
		return fmt.Errorf("stop did not return within %s, treating as stopped", l.stopTimeout)
	}
}

// Loaded returns the instances started by the last Load, in load order.
func (l *Loader) Loaded() []*Instance {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]*Instance, len(l.loaded))
	copy(result, l.loaded)
	return result
}

// transition records a status change on both the live instance and its
// catalog row. Catalog bookkeeping failures are logged, never allowed to
// disturb the lifecycle itself.
func (l *Loader) transition(ctx context.Context, inst *Instance, status ModuleStatus, cause error) {
	inst.setStatus(status, cause)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := l.catalog.SetStatus(ctx, inst.Descriptor.Name, status, msg); err != nil {
		l.logger.Error("Failed to record module status in catalog",
			"module", inst.Descriptor.Name, "status", status, "error", err)
	}
}
