package agentos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrAlreadyBooted is returned by Boot on a runtime that is already running.
var ErrAlreadyBooted = errors.New("runtime already booted")

// Runtime is the composition root of the module system. It owns the manifest
// reader, resolver, loader, registry, manager, health aggregator, and event
// broker, constructed once and injected into each other — no component
// reaches for a global accessor.
type Runtime struct {
	logger   Logger
	catalog  CatalogStore
	registry *Registry
	reader   *ManifestReader
	resolver *Resolver
	loader   *Loader
	manager  *Manager
	health   *HealthAggregator
	broker   *EventBroker
	facade   *Orchestrator

	roots        []string
	factories    map[string]Factory
	static       []Descriptor
	healthConfig HealthAggregatorConfig

	watchEnabled  bool
	watchDebounce time.Duration
	watcher       *ManifestWatcher

	healthInterval    time.Duration
	cronRunner        *cron.Cron
	loaderStopTimeout time.Duration

	pendingObservers []observerEntry

	mu     sync.Mutex
	booted bool
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Runtime during construction.
type Option func(*Runtime) error

// WithLogger sets the runtime logger. Defaults to slog.Default.
func WithLogger(logger Logger) Option {
	return func(rt *Runtime) error {
		if logger == nil {
			return ErrLoggerNil
		}
		rt.logger = logger
		return nil
	}
}

// WithCatalog sets the catalog store. Defaults to an in-memory catalog.
func WithCatalog(catalog CatalogStore) Option {
	return func(rt *Runtime) error {
		if catalog == nil {
			return ErrCatalogNil
		}
		rt.catalog = catalog
		return nil
	}
}

// WithModuleRoots sets the directories scanned for module manifests.
func WithModuleRoots(roots ...string) Option {
	return func(rt *Runtime) error {
		rt.roots = append(rt.roots, roots...)
		return nil
	}
}

// WithStopTimeout sets the per-module shutdown budget.
func WithStopTimeout(d time.Duration) Option {
	return func(rt *Runtime) error {
		rt.loaderStopTimeout = d
		return nil
	}
}

// WithHealthConfig tunes the health aggregator's per-check timeout and
// cache TTL.
func WithHealthConfig(config HealthAggregatorConfig) Option {
	return func(rt *Runtime) error {
		rt.healthConfig = config
		return nil
	}
}

// WithHealthInterval enables periodic background health evaluation at the
// given interval. Zero leaves health evaluation on-demand only.
func WithHealthInterval(d time.Duration) Option {
	return func(rt *Runtime) error {
		rt.healthInterval = d
		return nil
	}
}

// WithManifestWatch enables filesystem watching of the module roots; changes
// trigger a debounced rescan. debounce <= 0 uses the default window.
func WithManifestWatch(debounce time.Duration) Option {
	return func(rt *Runtime) error {
		rt.watchEnabled = true
		rt.watchDebounce = debounce
		return nil
	}
}

// WithObserver subscribes an observer to runtime lifecycle events,
// optionally filtered by event type.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(rt *Runtime) error {
		rt.pendingObservers = append(rt.pendingObservers, observerEntry{observer: observer, eventTypes: eventTypes})
		return nil
	}
}

// NewRuntime constructs a runtime and wires its components.
func NewRuntime(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		factories: make(map[string]Factory),
	}
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return nil, fmt.Errorf("failed to apply runtime option: %w", err)
		}
	}

	if rt.logger == nil {
		rt.logger = NewSlogLogger(slog.Default())
	}
	if rt.catalog == nil {
		rt.catalog = NewMemoryCatalog()
	}

	rt.registry = NewRegistry()
	rt.reader = NewManifestReader(rt.logger)
	rt.resolver = NewResolver()
	rt.broker = NewEventBroker(rt.logger)
	rt.loader = NewLoader(rt.registry, rt.catalog, rt.broker, rt.logger)
	if rt.loaderStopTimeout > 0 {
		rt.loader.SetStopTimeout(rt.loaderStopTimeout)
	}
	rt.manager = NewManager(rt.reader, rt.catalog, rt.registry, rt.broker, rt.logger, rt.roots...)
	rt.health = NewHealthAggregator(rt.registry, rt.logger, rt.healthConfig)
	rt.facade = NewOrchestrator(rt.registry, rt.catalog, rt.manager, rt.health, rt.logger)

	for _, entry := range rt.pendingObservers {
		_ = rt.broker.RegisterObserver(entry.observer, entry.eventTypes...)
	}
	rt.pendingObservers = nil

	return rt, nil
}

// RegisterModule statically registers a module: its descriptor plus the
// factory that builds it. This is the path for built-in core modules that
// ship inside the binary rather than being discovered on disk.
func (rt *Runtime) RegisterModule(desc Descriptor, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrFactoryNil, desc.Name)
	}
	if desc.Type == "" {
		desc.Type = ModuleTypeCore
	}
	if desc.Version == "" {
		desc.Version = "1.0.0"
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.factories[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrFactoryConflict, desc.Name)
	}
	desc.Enabled = true
	rt.static = append(rt.static, desc)
	rt.factories[desc.Name] = factory
	return nil
}

// RegisterFactory registers the constructor for a manifest-discovered
// module. The descriptor comes from the manifest; the factory must be
// compiled in because the runtime defines no plugin ABI.
func (rt *Runtime) RegisterFactory(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrFactoryNil, name)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrFactoryConflict, name)
	}
	rt.factories[name] = factory
	return nil
}

// Boot discovers, orders, and loads the module set: statically registered
// descriptors first, then manifest-discovered ones, reconciled into the
// catalog, topologically sorted, and driven through the lifecycle.
func (rt *Runtime) Boot(ctx context.Context) error {
	rt.mu.Lock()
	if rt.booted {
		rt.mu.Unlock()
		return ErrAlreadyBooted
	}
	static := append([]Descriptor(nil), rt.static...)
	factories := make(map[string]Factory, len(rt.factories))
	for name, f := range rt.factories {
		factories[name] = f
	}
	rt.mu.Unlock()

	descriptors := make([]Descriptor, 0, len(static))
	for _, desc := range static {
		merged, err := rt.manager.Upsert(ctx, desc)
		if err != nil {
			return fmt.Errorf("failed to register static module %q: %w", desc.Name, err)
		}
		descriptors = append(descriptors, merged)
	}

	if len(rt.roots) > 0 {
		result, err := rt.manager.Scan(ctx)
		if err != nil {
			return err
		}
		for _, desc := range result.Descriptors {
			// Static registration wins over a same-named manifest.
			if containsName(descriptors, desc.Name) {
				continue
			}
			descriptors = append(descriptors, desc)
		}
	}

	ordered, err := rt.resolver.Resolve(descriptors)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	// Lifecycle context outlives Boot's ctx: module Start goroutines hang
	// off it until Shutdown. An aborted boot leaves it in place so the
	// modules it already started keep their parent and a retry reuses it.
	rt.mu.Lock()
	if rt.cancel == nil {
		rt.ctx, rt.cancel = context.WithCancel(context.Background())
	}
	rt.mu.Unlock()

	if err := rt.loader.Load(rt.ctx, ordered, factories); err != nil {
		rt.mu.Lock()
		if len(rt.loader.Loaded()) == 0 {
			rt.cancel()
			rt.cancel = nil
		}
		rt.mu.Unlock()
		return err
	}

	if rt.watchEnabled {
		rt.watcher = NewManifestWatcher(rt.manager, rt.logger, rt.watchDebounce, rt.roots...)
		if err := rt.watcher.Start(rt.ctx); err != nil {
			rt.logger.Error("Failed to start manifest watcher", "error", err)
			rt.watcher = nil
		}
	}

	if rt.healthInterval > 0 {
		rt.cronRunner = cron.New()
		_, err := rt.cronRunner.AddFunc(fmt.Sprintf("@every %s", rt.healthInterval), func() {
			snapshot := rt.health.Collect(rt.ctx)
			rt.logger.Debug("Periodic health evaluation",
				"health", snapshot.Health.String(), "readiness", snapshot.Readiness.String(),
				"modules", len(snapshot.Reports))
			rt.broker.emit(rt.ctx, EventTypeHealthEvaluated, snapshot)
		})
		if err != nil {
			rt.logger.Error("Failed to schedule health evaluation", "error", err)
		} else {
			rt.cronRunner.Start()
		}
	}

	rt.mu.Lock()
	rt.booted = true
	rt.mu.Unlock()

	rt.logger.Info("Runtime booted", "modules", rt.registry.Len())
	rt.broker.emit(ctx, EventTypeRuntimeStarted, map[string]any{"modules": rt.registry.Names()})
	return nil
}

// Shutdown stops background machinery and every loaded module in reverse
// load order. It works after a successful Boot and after an aborted one:
// the modules a failed boot already started are stopped the same way.
// Individual module stop failures never abort the pass.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	if !rt.booted && len(rt.loader.Loaded()) == 0 {
		rt.mu.Unlock()
		return ErrNotBooted
	}
	rt.booted = false
	cancel := rt.cancel
	rt.cancel = nil
	rt.mu.Unlock()

	if rt.cronRunner != nil {
		rt.cronRunner.Stop()
		rt.cronRunner = nil
	}
	if rt.watcher != nil {
		rt.watcher.Stop()
		rt.watcher = nil
	}

	rt.loader.Shutdown(ctx)

	if cancel != nil {
		cancel()
	}

	rt.logger.Info("Runtime stopped")
	rt.broker.emit(ctx, EventTypeRuntimeStopped, nil)
	rt.broker.Drain()
	return nil
}

// Run boots the runtime and blocks until a termination signal or context
// cancellation, then shuts down.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Boot(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		rt.logger.Info("Received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		rt.logger.Info("Context cancelled, shutting down")
	}

	return rt.Shutdown(context.Background())
}

// Facade returns the orchestration facade consumed by CLI and HTTP callers.
func (rt *Runtime) Facade() *Orchestrator {
	return rt.facade
}

// Manager returns the module manager.
func (rt *Runtime) Manager() *Manager {
	return rt.manager
}

// RegisterObserver subscribes an observer to runtime lifecycle events.
func (rt *Runtime) RegisterObserver(observer Observer, eventTypes ...string) error {
	return rt.broker.RegisterObserver(observer, eventTypes...)
}

// UnregisterObserver removes an observer subscription.
func (rt *Runtime) UnregisterObserver(observer Observer) error {
	return rt.broker.UnregisterObserver(observer)
}

func containsName(descriptors []Descriptor, name string) bool {
	for _, desc := range descriptors {
		if desc.Name == name {
			return true
		}
	}
	return false
}
