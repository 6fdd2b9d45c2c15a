package agentos

import (
	"fmt"
	"sync"
	"time"
)

// Instance is a live module held by the registry: the running Module joined
// with its descriptor and current lifecycle state.
type Instance struct {
	Module     Module
	Descriptor Descriptor

	mu        sync.RWMutex
	status    ModuleStatus
	err       error
	startedAt time.Time
}

// NewInstance wraps a constructed module. Status starts at PENDING.
func NewInstance(module Module, desc Descriptor) *Instance {
	return &Instance{Module: module, Descriptor: desc, status: StatusPending}
}

// Status returns the instance's current lifecycle status.
func (i *Instance) Status() ModuleStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Err returns the error recorded by the last failed transition, if any.
func (i *Instance) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// StartedAt returns when the instance entered RUNNING, zero if it never did.
func (i *Instance) StartedAt() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.startedAt
}

func (i *Instance) setStatus(status ModuleStatus, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = status
	i.err = err
	if status == StatusRunning {
		i.startedAt = time.Now()
	}
}

// Registry is the in-memory, process-lifetime map of currently-running
// module instances — the single source of truth for "what is running now".
//
// Invariant: an entry exists iff the instance status is INITIALIZING,
// RUNNING, or STOPPING. The loader removes entries on ERROR and STOPPED;
// those modules remain visible as catalog rows only.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	order     []string // insertion order, for deterministic listings
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Register adds a live instance. Registering the same name twice is an error.
func (r *Registry) Register(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := inst.Descriptor.Name
	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("%w: %s", ErrModuleAlreadyRegistered, name)
	}
	r.instances[name] = inst
	r.order = append(r.order, name)
	return nil
}

// Get returns the live instance for name, or false if it is not running.
func (r *Registry) Get(name string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// All returns every live instance in registration order.
func (r *Registry) All() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Instance, 0, len(r.instances))
	for _, name := range r.order {
		if inst, ok := r.instances[name]; ok {
			result = append(result, inst)
		}
	}
	return result
}

// Names returns the names of every live instance in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.instances))
	for _, name := range r.order {
		if _, ok := r.instances[name]; ok {
			result = append(result, name)
		}
	}
	return result
}

// Remove drops an instance from the registry. Idempotent.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}

// Clear drops every instance. Called at the end of shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]*Instance)
	r.order = nil
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
