package agentos

import (
	"context"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience.
type CloudEvent = cloudevents.Event

// Event type constants for runtime lifecycle events, using reverse domain
// notation per the CloudEvents specification.
const (
	EventTypeModuleRegistered  = "io.agentos.module.registered"
	EventTypeModuleInitialized = "io.agentos.module.initialized"
	EventTypeModuleStarted     = "io.agentos.module.started"
	EventTypeModuleStopped     = "io.agentos.module.stopped"
	EventTypeModuleFailed      = "io.agentos.module.failed"
	EventTypeModuleSkipped     = "io.agentos.module.skipped"

	EventTypeScanCompleted   = "io.agentos.scan.completed"
	EventTypeHealthEvaluated = "io.agentos.health.evaluated"

	EventTypeRuntimeStarted = "io.agentos.runtime.started"
	EventTypeRuntimeStopped = "io.agentos.runtime.stopped"
)

// eventSource is the CloudEvents source attribute for runtime-emitted events.
const eventSource = "agentos.runtime"

// Observer receives runtime lifecycle events. Observers should handle events
// quickly; slow observers delay no one but themselves (emission is
// asynchronous), yet their errors are only logged, never propagated.
type Observer interface {
	// OnEvent is called for each event the observer subscribed to.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier used for registration tracking.
	ObserverID() string
}

// Subject is implemented by event emitters. The runtime is a Subject.
type Subject interface {
	// RegisterObserver subscribes an observer, optionally filtered to the
	// given event types. No types means all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes a subscription. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers an event to every matching observer.
	NotifyObservers(ctx context.Context, event cloudevents.Event)
}

// FuncObserver adapts a plain function to the Observer interface.
type FuncObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFuncObserver creates an observer backed by the given handler.
func NewFuncObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) *FuncObserver {
	return &FuncObserver{id: id, handler: handler}
}

func (f *FuncObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FuncObserver) ObserverID() string { return f.id }

// observerEntry pairs an observer with its event type filter.
type observerEntry struct {
	observer   Observer
	eventTypes []string
}

// EventBroker is the runtime's Subject implementation. Each event is
// delivered on its own goroutine, observers in registration order, so a
// slow observer never stalls the emitting lifecycle pass. Observer errors
// are swallowed into the log.
type EventBroker struct {
	mu        sync.RWMutex
	observers []observerEntry
	logger    Logger
	inflight  sync.WaitGroup
}

// NewEventBroker creates a broker logging delivery failures to logger.
func NewEventBroker(logger Logger) *EventBroker {
	return &EventBroker{logger: logger}
}

func (b *EventBroker) RegisterObserver(observer Observer, eventTypes ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observerEntry{observer: observer, eventTypes: eventTypes})
	return nil
}

func (b *EventBroker) UnregisterObserver(observer Observer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = slices.DeleteFunc(b.observers, func(e observerEntry) bool {
		return e.observer.ObserverID() == observer.ObserverID()
	})
	return nil
}

func (b *EventBroker) NotifyObservers(ctx context.Context, event cloudevents.Event) {
	b.mu.RLock()
	entries := slices.Clone(b.observers)
	b.mu.RUnlock()

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		for _, entry := range entries {
			if len(entry.eventTypes) > 0 && !slices.Contains(entry.eventTypes, event.Type()) {
				continue
			}
			if err := entry.observer.OnEvent(ctx, event); err != nil {
				b.logger.Error("Observer failed to handle event",
					"observer", entry.observer.ObserverID(), "type", event.Type(), "error", err)
			}
		}
	}()
}

// Drain blocks until every in-flight delivery has completed. Called at
// shutdown so queued lifecycle events are not lost on process exit.
func (b *EventBroker) Drain() {
	if b == nil {
		return
	}
	b.inflight.Wait()
}

// emit builds and delivers a runtime lifecycle event. Used by the loader,
// manager, and runtime; nil brokers are tolerated so components can run
// without eventing wired up.
func (b *EventBroker) emit(ctx context.Context, eventType string, data any) {
	if b == nil {
		return
	}
	b.NotifyObservers(ctx, NewCloudEvent(eventType, eventSource, data))
}

// NewCloudEvent creates a properly formed CloudEvent with a time-ordered ID.
func NewCloudEvent(eventType, source string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// newEventID generates a UUIDv7 so event IDs sort by emission time, falling
// back to v4 if v7 generation fails.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
