package agentos

import (
	"context"
	"sync"
	"time"
)

// testModule is a configurable Module implementation used across the
// lifecycle tests. The calls slice, when shared, records lifecycle
// invocations in order so tests can assert startup and shutdown sequencing.
type testModule struct {
	name     string
	initErr  error
	startErr error
	stopErr  error

	stopDelay   time.Duration
	healthDelay time.Duration
	healthPanic bool
	health      HealthReport

	exports map[string]any

	mu          sync.Mutex
	initCalled  bool
	startCalled bool
	stopCalled  bool
	calls       *callLog
}

// callLog is a concurrency-safe record of lifecycle invocations.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(entry string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (m *testModule) Name() string { return m.name }

func (m *testModule) Init(ctx context.Context, config map[string]any) error {
	m.mu.Lock()
	m.initCalled = true
	m.mu.Unlock()
	m.calls.add("init:" + m.name)
	return m.initErr
}

func (m *testModule) Start(ctx context.Context) error {
	m.mu.Lock()
	m.startCalled = true
	m.mu.Unlock()
	m.calls.add("start:" + m.name)
	return m.startErr
}

func (m *testModule) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopCalled = true
	m.mu.Unlock()
	if m.stopDelay > 0 {
		time.Sleep(m.stopDelay)
	}
	m.calls.add("stop:" + m.name)
	return m.stopErr
}

func (m *testModule) HealthCheck(ctx context.Context) HealthReport {
	if m.healthPanic {
		panic("health check exploded")
	}
	if m.healthDelay > 0 {
		time.Sleep(m.healthDelay)
	}
	if m.health.Status == HealthStatusUnknown {
		return Healthy("ok")
	}
	return m.health
}

func (m *testModule) Exports() map[string]any {
	if m.exports == nil {
		return map[string]any{}
	}
	return m.exports
}

func (m *testModule) wasStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalled
}

func (m *testModule) wasStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalled
}

// desc builds an enabled descriptor for tests.
func desc(name string, typ ModuleType, deps ...string) Descriptor {
	return Descriptor{
		Name:         name,
		Version:      "1.0.0",
		Type:         typ,
		Dependencies: deps,
		Enabled:      true,
	}
}

// factories maps each module to a factory returning it as-is.
func factories(modules ...*testModule) map[string]Factory {
	result := make(map[string]Factory, len(modules))
	for _, m := range modules {
		module := m
		result[module.name] = func(Descriptor) (Module, error) {
			return module, nil
		}
	}
	return result
}

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
