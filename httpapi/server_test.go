package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentos-project/agentos"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// stubModule is a minimal live module for registry-backed endpoints.
type stubModule struct {
	name   string
	report agentos.HealthReport
}

func (m *stubModule) Name() string                               { return m.name }
func (m *stubModule) Init(context.Context, map[string]any) error { return nil }
func (m *stubModule) Start(context.Context) error                { return nil }
func (m *stubModule) Stop(context.Context) error                 { return nil }
func (m *stubModule) Exports() map[string]any                    { return map[string]any{} }
func (m *stubModule) HealthCheck(context.Context) agentos.HealthReport {
	if m.report.Status == agentos.HealthStatusUnknown {
		return agentos.Healthy("ok")
	}
	return m.report
}

type fixture struct {
	server   *httptest.Server
	registry *agentos.Registry
	catalog  *agentos.MemoryCatalog
}

func newFixture(t *testing.T, roots ...string) *fixture {
	t.Helper()
	registry := agentos.NewRegistry()
	catalog := agentos.NewMemoryCatalog()
	logger := nopLogger{}
	reader := agentos.NewManifestReader(logger)
	manager := agentos.NewManager(reader, catalog, registry, agentos.NewEventBroker(logger), logger, roots...)
	health := agentos.NewHealthAggregator(registry, logger, agentos.HealthAggregatorConfig{})
	facade := agentos.NewOrchestrator(registry, catalog, manager, health, logger)

	ts := httptest.NewServer(NewServer(facade, logger).Router())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, registry: registry, catalog: catalog}
}

func (f *fixture) seed(t *testing.T, name string, typ agentos.ModuleType, live bool) {
	t.Helper()
	d := agentos.Descriptor{Name: name, Version: "1.0.0", Type: typ, Enabled: true}
	require.NoError(t, f.catalog.Create(context.Background(), agentos.RecordFromDescriptor(d)))
	if live {
		require.NoError(t, f.registry.Register(agentos.NewInstance(&stubModule{name: name}, d)))
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func post(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestListModules(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "auth", agentos.ModuleTypeCore, true)
	f.seed(t, "batch", agentos.ModuleTypeService, false)

	resp, body := get(t, f.server.URL+"/modules")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "auth", views[0]["name"])
	assert.Equal(t, true, views[0]["running"])
	assert.Equal(t, "batch", views[1]["name"])
	assert.Equal(t, false, views[1]["running"])
}

func TestGetModule(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "auth", agentos.ModuleTypeCore, true)

	resp, body := get(t, f.server.URL+"/modules/auth")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var view map[string]any
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "auth", view["name"])
	assert.Equal(t, "core", view["type"])

	resp, _ = get(t, f.server.URL+"/modules/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnableDisableEndpoints(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "batch", agentos.ModuleTypeService, false)

	resp := post(t, f.server.URL+"/modules/batch/disable")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec, err := f.catalog.Get(context.Background(), "batch")
	require.NoError(t, err)
	assert.False(t, rec.Enabled)

	resp = post(t, f.server.URL+"/modules/batch/enable")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec, err = f.catalog.Get(context.Background(), "batch")
	require.NoError(t, err)
	assert.True(t, rec.Enabled)

	resp = post(t, f.server.URL+"/modules/ghost/enable")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScanEndpoint(t *testing.T) {
	root := t.TempDir()
	writeModuleManifest(t, root, "found", "name: found\n")
	f := newFixture(t, root)

	resp := post(t, f.server.URL+"/scan")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec, err := f.catalog.Get(context.Background(), "found")
	require.NoError(t, err)
	assert.Equal(t, "found", rec.Name)
}

func writeModuleManifest(t *testing.T, root, module, content string) {
	t.Helper()
	dir := filepath.Join(root, module)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module.yaml"), []byte(content), 0o644))
}

func TestValidateEndpointWarningsOnly(t *testing.T) {
	f := newFixture(t)
	// A live core module whose manifest path does not exist produces only a
	// warning, so validation passes.
	f.seed(t, "auth", agentos.ModuleTypeCore, true)

	resp, body := get(t, f.server.URL+"/validate")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report map[string]any
	require.NoError(t, json.Unmarshal(body, &report))
	assert.NotEmpty(t, report["warnings"])
}

func TestValidateEndpointCoreDrift(t *testing.T) {
	root := t.TempDir()
	writeModuleManifest(t, root, "kernel", "name: kernel\nversion: 9.0.0\ntype: core\n")
	f := newFixture(t, root)

	resp := post(t, f.server.URL+"/scan")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	d := agentos.Descriptor{
		Name: "kernel", Version: "1.0.0", Type: agentos.ModuleTypeCore,
		Path: filepath.Join(root, "kernel"), Enabled: true,
	}
	require.NoError(t, f.registry.Register(agentos.NewInstance(&stubModule{name: "kernel"}, d)))

	getResp, body := get(t, f.server.URL+"/validate")
	assert.Equal(t, http.StatusConflict, getResp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload, "error")
	assert.Contains(t, payload, "report")
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "auth", agentos.ModuleTypeCore, true)

	resp, body := get(t, f.server.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.EqualValues(t, agentos.HealthStatusHealthy, int(snapshot["readiness"].(float64)))
}

func TestHealthEndpointUnavailableWhenCoreUnhealthy(t *testing.T) {
	f := newFixture(t)
	d := agentos.Descriptor{Name: "sick", Version: "1.0.0", Type: agentos.ModuleTypeCore, Enabled: true}
	require.NoError(t, f.catalog.Create(context.Background(), agentos.RecordFromDescriptor(d)))
	require.NoError(t, f.registry.Register(agentos.NewInstance(&stubModule{
		name:   "sick",
		report: agentos.Unhealthy("database gone"),
	}, d)))

	resp, _ := get(t, f.server.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
