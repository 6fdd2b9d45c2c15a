package agentos

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFacade builds a facade over real components wired the same way the
// runtime wires them, minus the loader.
func newTestFacade(t *testing.T, roots ...string) (*Orchestrator, *Registry, *MemoryCatalog) {
	t.Helper()
	registry := NewRegistry()
	catalog := NewMemoryCatalog()
	reader := NewManifestReader(nopLogger{})
	manager := NewManager(reader, catalog, registry, NewEventBroker(nopLogger{}), nopLogger{}, roots...)
	health := NewHealthAggregator(registry, nopLogger{}, HealthAggregatorConfig{})
	return NewOrchestrator(registry, catalog, manager, health, nopLogger{}), registry, catalog
}

func TestFacadeDisableThenRescan(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeManifest(t, root, "tasks", "module.yaml", "name: tasks\nversion: 1.0.0\n")
	writeManifest(t, root, "kernel", "module.yaml", "name: kernel\ntype: core\n")

	facade, registry, catalog := newTestFacade(t, root)

	_, err := facade.ScanForModules(ctx)
	require.NoError(t, err)
	require.NoError(t, facade.DisableModule(ctx, "tasks"))

	result, err := facade.ScanForModules(ctx)
	require.NoError(t, err)

	// The disabled flag survives the rescan; the loader would skip the module.
	rec, err := facade.GetCatalogEntry(ctx, "tasks")
	require.NoError(t, err)
	assert.False(t, rec.Enabled)

	loader := NewLoader(registry, catalog, NewEventBroker(nopLogger{}), nopLogger{})
	modules := factories(&testModule{name: "tasks"}, &testModule{name: "kernel"})
	require.NoError(t, loader.Load(ctx, result.Descriptors, modules))

	// Absent from the live set, still present as a catalog row.
	_, live := facade.GetModule("tasks")
	assert.False(t, live)
	rec, err = facade.GetCatalogEntry(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)

	_, live = facade.GetModule("kernel")
	assert.True(t, live)
}

func TestFacadeListAndGet(t *testing.T) {
	ctx := context.Background()
	facade, registry, catalog := newTestFacade(t)

	require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(desc("beta", ModuleTypeService))))
	require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(desc("alpha", ModuleTypeCore))))
	require.NoError(t, registry.Register(NewInstance(&testModule{name: "alpha"}, desc("alpha", ModuleTypeCore))))

	records, err := facade.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].Name)
	assert.Equal(t, "beta", records[1].Name)

	inst, ok := facade.GetModule("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", inst.Descriptor.Name)

	// beta exists in the catalog but is not live.
	_, ok = facade.GetModule("beta")
	assert.False(t, ok)

	all := facade.GetAllModules()
	require.Len(t, all, 1)

	_, err = facade.GetCatalogEntry(ctx, "ghost")
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestFacadeEnableUnknown(t *testing.T) {
	facade, _, _ := newTestFacade(t)
	assert.ErrorIs(t, facade.EnableModule(context.Background(), "ghost"), ErrCatalogNotFound)
}

func TestFacadeHealthCheckAll(t *testing.T) {
	facade, registry, _ := newTestFacade(t)
	require.NoError(t, registry.Register(NewInstance(&testModule{name: "fine"}, desc("fine", ModuleTypeCore))))
	require.NoError(t, registry.Register(NewInstance(&testModule{
		name:   "flaky",
		health: HealthReport{Status: HealthStatusDegraded, Message: "cache cold"},
	}, desc("flaky", ModuleTypePlugin))))

	result := facade.HealthCheckAll(context.Background())
	assert.Equal(t, HealthStatusDegraded, result.Health)
	assert.Equal(t, HealthStatusHealthy, result.Readiness)
}

func TestFacadeValidateCoreModules(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeManifest(t, root, "kernel", "module.yaml", "name: kernel\nversion: 9.0.0\ntype: core\n")

	facade, registry, _ := newTestFacade(t, root)
	_, err := facade.ScanForModules(ctx)
	require.NoError(t, err)

	running := desc("kernel", ModuleTypeCore)
	running.Path = filepath.Join(root, "kernel")
	require.NoError(t, registry.Register(NewInstance(&testModule{name: "kernel"}, running)))

	_, err = facade.ValidateCoreModules(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
