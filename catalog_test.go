package agentos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalogCRUD(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	rec := RecordFromDescriptor(desc("auth", ModuleTypeCore, "store"))
	require.NoError(t, catalog.Create(ctx, rec))

	got, err := catalog.Get(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "auth", got.Name)
	assert.Equal(t, []string{"store"}, got.Dependencies)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	rec.Version = "2.0.0"
	require.NoError(t, catalog.Update(ctx, rec))
	got, err = catalog.Get(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestMemoryCatalogCreateConflict(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()
	require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(desc("a", ModuleTypeService))))

	err := catalog.Create(ctx, RecordFromDescriptor(desc("a", ModuleTypeService)))
	assert.ErrorIs(t, err, ErrCatalogConflict)
}

func TestMemoryCatalogNotFound(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	_, err := catalog.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	assert.ErrorIs(t, catalog.Update(ctx, RecordFromDescriptor(desc("ghost", ModuleTypeService))), ErrCatalogNotFound)
	assert.ErrorIs(t, catalog.SetEnabled(ctx, "ghost", false), ErrCatalogNotFound)
	assert.ErrorIs(t, catalog.SetStatus(ctx, "ghost", StatusRunning, ""), ErrCatalogNotFound)
}

func TestMemoryCatalogListSortedByName(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(desc(name, ModuleTypeService))))
	}

	records, err := catalog.List(ctx)
	require.NoError(t, err)
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestMemoryCatalogSetEnabledAndStatus(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()
	require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(desc("svc", ModuleTypeService))))

	require.NoError(t, catalog.SetEnabled(ctx, "svc", false))
	rec, err := catalog.Get(ctx, "svc")
	require.NoError(t, err)
	assert.False(t, rec.Enabled)

	require.NoError(t, catalog.SetStatus(ctx, "svc", StatusError, "init exploded"))
	rec, err = catalog.Get(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, "init exploded", rec.Error)
	// The enabled flag is untouched by a status write.
	assert.False(t, rec.Enabled)
}

func TestMemoryCatalogReturnsCopies(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog()

	d := desc("svc", ModuleTypeService, "dep")
	d.Config = map[string]any{"port": 8080}
	require.NoError(t, catalog.Create(ctx, RecordFromDescriptor(d)))

	got, err := catalog.Get(ctx, "svc")
	require.NoError(t, err)
	got.Dependencies[0] = "mutated"
	got.Config["port"] = 9999

	again, err := catalog.Get(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, []string{"dep"}, again.Dependencies)
	assert.Equal(t, 8080, again.Config["port"])
}
