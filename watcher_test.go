package agentos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherStopCancelsPendingRescan(t *testing.T) {
	root := t.TempDir()
	catalog := NewMemoryCatalog()
	manager := NewManager(NewManifestReader(nopLogger{}), catalog, NewRegistry(), nil, nopLogger{}, root)

	w := NewManifestWatcher(manager, nopLogger{}, 300*time.Millisecond, root)
	require.NoError(t, w.Start(context.Background()))

	// Arm the debounce, then stop the watcher before the window elapses.
	writeManifest(t, root, "late", "module.yaml", "name: late\n")
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	time.Sleep(500 * time.Millisecond)
	_, err := catalog.Get(context.Background(), "late")
	assert.ErrorIs(t, err, ErrCatalogNotFound, "no rescan may fire after Stop")
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w := NewManifestWatcher(nil, nopLogger{}, 0, t.TempDir())
	assert.NotPanics(t, func() {
		w.Stop()
		w.Stop()
	})
}
