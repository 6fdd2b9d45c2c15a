package agentos

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CatalogStore is the persisted record of every known module, independent of
// whether it is currently running. All mutations go through the Manager's
// serialized API; no other component writes the store directly.
type CatalogStore interface {
	// Get returns the record for name, or ErrCatalogNotFound.
	Get(ctx context.Context, name string) (Record, error)

	// List returns every record, ordered by name.
	List(ctx context.Context) ([]Record, error)

	// Create inserts a new record. ErrCatalogConflict if the name exists.
	Create(ctx context.Context, rec Record) error

	// Update replaces the stored descriptor fields of an existing record,
	// keyed by rec.Name. ErrCatalogNotFound if the name is unknown.
	Update(ctx context.Context, rec Record) error

	// SetEnabled flips the persisted enabled flag.
	SetEnabled(ctx context.Context, name string, enabled bool) error

	// SetStatus records the lifecycle status and last error message.
	SetStatus(ctx context.Context, name string, status ModuleStatus, errMsg string) error
}

// MemoryCatalog is an in-process CatalogStore for tests and ephemeral runs.
// Durable deployments use the SQL-backed store in the store package.
type MemoryCatalog struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{records: make(map[string]Record)}
}

func (c *MemoryCatalog) Get(_ context.Context, name string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrCatalogNotFound, name)
	}
	return cloneRecord(rec), nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		result = append(result, cloneRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (c *MemoryCatalog) Create(_ context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.records[rec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrCatalogConflict, rec.Name)
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	c.records[rec.Name] = cloneRecord(rec)
	return nil
}

func (c *MemoryCatalog) Update(_ context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.records[rec.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCatalogNotFound, rec.Name)
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now()
	c.records[rec.Name] = cloneRecord(rec)
	return nil
}

func (c *MemoryCatalog) SetEnabled(_ context.Context, name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCatalogNotFound, name)
	}
	rec.Enabled = enabled
	rec.UpdatedAt = time.Now()
	c.records[name] = rec
	return nil
}

func (c *MemoryCatalog) SetStatus(_ context.Context, name string, status ModuleStatus, errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCatalogNotFound, name)
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now()
	c.records[name] = rec
	return nil
}

func cloneRecord(rec Record) Record {
	out := rec
	if rec.Dependencies != nil {
		out.Dependencies = append([]string(nil), rec.Dependencies...)
	}
	if rec.Config != nil {
		out.Config = make(map[string]any, len(rec.Config))
		for k, v := range rec.Config {
			out.Config[k] = v
		}
	}
	if rec.Metadata != nil {
		out.Metadata = make(map[string]any, len(rec.Metadata))
		for k, v := range rec.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
