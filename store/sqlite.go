// Package store provides the durable CatalogStore implementation backed by
// SQLite through database/sql. The in-memory catalog in the root package
// covers tests and ephemeral runs; this one survives restarts so external
// tooling can introspect and control the module set while the runtime is
// down.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentos-project/agentos"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
	name         TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	type         TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	dependencies TEXT NOT NULL DEFAULT '[]',
	enabled      INTEGER NOT NULL DEFAULT 1,
	status       TEXT NOT NULL DEFAULT 'pending',
	error        TEXT NOT NULL DEFAULT '',
	config       TEXT NOT NULL DEFAULT '{}',
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);`

// SQLCatalog implements agentos.CatalogStore on a SQL database. Dependency
// lists and the opaque config/metadata bags are stored as JSON columns.
type SQLCatalog struct {
	db *sql.DB
}

var _ agentos.CatalogStore = (*SQLCatalog)(nil)

// Open opens (creating if needed) a SQLite catalog at path. Use ":memory:"
// for an ephemeral database.
func Open(path string) (*SQLCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY churn under concurrent manager calls.
	db.SetMaxOpenConns(1)
	catalog, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return catalog, nil
}

// New wraps an existing database handle and bootstraps the schema.
func New(db *sql.DB) (*SQLCatalog, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to bootstrap catalog schema: %w", err)
	}
	return &SQLCatalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLCatalog) Close() error {
	return c.db.Close()
}

func (c *SQLCatalog) Get(ctx context.Context, name string) (agentos.Record, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT name, version, type, path, dependencies, enabled, status, error,
		       config, metadata, created_at, updated_at
		FROM modules WHERE name = ?`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return agentos.Record{}, fmt.Errorf("%w: %s", agentos.ErrCatalogNotFound, name)
	}
	if err != nil {
		return agentos.Record{}, fmt.Errorf("failed to read catalog record %q: %w", name, err)
	}
	return rec, nil
}

func (c *SQLCatalog) List(ctx context.Context) ([]agentos.Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, version, type, path, dependencies, enabled, status, error,
		       config, metadata, created_at, updated_at
		FROM modules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var records []agentos.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	return records, nil
}

func (c *SQLCatalog) Create(ctx context.Context, rec agentos.Record) error {
	deps, cfg, meta, err := encodeBags(rec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO modules (name, version, type, path, dependencies, enabled,
		                     status, error, config, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		rec.Name, rec.Version, string(rec.Type), rec.Path, deps, rec.Enabled,
		string(rec.Status), rec.Error, cfg, meta, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert catalog record %q: %w", rec.Name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert catalog record %q: %w", rec.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", agentos.ErrCatalogConflict, rec.Name)
	}
	return nil
}

func (c *SQLCatalog) Update(ctx context.Context, rec agentos.Record) error {
	deps, cfg, meta, err := encodeBags(rec)
	if err != nil {
		return err
	}
	result, err := c.db.ExecContext(ctx, `
		UPDATE modules SET version = ?, type = ?, path = ?, dependencies = ?,
		       enabled = ?, status = ?, error = ?, config = ?, metadata = ?,
		       updated_at = ?
		WHERE name = ?`,
		rec.Version, string(rec.Type), rec.Path, deps, rec.Enabled,
		string(rec.Status), rec.Error, cfg, meta, time.Now().UTC(), rec.Name)
	if err != nil {
		return fmt.Errorf("failed to update catalog record %q: %w", rec.Name, err)
	}
	return requireRow(result, rec.Name)
}

func (c *SQLCatalog) SetEnabled(ctx context.Context, name string, enabled bool) error {
	result, err := c.db.ExecContext(ctx,
		`UPDATE modules SET enabled = ?, updated_at = ? WHERE name = ?`,
		enabled, time.Now().UTC(), name)
	if err != nil {
		return fmt.Errorf("failed to set enabled for %q: %w", name, err)
	}
	return requireRow(result, name)
}

func (c *SQLCatalog) SetStatus(ctx context.Context, name string, status agentos.ModuleStatus, errMsg string) error {
	result, err := c.db.ExecContext(ctx,
		`UPDATE modules SET status = ?, error = ?, updated_at = ? WHERE name = ?`,
		string(status), errMsg, time.Now().UTC(), name)
	if err != nil {
		return fmt.Errorf("failed to set status for %q: %w", name, err)
	}
	return requireRow(result, name)
}

func requireRow(result sql.Result, name string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", agentos.ErrCatalogNotFound, name)
	}
	return nil
}

func encodeBags(rec agentos.Record) (deps, cfg, meta string, err error) {
	d, err := json.Marshal(orEmptySlice(rec.Dependencies))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode dependencies for %q: %w", rec.Name, err)
	}
	c, err := json.Marshal(orEmptyMap(rec.Config))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode config for %q: %w", rec.Name, err)
	}
	m, err := json.Marshal(orEmptyMap(rec.Metadata))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode metadata for %q: %w", rec.Name, err)
	}
	return string(d), string(c), string(m), nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (agentos.Record, error) {
	var rec agentos.Record
	var typ, status, deps, cfg, meta string
	if err := row.Scan(&rec.Name, &rec.Version, &typ, &rec.Path, &deps, &rec.Enabled,
		&status, &rec.Error, &cfg, &meta, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return agentos.Record{}, err
	}
	rec.Type = agentos.ModuleType(typ)
	rec.Status = agentos.ModuleStatus(status)
	if err := json.Unmarshal([]byte(deps), &rec.Dependencies); err != nil {
		return agentos.Record{}, fmt.Errorf("corrupt dependencies column for %q: %w", rec.Name, err)
	}
	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return agentos.Record{}, fmt.Errorf("corrupt config column for %q: %w", rec.Name, err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return agentos.Record{}, fmt.Errorf("corrupt metadata column for %q: %w", rec.Name, err)
	}
	if len(rec.Dependencies) == 0 {
		rec.Dependencies = nil
	}
	return rec, nil
}
