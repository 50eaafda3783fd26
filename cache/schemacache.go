package cache

import (
	"sync"
	"time"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// ColumnInfo is the per-column metadata the schema cache holds for a
// table, derived from the shadow schema (component B).
type ColumnInfo struct {
	Name         string
	PgType       oidinfo.OID
	TypeModifier int32
}

// SchemaEntry is the per-table cache payload (spec.md §3: "table ->
// {columns[], has_any_numeric_column_bit}").
type SchemaEntry struct {
	Columns           []ColumnInfo
	HasNumericColumn  bool
}

// Loader fetches a table's schema from the shadow store on a cache
// miss.
type Loader func(table string) (SchemaEntry, error)

// SchemaCache is the lazy-per-table cache of spec.md §4.C item 2: a
// cooperative "loading" set prevents duplicate concurrent loads for
// the same table; other callers block on the loader's done channel up
// to a fixed timeout and report a miss if it expires (grounded on
// original_source/src/cache/lazy_schema_loader.rs).
type SchemaCache struct {
	mu          sync.RWMutex
	entries     map[string]SchemaEntry
	loading     map[string]chan struct{}
	allLoaded   bool
	pollEvery   time.Duration
	pollTimeout time.Duration
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{
		entries:     make(map[string]SchemaEntry),
		loading:     make(map[string]chan struct{}),
		pollEvery:   2 * time.Millisecond,
		pollTimeout: 500 * time.Millisecond,
	}
}

// Get returns the cached schema for table, loading it via load on a
// miss. Concurrent callers for the same table block on the first
// loader's result (or time out and report a miss rather than issuing
// a duplicate load, per spec.md §5's ordering guarantees).
func (c *SchemaCache) Get(table string, load Loader) (SchemaEntry, bool, error) {
	c.mu.RLock()
	if e, ok := c.entries[table]; ok {
		c.mu.RUnlock()
		return e, true, nil
	}
	waitCh, isLoading := c.loading[table]
	c.mu.RUnlock()

	if isLoading {
		return c.waitForLoad(table, waitCh)
	}

	c.mu.Lock()
	if e, ok := c.entries[table]; ok {
		c.mu.Unlock()
		return e, true, nil
	}
	if waitCh, isLoading = c.loading[table]; isLoading {
		c.mu.Unlock()
		return c.waitForLoad(table, waitCh)
	}
	done := make(chan struct{})
	c.loading[table] = done
	c.mu.Unlock()

	entry, err := load(table)

	c.mu.Lock()
	delete(c.loading, table)
	if err == nil {
		c.entries[table] = entry
	}
	close(done)
	c.mu.Unlock()

	if err != nil {
		return SchemaEntry{}, false, err
	}
	return entry, true, nil
}

func (c *SchemaCache) waitForLoad(table string, done chan struct{}) (SchemaEntry, bool, error) {
	select {
	case <-done:
		c.mu.RLock()
		e, ok := c.entries[table]
		c.mu.RUnlock()
		return e, ok, nil
	case <-time.After(c.pollTimeout):
		// Bounded poll exhausted: treat as a miss rather than issue a
		// second concurrent load (spec.md §5).
		return SchemaEntry{}, false, nil
	}
}

// Invalidate drops the cached entry for table (called after
// ALTER/DROP, per spec.md §4.B: writes invalidate the schema cache
// for the affected table).
func (c *SchemaCache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.entries, table)
	c.mu.Unlock()
}

// Preload bulk-installs entries and marks "all tables loaded".
func (c *SchemaCache) Preload(entries map[string]SchemaEntry) {
	c.mu.Lock()
	for t, e := range entries {
		c.entries[t] = e
	}
	c.allLoaded = true
	c.mu.Unlock()
}

// AllLoaded reports whether Preload has run.
func (c *SchemaCache) AllLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLoaded
}
