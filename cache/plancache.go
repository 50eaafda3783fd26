package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// PlanEntry is one plan-cache entry (spec.md §3).
type PlanEntry struct {
	FingerprintHash uint64
	StatementDigest string
	ParamTypeOIDs   []oidinfo.OID
	ColumnTypeOIDs  []oidinfo.OID
	TableRefs       []string
	RewrittenSQL    string // SQL to execute; the input SQL unchanged when the fast path applied
	HasNumericCols  bool
	CreatedAt       time.Time
	LastUsed        time.Time
	Hits            int64
}

// PlanCache is the fingerprint -> rewritten-SQL-plus-type-info cache
// from spec.md §4.C item 1: TTL and capacity configurable, evicts the
// oldest last_used entry on overflow (the expirable LRU's own
// least-recently-used eviction matches this directly), and is
// invalidated by table name on DDL.
type PlanCache struct {
	mu      sync.RWMutex
	byTable map[string]map[uint64]struct{}
	lru     *lru.LRU[uint64, *PlanEntry]
}

func NewPlanCache(capacity int, ttl time.Duration) *PlanCache {
	return &PlanCache{
		byTable: make(map[string]map[uint64]struct{}),
		lru:     lru.NewLRU[uint64, *PlanEntry](capacity, nil, ttl),
	}
}

func (c *PlanCache) Get(fp uint64) (*PlanEntry, bool) {
	e, ok := c.lru.Get(fp)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	e.Hits++
	e.LastUsed = time.Now()
	c.mu.Unlock()
	return e, true
}

func (c *PlanCache) Put(fp uint64, entry *PlanEntry) {
	now := time.Now()
	entry.FingerprintHash = fp
	entry.CreatedAt = now
	entry.LastUsed = now

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fp, entry)
	for _, t := range entry.TableRefs {
		set, ok := c.byTable[t]
		if !ok {
			set = make(map[uint64]struct{})
			c.byTable[t] = set
		}
		set[fp] = struct{}{}
	}
}

// InvalidateTable drops every plan entry referencing table, as
// required after ALTER TABLE (Testable Property 6).
func (c *PlanCache) InvalidateTable(table string) {
	c.mu.Lock()
	fps := c.byTable[table]
	delete(c.byTable, table)
	c.mu.Unlock()

	for fp := range fps {
		c.lru.Remove(fp)
	}
}

func (c *PlanCache) Len() int { return c.lru.Len() }
