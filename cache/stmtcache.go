package cache

import (
	"sync"
	"time"
)

// ResultSize classifies the expected row count of a statement, used
// by the pattern recognizer (rewrite package) and stored here so the
// executor can pick batch sizes without re-deriving it.
type ResultSize int

const (
	ResultEmpty ResultSize = iota
	ResultSingle
	ResultSmall
	ResultMedium
	ResultLarge
	ResultUnknown
)

// Complexity classifies how much translation work a statement needs.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityMedium
	ComplexityComplex
)

// StmtEntry is one prepared-statement cache entry (spec.md §3).
type StmtEntry struct {
	ColumnNames        []string
	PgColumnTypes      []uint32
	ParamCount         int
	IsSelect           bool
	Complexity         Complexity
	ExpectedResultSize ResultSize
	UseFastPath        bool
	CacheResults       bool
	Pattern            string
	PriorityScore      float64
	CreatedAt          time.Time
	LastUsed           time.Time
	Hits               int64
}

// score implements spec.md §3's composite eviction score:
// priority_score * (1+hits) / (1+age_hours).
func (e *StmtEntry) score(now time.Time) float64 {
	ageHours := now.Sub(e.CreatedAt).Hours()
	return e.PriorityScore * float64(1+e.Hits) / (1 + ageHours)
}

// StmtCache is the prepared-statement metadata cache (spec.md §4.C
// item 3). Its eviction is scored, not pure-recency, so it is
// hand-rolled over a map+mutex rather than expressed with the
// expirable LRU used for the plan/row-descriptor caches (see
// DESIGN.md).
type StmtCache struct {
	mu         sync.Mutex
	entries    map[uint64]*StmtEntry
	capacity   int
	pinWindow  time.Duration
}

func NewStmtCache(capacity int) *StmtCache {
	return &StmtCache{
		entries:   make(map[uint64]*StmtEntry),
		capacity:  capacity,
		pinWindow: 30 * time.Second,
	}
}

func (c *StmtCache) Get(fp uint64) (*StmtEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fp]
	if ok {
		e.Hits++
		e.LastUsed = time.Now()
	}
	return e, ok
}

func (c *StmtCache) Put(fp uint64, entry *StmtEntry) {
	now := time.Now()
	entry.CreatedAt = now
	entry.LastUsed = now

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.capacity {
		c.evictLocked(now)
	}
	c.entries[fp] = entry
}

// evictLocked drops the lowest-scoring entry, skipping any entry hit
// within the pin window (original_source/src/optimization/
// statement_cache_optimizer.rs's "pin recently hit" rule).
func (c *StmtCache) evictLocked(now time.Time) {
	var victimFP uint64
	var victimScore float64
	found := false

	for fp, e := range c.entries {
		if now.Sub(e.LastUsed) < c.pinWindow {
			continue
		}
		s := e.score(now)
		if !found || s < victimScore {
			victimFP, victimScore, found = fp, s, true
		}
	}
	if !found {
		// Every entry is pinned; fall back to the globally lowest score.
		for fp, e := range c.entries {
			s := e.score(now)
			if !found || s < victimScore {
				victimFP, victimScore, found = fp, s, true
			}
		}
	}
	if found {
		delete(c.entries, victimFP)
	}
}

func (c *StmtCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
