package cache

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// FieldDescription is the wire RowDescription field shape (component
// A/E/F/G all build these; kept here independent of the protocol
// library type so this package has no dependency on pgproto3).
type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnAttrNo int16
	DataTypeOID  oidinfo.OID
	DataTypeSize int16
	TypeModifier int32
	Format       int16
}

// RowDescKey is the composite key from spec.md §3: (normalized_sql,
// optional_table, column_names[]). Normalization MUST use the same
// function as the fingerprint generator (cache.Normalize) per the
// Open Question spec.md §9 flags — this repo resolves that question
// by sharing the one Normalize function for both cache keys.
type RowDescKey struct {
	NormalizedSQL string
	Table         string
	Columns       string // column_names joined with \x00, see NewRowDescKey
}

func NewRowDescKey(sql, table string, columns []string) RowDescKey {
	return RowDescKey{
		NormalizedSQL: Normalize(sql, false),
		Table:         table,
		Columns:       strings.Join(columns, "\x00"),
	}
}

// RowDescCache is the row-descriptor cache of spec.md §4.C item 4:
// TTL + LRU, preferred over recomputing type OIDs per query.
type RowDescCache struct {
	lru *lru.LRU[RowDescKey, []FieldDescription]
}

func NewRowDescCache(capacity int, ttl time.Duration) *RowDescCache {
	return &RowDescCache{lru: lru.NewLRU[RowDescKey, []FieldDescription](capacity, nil, ttl)}
}

func (c *RowDescCache) Get(key RowDescKey) ([]FieldDescription, bool) {
	return c.lru.Get(key)
}

func (c *RowDescCache) Put(key RowDescKey, fields []FieldDescription) {
	c.lru.Add(key, fields)
}

func (c *RowDescCache) Len() int { return c.lru.Len() }
