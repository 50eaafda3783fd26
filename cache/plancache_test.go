package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCache_PutGet(t *testing.T) {
	c := NewPlanCache(10, time.Minute)
	c.Put(1, &PlanEntry{StatementDigest: "SELECT 1", TableRefs: []string{"users"}})

	entry, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", entry.StatementDigest)
	assert.EqualValues(t, 1, entry.Hits)
}

func TestPlanCache_InvalidateTableDropsReferencingEntries(t *testing.T) {
	c := NewPlanCache(10, time.Minute)
	c.Put(1, &PlanEntry{TableRefs: []string{"users"}})
	c.Put(2, &PlanEntry{TableRefs: []string{"orders"}})

	c.InvalidateTable("users")

	_, ok := c.Get(1)
	assert.False(t, ok)
	_, ok = c.Get(2)
	assert.True(t, ok)
}

func TestPlanCache_Len(t *testing.T) {
	c := NewPlanCache(10, time.Minute)
	assert.Equal(t, 0, c.Len())
	c.Put(1, &PlanEntry{})
	assert.Equal(t, 1, c.Len())
}
