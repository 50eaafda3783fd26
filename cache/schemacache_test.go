package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCache_GetLoadsOnMiss(t *testing.T) {
	c := NewSchemaCache()
	var loads int32
	load := func(table string) (SchemaEntry, error) {
		atomic.AddInt32(&loads, 1)
		return SchemaEntry{Columns: []ColumnInfo{{Name: "id"}}}, nil
	}

	entry, ok, err := c.Get("users", load)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, entry.Columns, 1)
	assert.EqualValues(t, 1, loads)

	_, ok, err = c.Get("users", load)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, loads, "second Get should hit the cache, not reload")
}

func TestSchemaCache_ConcurrentGetsShareOneLoad(t *testing.T) {
	c := NewSchemaCache()
	var loads int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get("users", func(table string) (SchemaEntry, error) {
				atomic.AddInt32(&loads, 1)
				return SchemaEntry{}, nil
			})
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, loads)
}

func TestSchemaCache_Invalidate(t *testing.T) {
	c := NewSchemaCache()
	c.Get("users", func(table string) (SchemaEntry, error) { return SchemaEntry{}, nil })
	c.Invalidate("users")

	var loads int32
	c.Get("users", func(table string) (SchemaEntry, error) {
		atomic.AddInt32(&loads, 1)
		return SchemaEntry{}, nil
	})
	assert.EqualValues(t, 1, loads, "invalidated table should reload on next Get")
}

func TestSchemaCache_PreloadMarksAllLoaded(t *testing.T) {
	c := NewSchemaCache()
	assert.False(t, c.AllLoaded())
	c.Preload(map[string]SchemaEntry{"users": {}})
	assert.True(t, c.AllLoaded())

	entry, ok, err := c.Get("users", func(table string) (SchemaEntry, error) {
		t := SchemaEntry{HasNumericColumn: true}
		return t, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, entry.HasNumericColumn, "preloaded entry should be returned without invoking the loader")
}
