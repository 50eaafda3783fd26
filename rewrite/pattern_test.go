package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecognize_SelectByPK(t *testing.T) {
	h := Recognize("SELECT * FROM users WHERE id = 1", "users", "id")
	assert.Equal(t, PatternSelectByPK, h.Pattern)
	assert.True(t, h.UseFastPath)
}

func TestRecognize_SelectByPKRejectsCompoundWhere(t *testing.T) {
	h := Recognize("SELECT * FROM users WHERE id = 1 AND active = true", "users", "id")
	assert.Equal(t, PatternSimpleSelect, h.Pattern)
}

func TestRecognize_Join(t *testing.T) {
	h := Recognize("SELECT * FROM a JOIN b ON a.id = b.a_id", "a", "id")
	assert.Equal(t, PatternJoin, h.Pattern)
	assert.False(t, h.UseFastPath)
}

func TestRecognize_Aggregate(t *testing.T) {
	h := Recognize("SELECT COUNT(*) FROM users", "users", "id")
	assert.Equal(t, PatternAggregate, h.Pattern)
}

func TestRecognize_InsertBatch(t *testing.T) {
	h := Recognize("INSERT INTO users (name) VALUES ('a'),('b')", "users", "id")
	assert.Equal(t, PatternInsertBatch, h.Pattern)
}

func TestRecognize_InsertSingle(t *testing.T) {
	h := Recognize("INSERT INTO users (name) VALUES ('a')", "users", "id")
	assert.Equal(t, PatternInsertSingle, h.Pattern)
	assert.True(t, h.UseFastPath)
}

func TestRecognize_Catalog(t *testing.T) {
	h := Recognize("SELECT * FROM pg_catalog.pg_type", "pg_type", "")
	assert.Equal(t, PatternCatalog, h.Pattern)
}

func TestQueryPatternString(t *testing.T) {
	assert.Equal(t, "select_by_pk", PatternSelectByPK.String())
	assert.Equal(t, "unknown", PatternUnknown.String())
}
