package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgsqlite/pgsqlite/shadow"
)

// fakeEnums is a minimal EnumLookup for tests that don't need a real
// *shadow.Store (most CREATE TABLE cases reference no ENUM columns).
type fakeEnums map[string]shadow.EnumType

func (f fakeEnums) EnumByName(name string) (shadow.EnumType, string, bool, error) {
	e, ok := f[name]
	if !ok {
		return shadow.EnumType{}, "", false, nil
	}
	return e, "[]", true, nil
}

func TestTranslateCreateTable_Basic(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE users (id SERIAL PRIMARY KEY, name TEXT NOT NULL, age INTEGER)`, fakeEnums{})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE", plan.Kind)
	assert.Equal(t, "users", plan.Table)
	require.Len(t, plan.Columns, 3)
	assert.Equal(t, "id", plan.Columns[0].Column)
	assert.Contains(t, plan.SQLiteSQL, "INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, plan.SQLiteSQL, "name TEXT NOT NULL")
}

func TestTranslateCreateTable_DropsRedundantTableLevelPrimaryKey(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE widgets (id SERIAL, label TEXT, PRIMARY KEY (id))`, fakeEnums{})
	require.NoError(t, err)
	// Only one AUTOINCREMENT clause should appear; the table-level
	// PRIMARY KEY(id) naming the same SERIAL column is dropped.
	assert.Equal(t, 1, countOccurrences(plan.SQLiteSQL, "AUTOINCREMENT"))
	assert.NotContains(t, plan.SQLiteSQL, "PRIMARY KEY (id)")
}

func TestTranslateCreateTable_KeepsUnrelatedTableConstraint(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE line_items (order_id INTEGER, product_id INTEGER, UNIQUE (order_id, product_id))`, fakeEnums{})
	require.NoError(t, err)
	assert.Contains(t, plan.SQLiteSQL, "UNIQUE (order_id, product_id)")
}

func TestTranslateCreateTable_ArrayColumnRegistersAsText(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE tags_demo (id INTEGER, tags INTEGER[])`, fakeEnums{})
	require.NoError(t, err)
	require.Len(t, plan.ArrayCols, 1)
	assert.Equal(t, "tags", plan.ArrayCols[0].Column)
	var tagsCol *shadow.Column
	for i := range plan.Columns {
		if plan.Columns[i].Column == "tags" {
			tagsCol = &plan.Columns[i]
		}
	}
	require.NotNil(t, tagsCol)
	assert.Equal(t, "TEXT", tagsCol.SQLiteType)
}

func TestTranslateCreateTable_EnumColumnGetsTriggers(t *testing.T) {
	enums := fakeEnums{
		"mood": {Name: "mood", Labels: []string{"happy", "sad"}},
	}
	plan, err := TranslateCreateTable(`CREATE TABLE people (id INTEGER, current_mood mood)`, enums)
	require.NoError(t, err)
	require.Len(t, plan.EnumUsages, 1)
	assert.Equal(t, "mood", plan.EnumUsages[0].TypeName)
	assert.NotEmpty(t, plan.Triggers)
	for _, trig := range plan.Triggers {
		assert.Contains(t, trig, "RAISE(ABORT")
	}
}

func TestTranslateCreateTable_RewritesNowDefault(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE events (id INTEGER, created_at TIMESTAMP DEFAULT NOW())`, fakeEnums{})
	require.NoError(t, err)
	assert.Contains(t, plan.SQLiteSQL, "strftime('%s','now')")
	assert.NotContains(t, plan.SQLiteSQL, "NOW()")
}

func TestTranslateCreateTable_MultiWordType(t *testing.T) {
	plan, err := TranslateCreateTable(`CREATE TABLE prices (id INTEGER, amount DOUBLE PRECISION NOT NULL)`, fakeEnums{})
	require.NoError(t, err)
	assert.Contains(t, plan.SQLiteSQL, "amount REAL NOT NULL")
}

func TestTranslateCreateTable_RejectsNonCreateTable(t *testing.T) {
	_, err := TranslateCreateTable(`SELECT 1`, fakeEnums{})
	assert.Error(t, err)
}

func TestTranslateCreateType_AsEnum(t *testing.T) {
	plan, err := TranslateCreateType(`CREATE TYPE mood AS ENUM ('happy', 'sad', 'meh')`)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TYPE", plan.Kind)
	require.NotNil(t, plan.Enum)
	assert.Equal(t, "mood", plan.Enum.Name)
	assert.Equal(t, []string{"happy", "sad", "meh"}, plan.Enum.Labels)
}

func TestTranslateAlterTypeAddValue_RebuildsTriggers(t *testing.T) {
	current := shadow.EnumType{Name: "mood", Labels: []string{"happy", "sad"}}
	usages := []shadow.EnumColumnUsage{{Table: "people", Column: "current_mood"}}
	plan, err := TranslateAlterTypeAddValue(`ALTER TYPE mood ADD VALUE 'meh'`, current, usages)
	require.NoError(t, err)
	require.NotNil(t, plan.Enum)
	assert.Equal(t, []string{"happy", "sad", "meh"}, plan.Enum.Labels)
	assert.NotEmpty(t, plan.Triggers)
}

func TestTranslateDropTable(t *testing.T) {
	plan, err := TranslateDropTable(`DROP TABLE widgets`)
	require.NoError(t, err)
	assert.Equal(t, "widgets", plan.DropTable)
}

func TestTranslateAlterTable_AddColumn(t *testing.T) {
	plan, err := TranslateAlterTable(`ALTER TABLE users ADD COLUMN nickname TEXT`)
	require.NoError(t, err)
	assert.True(t, plan.AddColumn)
	require.Len(t, plan.Columns, 1)
	assert.Equal(t, "nickname", plan.Columns[0].Column)
}

func TestTranslateAlterTable_RenameTo(t *testing.T) {
	plan, err := TranslateAlterTable(`ALTER TABLE users RENAME TO accounts`)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"users", "accounts"}, plan.RenameTable)
}

func TestTranslateAlterTable_RenameColumn(t *testing.T) {
	plan, err := TranslateAlterTable(`ALTER TABLE users RENAME COLUMN name TO full_name`)
	require.NoError(t, err)
	assert.Equal(t, "users", plan.RenameColumn.Table)
	assert.Equal(t, "name", plan.RenameColumn.From)
	assert.Equal(t, "full_name", plan.RenameColumn.To)
}

func TestIsDDL(t *testing.T) {
	assert.True(t, IsDDL("CREATE TABLE t (id INTEGER)"))
	assert.True(t, IsDDL("  alter table t add column x text"))
	assert.True(t, IsDDL("DROP TYPE mood"))
	assert.False(t, IsDDL("SELECT 1"))
	assert.False(t, IsDDL("INSERT INTO t VALUES (1)"))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
