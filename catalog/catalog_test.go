package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgsqlite/pgsqlite/shadow"
)

type fakeSchema struct {
	tables  []string
	columns map[string][]shadow.Column
}

func (f fakeSchema) UserTables() ([]string, error) { return f.tables, nil }

func (f fakeSchema) Columns(table string) ([]shadow.Column, error) {
	return f.columns[table], nil
}

func (f fakeSchema) EnumByName(name string) (shadow.EnumType, string, bool, error) {
	return shadow.EnumType{}, "", false, nil
}

func TestRecognize_KnownRelations(t *testing.T) {
	rel, name, ok := Recognize("SELECT * FROM pg_catalog.pg_class WHERE relkind = 'r'")
	require.True(t, ok)
	assert.Equal(t, RelPgClass, rel)
	assert.Equal(t, "pg_catalog.pg_class", name)

	rel, _, ok = Recognize("SELECT * FROM information_schema.columns")
	require.True(t, ok)
	assert.Equal(t, RelInfoColumns, rel)
}

func TestRecognize_UnrelatedQueryFallsThrough(t *testing.T) {
	_, _, ok := Recognize("SELECT * FROM users")
	assert.False(t, ok)

	_, _, ok = Recognize("INSERT INTO pg_class VALUES (1)")
	assert.False(t, ok)
}

func TestSynthesize_PgClassListsUserTables(t *testing.T) {
	schema := fakeSchema{tables: []string{"users", "orders"}}
	rows, cols, err := Synthesize(RelPgClass, "SELECT * FROM pg_class", schema)
	require.NoError(t, err)
	assert.Contains(t, cols, "relname")
	require.Len(t, rows, 2)
	assert.Equal(t, "users", rows[0]["relname"])
}

func TestSynthesize_PgClassFiltersByEquality(t *testing.T) {
	schema := fakeSchema{tables: []string{"users", "orders"}}
	rows, _, err := Synthesize(RelPgClass, "SELECT * FROM pg_class WHERE relname = 'orders'", schema)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "orders", rows[0]["relname"])
}

func TestSynthesize_UnknownWhereColumnIsFeatureNotSupported(t *testing.T) {
	schema := fakeSchema{tables: []string{"users"}}
	_, _, err := Synthesize(RelPgClass, "SELECT * FROM pg_class WHERE reltuples > 10", schema)
	assert.Error(t, err)
}

func TestSynthesize_InfoColumnsJoinsShadowColumns(t *testing.T) {
	schema := fakeSchema{
		tables: []string{"users"},
		columns: map[string][]shadow.Column{
			"users": {
				{Table: "users", Column: "id", PgType: 23, SQLiteType: "INTEGER", Ordinal: 0},
				{Table: "users", Column: "name", PgType: 25, SQLiteType: "TEXT", Ordinal: 1},
			},
		},
	}
	rows, cols, err := Synthesize(RelInfoColumns, "SELECT * FROM information_schema.columns WHERE table_name = 'users'", schema)
	require.NoError(t, err)
	assert.Contains(t, cols, "column_name")
	require.Len(t, rows, 2)
}

func TestSynthesize_PgIndexAndConstraintReturnEmptySet(t *testing.T) {
	schema := fakeSchema{}
	rows, _, err := Synthesize(RelPgIndex, "SELECT * FROM pg_index", schema)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, _, err = Synthesize(RelPgConstraint, "SELECT * FROM pg_constraint", schema)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
