package shadow

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := New(db)
	require.NoError(t, st.Init())
	return db, st
}

func TestInit_IsIdempotent(t *testing.T) {
	_, st := openTestStore(t)
	require.NoError(t, st.Init())
	require.NoError(t, st.Init())
}

func TestRegisterTableAndColumns(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)

	cols := []Column{
		{Column: "id", PgType: 23, SQLiteType: "INTEGER", TypeModifier: -1, Ordinal: 0},
		{Column: "name", PgType: 25, SQLiteType: "TEXT", TypeModifier: -1, Ordinal: 1},
	}
	require.NoError(t, st.RegisterTable(tx, "users", cols))
	require.NoError(t, tx.Commit())

	got, err := st.Columns("users")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "id", got[0].Column)
	require.Equal(t, "name", got[1].Column)

	col, ok, err := st.Column("users", "name")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 25, col.PgType)

	_, ok, err = st.Column("users", "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDropTable_RemovesColumnsEnumUsageAndArrays(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterTable(tx, "users", []Column{{Column: "id", PgType: 23, SQLiteType: "INTEGER"}}))
	require.NoError(t, st.RegisterEnumUsage(tx, "users", "status", "mood"))
	require.NoError(t, st.RegisterArrayColumn(tx, ArrayColumn{Table: "users", Column: "tags", ElementOID: 25, Dimensions: 1}))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.DropTable(tx, "users"))
	require.NoError(t, tx.Commit())

	cols, err := st.Columns("users")
	require.NoError(t, err)
	require.Empty(t, cols)

	_, ok, err := st.EnumUsage("users", "status")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = st.ArrayColumnInfo("users", "tags")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddColumn(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterTable(tx, "users", []Column{{Column: "id", PgType: 23, SQLiteType: "INTEGER"}}))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.AddColumn(tx, "users", Column{Column: "email", PgType: 25, SQLiteType: "TEXT", Ordinal: 1}))
	require.NoError(t, tx.Commit())

	cols, err := st.Columns("users")
	require.NoError(t, err)
	require.Len(t, cols, 2)
}

func TestRenameColumn_PropagatesToEnumUsage(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterTable(tx, "users", []Column{{Column: "status", PgType: 25, SQLiteType: "TEXT"}}))
	require.NoError(t, st.RegisterEnumUsage(tx, "users", "status", "mood"))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RenameColumn(tx, "users", "status", "mood_state"))
	require.NoError(t, tx.Commit())

	_, ok, err := st.Column("users", "mood_state")
	require.NoError(t, err)
	require.True(t, ok)

	typeName, ok, err := st.EnumUsage("users", "mood_state")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "mood", typeName)
}

func TestRenameTable_PropagatesAcrossShadowTables(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterTable(tx, "users", []Column{{Column: "id", PgType: 23, SQLiteType: "INTEGER"}}))
	require.NoError(t, st.RegisterEnumUsage(tx, "users", "status", "mood"))
	require.NoError(t, st.RegisterArrayColumn(tx, ArrayColumn{Table: "users", Column: "tags", ElementOID: 25}))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RenameTable(tx, "users", "accounts"))
	require.NoError(t, tx.Commit())

	cols, err := st.Columns("accounts")
	require.NoError(t, err)
	require.Len(t, cols, 1)

	_, ok, err := st.EnumUsage("accounts", "status")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = st.ArrayColumnInfo("accounts", "tags")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterAndLookupEnum(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterEnum(tx, EnumType{OID: 16500, Name: "mood"}, `["sad","happy"]`))
	require.NoError(t, tx.Commit())

	e, labelsJSON, ok, err := st.EnumByName("mood")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 16500, e.OID)
	require.Equal(t, `["sad","happy"]`, labelsJSON)

	_, _, ok, err = st.EnumByName("ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUsagesOfEnumAndDropEnum(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterEnum(tx, EnumType{OID: 16500, Name: "mood"}, `["sad","happy"]`))
	require.NoError(t, st.RegisterEnumUsage(tx, "users", "status", "mood"))
	require.NoError(t, st.RegisterEnumUsage(tx, "pets", "temperament", "mood"))
	require.NoError(t, tx.Commit())

	usages, err := st.UsagesOfEnum("mood")
	require.NoError(t, err)
	require.Len(t, usages, 2)

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.DropEnum(tx, "mood"))
	require.NoError(t, tx.Commit())

	_, _, ok, err := st.EnumByName("mood")
	require.NoError(t, err)
	require.False(t, ok)

	usages, err = st.UsagesOfEnum("mood")
	require.NoError(t, err)
	require.Empty(t, usages)
}

func TestUserTables_ExcludesSqliteAndShadowTables(t *testing.T) {
	db, st := openTestStore(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, st.RegisterTable(tx, "users", []Column{{Column: "id", PgType: 23, SQLiteType: "INTEGER"}}))
	require.NoError(t, st.RegisterTable(tx, "orders", []Column{{Column: "id", PgType: 23, SQLiteType: "INTEGER"}}))
	require.NoError(t, tx.Commit())

	tables, err := st.UserTables()
	require.NoError(t, err)
	require.Equal(t, []string{"orders", "users"}, tables)
}
