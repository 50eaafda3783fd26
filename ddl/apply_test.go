package ddl

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/shadow"
)

func openTestDB(t *testing.T) (*sql.DB, *shadow.Store) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := shadow.New(db)
	require.NoError(t, st.Init())
	return db, st
}

func TestDispatch_CreateTableEndToEnd(t *testing.T) {
	db, store := openTestDB(t)
	plans := cache.NewPlanCache(10, 0)
	schema := cache.NewSchemaCache()

	plan, err := Dispatch(`CREATE TABLE accounts (id SERIAL PRIMARY KEY, balance NUMERIC(10,2))`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, plan))

	cols, err := store.Columns("accounts")
	require.NoError(t, err)
	require.Len(t, cols, 2)

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='accounts'").Scan(&count))
	require.Equal(t, 1, count)
}

func TestDispatch_CreateTypeThenAlterTypeAddValue(t *testing.T) {
	db, store := openTestDB(t)
	plans := cache.NewPlanCache(10, 0)
	schema := cache.NewSchemaCache()

	createType, err := Dispatch(`CREATE TYPE mood AS ENUM ('happy', 'sad')`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, createType))

	createTable, err := Dispatch(`CREATE TABLE people (id INTEGER, current_mood mood)`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, createTable))

	_, err = db.Exec(`INSERT INTO people (id, current_mood) VALUES (1, 'happy')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people (id, current_mood) VALUES (2, 'furious')`)
	require.Error(t, err, "trigger should reject a label outside the enum's set")

	addValue, err := Dispatch(`ALTER TYPE mood ADD VALUE 'furious'`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, addValue))

	_, err = db.Exec(`INSERT INTO people (id, current_mood) VALUES (3, 'furious')`)
	require.NoError(t, err, "trigger should accept the newly added label")
}

func TestDispatch_DropTableRemovesShadowRows(t *testing.T) {
	db, store := openTestDB(t)
	plans := cache.NewPlanCache(10, 0)
	schema := cache.NewSchemaCache()

	createTable, err := Dispatch(`CREATE TABLE widgets (id INTEGER, label TEXT)`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, createTable))

	dropTable, err := Dispatch(`DROP TABLE widgets`, store)
	require.NoError(t, err)
	require.NoError(t, Apply(db, store, plans, schema, dropTable))

	cols, err := store.Columns("widgets")
	require.NoError(t, err)
	require.Empty(t, cols)
}

func TestDispatch_UnsupportedStatement(t *testing.T) {
	_, store := openTestDB(t)
	_, err := Dispatch(`CREATE SEQUENCE foo`, store)
	require.Error(t, err)
}
