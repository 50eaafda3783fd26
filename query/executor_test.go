package query

import (
	"database/sql"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/shadow"
)

// newTestExecutor wires an Executor against a fresh in-memory sqlite3
// database, the same way server.New does for a real connection.
func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := shadow.New(db)
	require.NoError(t, st.Init())

	return &Executor{
		DB:     db,
		Shadow: st,
		Plans:  cache.NewPlanCache(100, 0),
		Schema: cache.NewSchemaCache(),
		Stmts:  cache.NewStmtCache(100),
		Descs:  cache.NewRowDescCache(100, 0),
	}
}

// pipeBackend gives HandleSimpleQuery/extended handlers a
// *pgproto3.Backend driven over an in-process net.Pipe, with a
// pgproto3.Frontend on the test's side to read back what the executor
// sends — the same client/server split server.Conn uses over a real
// net.Conn, just without the TCP listener in between.
func pipeBackend(t *testing.T) (*pgproto3.Backend, *pgproto3.Frontend) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })
	backend := pgproto3.NewBackend(pgproto3.NewChunkReader(serverConn), serverConn)
	frontend := pgproto3.NewFrontend(pgproto3.NewChunkReader(clientConn), clientConn)
	return backend, frontend
}

func TestHandleSimpleQuery_CreateTableThenInsertAndSelect(t *testing.T) {
	e := newTestExecutor(t)
	backend, frontend := pipeBackend(t)
	sess := NewSession()

	run := func(sql string) {
		done := make(chan error, 1)
		go func() { done <- e.HandleSimpleQuery(sess, &pgproto3.Query{String: sql}, backend) }()
		for {
			msg, err := frontend.Receive()
			require.NoError(t, err)
			if _, ok := msg.(*pgproto3.CommandComplete); ok {
				break
			}
		}
		require.NoError(t, <-done)
	}

	run(`CREATE TABLE users (id SERIAL PRIMARY KEY, name TEXT NOT NULL)`)
	run(`INSERT INTO users (name) VALUES ('alice')`)

	go func() {
		_ = e.HandleSimpleQuery(sess, &pgproto3.Query{String: `SELECT id, name FROM users`}, backend)
	}()

	msg, err := frontend.Receive()
	require.NoError(t, err)
	rowDesc, ok := msg.(*pgproto3.RowDescription)
	require.True(t, ok, "expected RowDescription, got %T", msg)
	require.Len(t, rowDesc.Fields, 2)

	msg, err = frontend.Receive()
	require.NoError(t, err)
	dataRow, ok := msg.(*pgproto3.DataRow)
	require.True(t, ok, "expected DataRow, got %T", msg)
	require.Equal(t, "alice", string(dataRow.Values[1]))

	msg, err = frontend.Receive()
	require.NoError(t, err)
	_, ok = msg.(*pgproto3.CommandComplete)
	require.True(t, ok)
}

func TestHandleSimpleQuery_ProjectsShadowSchemaOIDsNotSQLiteAffinity(t *testing.T) {
	e := newTestExecutor(t)
	backend, frontend := pipeBackend(t)
	sess := NewSession()

	run := func(sql string) {
		done := make(chan error, 1)
		go func() { done <- e.HandleSimpleQuery(sess, &pgproto3.Query{String: sql}, backend) }()
		for {
			msg, err := frontend.Receive()
			require.NoError(t, err)
			if _, ok := msg.(*pgproto3.CommandComplete); ok {
				break
			}
		}
		require.NoError(t, <-done)
	}

	run(`CREATE TABLE users (id SERIAL PRIMARY KEY, name VARCHAR(40) NOT NULL, active BOOLEAN NOT NULL)`)
	run(`INSERT INTO users (name, active) VALUES ('alice', true)`)

	go func() {
		_ = e.HandleSimpleQuery(sess, &pgproto3.Query{String: `SELECT id, name, active FROM users`}, backend)
	}()

	msg, err := frontend.Receive()
	require.NoError(t, err)
	rowDesc, ok := msg.(*pgproto3.RowDescription)
	require.True(t, ok, "expected RowDescription, got %T", msg)
	require.Len(t, rowDesc.Fields, 3)
	require.EqualValues(t, pgtype.Int4OID, rowDesc.Fields[0].DataTypeOID)
	require.EqualValues(t, pgtype.VarcharOID, rowDesc.Fields[1].DataTypeOID)
	require.EqualValues(t, pgtype.BoolOID, rowDesc.Fields[2].DataTypeOID)

	msg, err = frontend.Receive()
	require.NoError(t, err)
	dataRow, ok := msg.(*pgproto3.DataRow)
	require.True(t, ok, "expected DataRow, got %T", msg)
	require.Equal(t, "t", string(dataRow.Values[2]))

	msg, err = frontend.Receive()
	require.NoError(t, err)
	_, ok = msg.(*pgproto3.CommandComplete)
	require.True(t, ok)
}

func TestHandleSimpleQuery_NumericColumnProjectsAtDeclaredScale(t *testing.T) {
	e := newTestExecutor(t)
	backend, frontend := pipeBackend(t)
	sess := NewSession()

	run := func(sql string) {
		done := make(chan error, 1)
		go func() { done <- e.HandleSimpleQuery(sess, &pgproto3.Query{String: sql}, backend) }()
		for {
			msg, err := frontend.Receive()
			require.NoError(t, err)
			if _, ok := msg.(*pgproto3.CommandComplete); ok {
				break
			}
		}
		require.NoError(t, <-done)
	}

	run(`CREATE TABLE prices (id SERIAL PRIMARY KEY, amount NUMERIC(10,2) NOT NULL)`)
	run(`INSERT INTO prices (amount) VALUES (123.4)`)

	go func() {
		_ = e.HandleSimpleQuery(sess, &pgproto3.Query{String: `SELECT amount FROM prices`}, backend)
	}()

	msg, err := frontend.Receive()
	require.NoError(t, err)
	rowDesc, ok := msg.(*pgproto3.RowDescription)
	require.True(t, ok, "expected RowDescription, got %T", msg)
	require.EqualValues(t, pgtype.NumericOID, rowDesc.Fields[0].DataTypeOID)

	msg, err = frontend.Receive()
	require.NoError(t, err)
	dataRow, ok := msg.(*pgproto3.DataRow)
	require.True(t, ok, "expected DataRow, got %T", msg)
	require.Equal(t, "123.40", string(dataRow.Values[0]))

	msg, err = frontend.Receive()
	require.NoError(t, err)
	_, ok = msg.(*pgproto3.CommandComplete)
	require.True(t, ok)
}

func TestHandleSimpleQuery_UnknownTableSurfacesErrorResponse(t *testing.T) {
	e := newTestExecutor(t)
	backend, frontend := pipeBackend(t)
	sess := NewSession()

	go func() {
		_ = e.HandleSimpleQuery(sess, &pgproto3.Query{String: `SELECT * FROM ghost`}, backend)
	}()

	msg, err := frontend.Receive()
	require.NoError(t, err)
	errResp, ok := msg.(*pgproto3.ErrorResponse)
	require.True(t, ok, "expected ErrorResponse, got %T", msg)
	require.Equal(t, "ERROR", errResp.Severity)
	require.Equal(t, TxFailed, sess.TxStatus)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`SELECT 1; INSERT INTO t VALUES ('a;b'); SELECT 2`)
	require.Len(t, stmts, 3)
}

func TestGuessPrimaryTable(t *testing.T) {
	require.Equal(t, "users", guessPrimaryTable("SELECT * FROM users WHERE id = 1"))
	require.Equal(t, "users", guessPrimaryTable("INSERT INTO users (name) VALUES ('a')"))
	require.Equal(t, "users", guessPrimaryTable("UPDATE users SET name = 'a'"))
}

func TestCommandTagForAffected(t *testing.T) {
	require.Equal(t, "INSERT 0 3", commandTagForAffected("INSERT INTO t VALUES (1)", 3))
	require.Equal(t, "UPDATE 2", commandTagForAffected("UPDATE t SET x = 1", 2))
	require.Equal(t, "CREATE TABLE", commandTagForAffected("CREATE TABLE t (id INTEGER)", 0))
}
