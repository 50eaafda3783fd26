// Package server implements the connection dispatcher (component H)
// and the session/backend glue (component J): a per-connection loop
// parametrized over an io.ReadWriteCloser, so the real TCP/TLS/auth
// acceptor (explicitly out of scope per spec.md §1) plugs in by
// interface. Grounded on lib-pq's conn.go read-dispatch-reply loop
// structure, inverted to backend framing via pgproto3.Backend.
package server

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/obslog"
	"github.com/pgsqlite/pgsqlite/query"
	"github.com/pgsqlite/pgsqlite/shadow"
)

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }

// Config bundles the tunables for the four caches (spec.md §4.C: each
// is independently sized/TTL'd).
type Config struct {
	PlanCacheCapacity  int
	PlanCacheTTLSecs   int
	SchemaCachePreload bool
	StmtCacheCapacity  int
	RowDescCapacity    int
	RowDescTTLSecs     int
}

func DefaultConfig() Config {
	return Config{
		PlanCacheCapacity: 1000,
		PlanCacheTTLSecs:  600,
		StmtCacheCapacity: 500,
		RowDescCapacity:   500,
		RowDescTTLSecs:    600,
	}
}

// Server owns the shared, cross-connection state: the embedded
// database handle, the shadow-schema store, and the four caches.
// Per-connection state (Session) is created fresh for each accepted
// conn.
type Server struct {
	DB     *sql.DB
	Shadow *shadow.Store
	Log    *obslog.Logger

	executor *query.Executor
}

func New(db *sql.DB, cfg Config, log *obslog.Logger) (*Server, error) {
	st := shadow.New(db)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("server: init shadow schema: %w", err)
	}

	s := &Server{DB: db, Shadow: st, Log: log}
	s.executor = &query.Executor{
		DB:     db,
		Shadow: st,
		Log:    log,
		Plans:  cache.NewPlanCache(cfg.PlanCacheCapacity, secondsToDuration(cfg.PlanCacheTTLSecs)),
		Schema: cache.NewSchemaCache(),
		Stmts:  cache.NewStmtCache(cfg.StmtCacheCapacity),
		Descs:  cache.NewRowDescCache(cfg.RowDescCapacity, secondsToDuration(cfg.RowDescTTLSecs)),
	}
	return s, nil
}

// Conn drives one already-authenticated client connection (spec.md
// §4.H: startup/auth is the caller's responsibility — this repo's
// in-scope surface begins after ReadyForQuery would normally be sent
// for the first time).
type Conn struct {
	server  *Server
	rw      io.ReadWriteCloser
	backend *pgproto3.Backend
	session *query.Session
}

// NewConn wraps rw — typically a net.Conn, but any
// io.ReadWriteCloser works, including an in-memory pipe for tests —
// in a pgproto3.Backend and a fresh Session.
func NewConn(s *Server, rw io.ReadWriteCloser) *Conn {
	return &Conn{
		server:  s,
		rw:      rw,
		backend: pgproto3.NewBackend(pgproto3.NewChunkReader(rw), rw),
		session: query.NewSession(),
	}
}

// Serve sends the startup handshake tail (ParameterStatus x N,
// BackendKeyData, ReadyForQuery) and then loops receiving frontend
// messages until Terminate or a connection error, dispatching each to
// the simple- or extended-query executor (spec.md §4.F/§4.G).
func (c *Conn) Serve() error {
	if err := c.sendStartupTail(); err != nil {
		return err
	}
	defer c.rw.Close()

	for {
		msg, err := c.backend.Receive()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *pgproto3.Query:
			if err := c.server.executor.HandleSimpleQuery(c.session, m, c.backend); err != nil {
				return err
			}
			if err := c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: byte(c.session.TxStatus)}); err != nil {
				return err
			}
		case *pgproto3.Parse:
			if err := c.handleExtended(func() error { return c.server.executor.HandleParse(c.session, m, c.backend) }); err != nil {
				return err
			}
		case *pgproto3.Bind:
			if err := c.handleExtended(func() error { return c.server.executor.HandleBind(c.session, m, c.backend) }); err != nil {
				return err
			}
		case *pgproto3.Describe:
			if err := c.handleExtended(func() error { return c.server.executor.HandleDescribe(c.session, m, c.backend) }); err != nil {
				return err
			}
		case *pgproto3.Execute:
			if err := c.handleExtended(func() error { return c.server.executor.HandleExecute(c.session, m, c.backend) }); err != nil {
				return err
			}
		case *pgproto3.Close:
			if err := c.handleExtended(func() error { return c.server.executor.HandleClose(c.session, m, c.backend) }); err != nil {
				return err
			}
		case *pgproto3.Sync:
			if err := c.server.executor.HandleSync(c.session, c.backend); err != nil {
				return err
			}
		case *pgproto3.Flush:
			// No internal buffering beyond pgproto3's own; nothing to flush.
		case *pgproto3.Terminate:
			return nil
		default:
			// Unrecognized frontend message: ignore rather than drop the
			// connection, matching spec.md §4.H's tolerance for messages
			// outside this server's in-scope subset (e.g. CopyData).
		}
	}
}

// handleExtended wraps one extended-query step, converting a surfaced
// pgerr.Error into an ErrorResponse without tearing down the
// connection or sending ReadyForQuery (that only happens on Sync).
func (c *Conn) handleExtended(step func() error) error {
	if err := step(); err != nil {
		return c.sendExtendedError(err)
	}
	return nil
}

func (c *Conn) sendStartupTail() error {
	if err := c.backend.Send(&pgproto3.AuthenticationOk{}); err != nil {
		return err
	}
	for name, value := range c.session.Parameters {
		if err := c.backend.Send(&pgproto3.ParameterStatus{Name: name, Value: value}); err != nil {
			return err
		}
	}
	if err := c.backend.Send(&pgproto3.BackendKeyData{ProcessID: 0, SecretKey: 0}); err != nil {
		return err
	}
	return c.backend.Send(&pgproto3.ReadyForQuery{TxStatus: byte(c.session.TxStatus)})
}
