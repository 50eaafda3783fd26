// Package query implements the simple-query and extended-query
// executors (components F and G): message routing, the
// Parse/Bind/Describe/Execute/Sync state machine, portal lifecycle,
// and the RETURNING follow-up protocol, built on
// github.com/jackc/pgx/v5/pgproto3 for wire framing — the direct
// backend-side analogue of the role lib-pq's conn.go plays on the
// frontend (recv()/message dispatch), grounded the way kqlite's
// pkg/pgwire/conn.go and apecloud-myduckserver's
// pgserver/duck_handler.go frame a PG backend over a non-PG engine.
package query

import (
	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// PreparedStatement is what Parse installs and Bind/Describe read
// back, per spec.md §4.G.
type PreparedStatement struct {
	Name          string
	SQL           string
	RewrittenSQL  string
	ParamOIDs     []oidinfo.OID
	ColumnNames   []string
	ColumnOIDs    []oidinfo.OID
	PrimaryTable  string
	IsSelect      bool
	FollowupSQL   string
	FollowupIsPost bool
	IsDDL         bool
}

// Portal is a bound statement awaiting Execute, possibly suspended
// mid-result by a previous Execute's row limit (spec.md §4.G:
// PortalSuspended).
type Portal struct {
	Name          string
	Stmt          *PreparedStatement
	Params        [][]byte
	ParamFormats  []int16
	ResultFormats []int16

	rows      rowIterator
	exhausted bool
}

// rowIterator abstracts over *sql.Rows so portal suspension logic
// doesn't need to import database/sql directly in this file.
type rowIterator interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// TxStatus mirrors the single byte PG reports in ReadyForQuery.
type TxStatus byte

const (
	TxIdle       TxStatus = 'I'
	TxInBlock    TxStatus = 'T'
	TxFailed     TxStatus = 'E'
)

// Session is the per-connection state the executors operate on
// (spec.md §4.H: "transaction_status, prepared_statements, portals,
// session_parameters").
type Session struct {
	TxStatus   TxStatus
	Statements map[string]*PreparedStatement
	Portals    map[string]*Portal
	Parameters map[string]string
}

func NewSession() *Session {
	return &Session{
		TxStatus:   TxIdle,
		Statements: make(map[string]*PreparedStatement),
		Portals:    make(map[string]*Portal),
		Parameters: map[string]string{
			"server_version":  "15.0 (pgsqlite)",
			"client_encoding": "UTF8",
			"DateStyle":       "ISO, MDY",
			"TimeZone":        "UTC",
		},
	}
}

// ClosePortal releases a portal's open *sql.Rows, idempotent.
func (s *Session) ClosePortal(name string) {
	if p, ok := s.Portals[name]; ok {
		if p.rows != nil {
			p.rows.Close()
		}
		delete(s.Portals, name)
	}
}

// CloseStatement drops a prepared statement and every portal bound to
// it (spec.md §4.G: Close targets either a statement or a portal).
func (s *Session) CloseStatement(name string) {
	delete(s.Statements, name)
	for pname, p := range s.Portals {
		if p.Stmt != nil && p.Stmt.Name == name {
			s.ClosePortal(pname)
		}
	}
}
