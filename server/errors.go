package server

import (
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pgsqlite/pgsqlite/pgerr"
	"github.com/pgsqlite/pgsqlite/query"
)

// sendExtendedError reports err to the client as an ErrorResponse
// without aborting the connection, matching real PG's behavior of
// only tearing down the wire on a protocol-level failure, not on a
// query error (spec.md §4.G: the client recovers via Sync).
func (c *Conn) sendExtendedError(err error) error {
	pe, ok := pgerr.As(err)
	if !ok {
		pe = pgerr.New(pgerr.KindInternal, "%s", err.Error())
	}
	c.session.TxStatus = query.TxFailed
	return c.backend.Send(&pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     pe.SQLSTATE(),
		Message:  pe.Error(),
	})
}
