package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/catalog"
	"github.com/pgsqlite/pgsqlite/ddl"
	"github.com/pgsqlite/pgsqlite/oidinfo"
	"github.com/pgsqlite/pgsqlite/pgerr"
	"github.com/pgsqlite/pgsqlite/rewrite"
	"github.com/pgsqlite/pgsqlite/wire"
)

// defaultExecuteBatch holds the wire protocol's "no limit" value (0)
// for an Execute message's row cap. streamPortalRows takes the cap
// from each Execute message itself and does not refer to this
// constant.
const defaultExecuteBatch = 0

// HandleParse implements the P message (spec.md §4.G): compiles a
// named (or unnamed) prepared statement, running the rewrite pipeline
// once and caching the plan by fingerprint.
func (e *Executor) HandleParse(sess *Session, msg *pgproto3.Parse, backend *pgproto3.Backend) error {
	if ddl.IsDDL(msg.Query) {
		sess.Statements[msg.Name] = &PreparedStatement{
			Name: msg.Name, SQL: msg.Query, RewrittenSQL: msg.Query, IsDDL: true,
		}
		return backend.Send(&pgproto3.ParseComplete{})
	}

	primaryTable := guessPrimaryTable(msg.Query)
	fp := cache.Compute(msg.Query).Hash

	var res rewrite.Result
	if entry, ok := e.Plans.Get(fp); ok && entry.RewrittenSQL != "" {
		res = rewrite.Result{SQL: entry.RewrittenSQL}
	} else {
		res = rewrite.Rewrite(msg.Query, primaryTable, schemaView{e.Shadow})
		e.Plans.Put(fp, &cache.PlanEntry{
			StatementDigest: msg.Query,
			RewrittenSQL:    res.SQL,
			TableRefs:       []string{primaryTable},
		})
	}

	paramOIDs := make([]oidinfo.OID, len(msg.ParameterOIDs))
	for i, o := range msg.ParameterOIDs {
		if o == 0 {
			paramOIDs[i] = oidinfo.FromSQLiteTypeName("TEXT")
			continue
		}
		paramOIDs[i] = o
	}

	stmt := &PreparedStatement{
		Name:           msg.Name,
		SQL:            msg.Query,
		RewrittenSQL:   res.SQL,
		ParamOIDs:      paramOIDs,
		PrimaryTable:   primaryTable,
		IsSelect:       strings.HasPrefix(strings.ToUpper(strings.TrimSpace(res.SQL)), "SELECT"),
		FollowupSQL:    res.FollowupSQL,
		FollowupIsPost: res.ReturningIsPost,
	}
	sess.Statements[msg.Name] = stmt
	return backend.Send(&pgproto3.ParseComplete{})
}

// HandleBind implements the B message: binds parameter values and
// result-column formats to a portal.
func (e *Executor) HandleBind(sess *Session, msg *pgproto3.Bind, backend *pgproto3.Backend) error {
	stmt, ok := sess.Statements[msg.PreparedStatement]
	if !ok {
		return pgerr.New(pgerr.KindProtocol, "unknown prepared statement %q", msg.PreparedStatement).WithCode(pgerr.InvalidSQLStatementName)
	}

	portal := &Portal{
		Name:          msg.DestinationPortal,
		Stmt:          stmt,
		Params:        msg.Parameters,
		ParamFormats:  msg.ParameterFormatCodes,
		ResultFormats: msg.ResultFormatCodes,
	}
	sess.Portals[msg.DestinationPortal] = portal
	return backend.Send(&pgproto3.BindComplete{})
}

// HandleDescribe implements the D message, for either a statement
// ('S') or a portal ('P').
func (e *Executor) HandleDescribe(sess *Session, msg *pgproto3.Describe, backend *pgproto3.Backend) error {
	var stmt *PreparedStatement
	switch msg.ObjectType {
	case 'S':
		s, ok := sess.Statements[msg.Name]
		if !ok {
			return pgerr.New(pgerr.KindProtocol, "unknown prepared statement %q", msg.Name).WithCode(pgerr.InvalidSQLStatementName)
		}
		stmt = s
		if err := backend.Send(&pgproto3.ParameterDescription{ParameterOIDs: stmt.ParamOIDs}); err != nil {
			return err
		}
	case 'P':
		p, ok := sess.Portals[msg.Name]
		if !ok {
			return pgerr.New(pgerr.KindProtocol, "unknown portal %q", msg.Name).WithCode(pgerr.InvalidCursorName)
		}
		stmt = p.Stmt
	}

	if !stmt.IsSelect && stmt.FollowupSQL == "" {
		return backend.Send(&pgproto3.NoData{})
	}

	fields, err := e.describeColumns(stmt)
	if err != nil {
		return err
	}
	return backend.Send(toPgproto3(fields))
}

// describeColumns derives a row descriptor without executing the
// statement: after checking the row-descriptor cache (spec.md §4.C
// item 4) it runs a LIMIT-0 probe query, binding NULL for every $n
// parameter, and reads back the column metadata.
func (e *Executor) describeColumns(stmt *PreparedStatement) ([]cache.FieldDescription, error) {
	key := cache.NewRowDescKey(stmt.RewrittenSQL, stmt.PrimaryTable, nil)
	if fields, ok := e.Descs.Get(key); ok {
		return fields, nil
	}

	probe := stmt.RewrittenSQL
	if stmt.IsSelect {
		probe = "SELECT * FROM (" + stmt.RewrittenSQL + ") LIMIT 0"
	} else if stmt.FollowupSQL != "" {
		probe = "SELECT * FROM (" + stmt.FollowupSQL + ") LIMIT 0"
	}

	nParams := len(stmt.ParamOIDs)
	for i := 0; i < len(probe); i++ {
		if probe[i] != '$' {
			continue
		}
		n := 0
		for j := i + 1; j < len(probe) && probe[j] >= '0' && probe[j] <= '9'; j++ {
			n = n*10 + int(probe[j]-'0')
		}
		if n > nParams {
			nParams = n
		}
	}
	rows, err := e.DB.Query(probe, make([]any, nParams)...)
	if err != nil {
		return nil, translateSQLiteErr(err)
	}
	defer rows.Close()
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	fields := make([]cache.FieldDescription, len(cols))
	for i, c := range cols {
		oid := oidinfo.FromSQLiteTypeName(c.DatabaseTypeName())
		typmod := int32(-1)
		if col, ok, _ := e.Shadow.Column(stmt.PrimaryTable, c.Name()); ok {
			oid = col.PgType
			typmod = col.TypeModifier
		}
		fields[i] = cache.FieldDescription{Name: c.Name(), DataTypeOID: oid, DataTypeSize: -1, TypeModifier: typmod, Format: 0}
	}
	e.Descs.Put(key, fields)
	return fields, nil
}

// HandleExecute implements the E message: runs the portal's bound
// statement, streaming up to msg.MaxRows rows (0 = unlimited),
// suspending with PortalSuspended if more remain.
func (e *Executor) HandleExecute(sess *Session, msg *pgproto3.Execute, backend *pgproto3.Backend) error {
	portal, ok := sess.Portals[msg.Portal]
	if !ok {
		return pgerr.New(pgerr.KindProtocol, "unknown portal %q", msg.Portal).WithCode(pgerr.InvalidCursorName)
	}
	stmt := portal.Stmt

	if stmt.IsDDL {
		return e.runDDL(backend, stmt.RewrittenSQL)
	}

	if rel, _, ok := catalog.Recognize(stmt.RewrittenSQL); ok {
		return e.runCatalog(backend, rel, stmt.RewrittenSQL)
	}

	params, err := e.decodeParams(stmt, portal)
	if err != nil {
		return err
	}

	if portal.rows == nil && !portal.exhausted {
		if err := e.openPortal(portal, params); err != nil {
			return err
		}
	}

	if portal.rows == nil {
		// Non-SELECT statement: execute-once semantics, no row stream.
		return e.executeOnceNonSelect(sess, backend, stmt, params)
	}

	return e.streamPortalRows(backend, portal, msg.MaxRows)
}

func (e *Executor) decodeParams(stmt *PreparedStatement, portal *Portal) ([]any, error) {
	params := make([]any, len(portal.Params))
	for i, raw := range portal.Params {
		if raw == nil {
			params[i] = nil
			continue
		}
		oid := oidinfo.OID(0)
		if i < len(stmt.ParamOIDs) {
			oid = stmt.ParamOIDs[i]
		}
		format := int16(0)
		if i < len(portal.ParamFormats) {
			format = portal.ParamFormats[i]
		}
		var v any
		var err error
		if format == 1 {
			v, err = wire.DecodeBinary(raw, oid)
		} else {
			v, err = wire.DecodeText(raw, oid)
		}
		if err != nil {
			return nil, err
		}
		params[i] = v
	}
	return params, nil
}

func (e *Executor) openPortal(portal *Portal, params []any) error {
	stmt := portal.Stmt
	if stmt.IsSelect {
		rows, err := e.DB.Query(stmt.RewrittenSQL, params...)
		if err != nil {
			return translateSQLiteErr(err)
		}
		portal.rows = rows
	}
	return nil
}

func (e *Executor) executeOnceNonSelect(sess *Session, backend *pgproto3.Backend, stmt *PreparedStatement, params []any) error {
	if stmt.FollowupSQL != "" && !stmt.FollowupIsPost {
		fields, rows, err := e.queryAll(stmt.FollowupSQL, nil, stmt.PrimaryTable)
		if err != nil {
			return err
		}
		captured := bufferRows(fields, rows)
		if _, err := e.DB.Exec(stmt.RewrittenSQL, params...); err != nil {
			return translateSQLiteErr(err)
		}
		return e.sendBuffered(backend, fields, captured, commandTagFor(stmt.RewrittenSQL, len(captured)))
	}

	result, err := e.DB.Exec(stmt.RewrittenSQL, params...)
	if err != nil {
		return translateSQLiteErr(err)
	}
	affected, _ := result.RowsAffected()

	if stmt.FollowupSQL != "" && stmt.FollowupIsPost {
		fields, rows, err := e.queryAll(stmt.FollowupSQL, nil, stmt.PrimaryTable)
		if err != nil {
			return err
		}
		return e.streamRows(backend, fields, rows, "INSERT 0")
	}

	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(commandTagForAffected(stmt.RewrittenSQL, affected))})
}

func bufferRows(fields []cache.FieldDescription, rows *sql.Rows) [][]any {
	defer rows.Close()
	var out [][]any
	dest := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if rows.Scan(ptrs...) != nil {
			break
		}
		row := make([]any, len(dest))
		copy(row, dest)
		out = append(out, row)
	}
	return out
}

func (e *Executor) sendBuffered(backend *pgproto3.Backend, fields []cache.FieldDescription, rows [][]any, tag string) error {
	if err := backend.Send(toPgproto3(fields)); err != nil {
		return err
	}
	for _, row := range rows {
		values := make([][]byte, len(fields))
		for i, f := range fields {
			if row[i] == nil {
				continue
			}
			value := applyNumericScale(row[i], f)
			if f.Format == 1 {
				b, err := wire.EncodeBinary(value, f.DataTypeOID)
				if err != nil {
					return err
				}
				values[i] = b
				continue
			}
			text, err := wire.EncodeText(value, f.DataTypeOID)
			if err != nil {
				return err
			}
			values[i] = []byte(text)
		}
		if err := backend.Send(&pgproto3.DataRow{Values: values}); err != nil {
			return err
		}
	}
	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(tag)})
}

// streamPortalRows sends up to maxRows DataRow messages from the
// portal's open cursor, PortalSuspended if rows remain, or
// CommandComplete once exhausted (spec.md §4.G).
func (e *Executor) streamPortalRows(backend *pgproto3.Backend, portal *Portal, maxRows uint32) error {
	fields, err := e.describeColumns(portal.Stmt)
	if err != nil {
		return err
	}
	dest := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	sent := uint32(0)
	for maxRows == 0 || sent < maxRows {
		if !portal.rows.Next() {
			portal.exhausted = true
			portal.rows.Close()
			portal.rows = nil
			return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("SELECT %d", sent))})
		}
		if err := portal.rows.Scan(ptrs...); err != nil {
			return err
		}
		values := make([][]byte, len(fields))
		for i, f := range fields {
			if dest[i] == nil {
				continue
			}
			value := applyNumericScale(dest[i], f)
			if f.Format == 1 {
				b, err := wire.EncodeBinary(value, f.DataTypeOID)
				if err != nil {
					return err
				}
				values[i] = b
				continue
			}
			text, err := wire.EncodeText(value, f.DataTypeOID)
			if err != nil {
				return err
			}
			values[i] = []byte(text)
		}
		if err := backend.Send(&pgproto3.DataRow{Values: values}); err != nil {
			return err
		}
		sent++
	}
	return backend.Send(&pgproto3.PortalSuspended{})
}

// HandleSync implements the S message: ends the extended-query
// message flow and reports the transaction status.
func (e *Executor) HandleSync(sess *Session, backend *pgproto3.Backend) error {
	return backend.Send(&pgproto3.ReadyForQuery{TxStatus: byte(sess.TxStatus)})
}

// HandleClose implements the C message.
func (e *Executor) HandleClose(sess *Session, msg *pgproto3.Close, backend *pgproto3.Backend) error {
	switch msg.ObjectType {
	case 'S':
		sess.CloseStatement(msg.Name)
	case 'P':
		sess.ClosePortal(msg.Name)
	}
	return backend.Send(&pgproto3.CloseComplete{})
}
