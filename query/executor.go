package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/catalog"
	"github.com/pgsqlite/pgsqlite/ddl"
	"github.com/pgsqlite/pgsqlite/numeric"
	"github.com/pgsqlite/pgsqlite/obslog"
	"github.com/pgsqlite/pgsqlite/oidinfo"
	"github.com/pgsqlite/pgsqlite/pgerr"
	"github.com/pgsqlite/pgsqlite/rewrite"
	"github.com/pgsqlite/pgsqlite/shadow"
	"github.com/pgsqlite/pgsqlite/wire"
)

// Executor ties the two sub-protocols to the embedded engine and the
// cache/shadow-schema layers (components F and G, wired to B and C).
type Executor struct {
	DB     *sql.DB
	Shadow *shadow.Store
	Log    *obslog.Logger

	Plans  *cache.PlanCache
	Schema *cache.SchemaCache
	Stmts  *cache.StmtCache
	Descs  *cache.RowDescCache
}

// schemaView adapts *shadow.Store to rewrite.SchemaView.
type schemaView struct {
	store *shadow.Store
}

func (v schemaView) HasNumericColumn(table string) bool {
	cols, err := v.store.Columns(table)
	if err != nil {
		return false
	}
	for _, c := range cols {
		if oidinfo.IsNumericLike(c.PgType) {
			return true
		}
	}
	return false
}

func (v schemaView) EnumLabels(table, column string) ([]string, bool) {
	typeName, ok, err := v.store.EnumUsage(table, column)
	if err != nil || !ok {
		return nil, false
	}
	enum, labelsJSON, ok, err := v.store.EnumByName(typeName)
	_ = enum
	if err != nil || !ok {
		return nil, false
	}
	return splitJSONStringArray(labelsJSON), true
}

func splitJSONStringArray(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	var out []string
	for _, part := range strings.Split(s, ",") {
		out = append(out, strings.Trim(strings.TrimSpace(part), `"`))
	}
	return out
}

// HandleSimpleQuery implements the Simple Query sub-protocol (spec.md
// §4.F): execute, stream DataRow messages, then CommandComplete, then
// ReadyForQuery — one round trip per semicolon-separated statement.
func (e *Executor) HandleSimpleQuery(sess *Session, msg *pgproto3.Query, backend *pgproto3.Backend) error {
	statements := splitStatements(msg.String)
	if len(statements) == 0 {
		return backend.Send(&pgproto3.EmptyQueryResponse{})
	}

	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := e.runOne(sess, backend, stmt); err != nil {
			pe, ok := pgerr.As(err)
			if !ok {
				pe = pgerr.New(pgerr.KindInternal, "%s", err.Error())
			}
			if sendErr := backend.Send(toErrorResponse(pe)); sendErr != nil {
				return sendErr
			}
			sess.TxStatus = TxFailed
			break
		}
	}
	return nil
}

func (e *Executor) runOne(sess *Session, backend *pgproto3.Backend, sql string) error {
	if ddl.IsDDL(sql) {
		return e.runDDL(backend, sql)
	}

	primaryTable := guessPrimaryTable(sql)

	if rel, _, ok := catalog.Recognize(sql); ok {
		return e.runCatalog(backend, rel, sql)
	}

	res := rewrite.Rewrite(sql, primaryTable, schemaView{e.Shadow})
	return e.execute(sess, backend, res.SQL, primaryTable, res, nil)
}

// runDDL routes CREATE/ALTER/DROP statements through the CREATE TABLE
// translator (component I, spec.md §4.I) instead of the rewriter: DDL
// needs to update the shadow schema and install/replace ENUM triggers,
// not just rewrite the SQL text.
func (e *Executor) runDDL(backend *pgproto3.Backend, sqlText string) error {
	plan, err := ddl.Dispatch(sqlText, e.Shadow)
	if err != nil {
		return translateSQLiteErr(err)
	}
	if err := ddl.Apply(e.DB, e.Shadow, e.Plans, e.Schema, plan); err != nil {
		return translateSQLiteErr(err)
	}
	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(plan.Kind)})
}

func (e *Executor) runCatalog(backend *pgproto3.Backend, rel catalog.Relation, sqlText string) error {
	rows, cols, err := catalog.Synthesize(rel, sqlText, e.Shadow)
	if err != nil {
		return err
	}
	fields := make([]cache.FieldDescription, len(cols))
	for i, c := range cols {
		fields[i] = cache.FieldDescription{Name: c, DataTypeOID: 25, DataTypeSize: -1, TypeModifier: -1, Format: 0}
	}
	if err := backend.Send(toPgproto3(fields)); err != nil {
		return err
	}
	for _, r := range rows {
		values := make([][]byte, len(cols))
		for i, c := range cols {
			values[i] = []byte(fmt.Sprint(r[c]))
		}
		if err := backend.Send(&pgproto3.DataRow{Values: values}); err != nil {
			return err
		}
	}
	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("SELECT %d", len(rows)))})
}

// execute runs one rewritten statement, streaming results as
// DataRow/CommandComplete, honoring the RETURNING follow-up protocol
// (spec.md §4.F: pre-capture for UPDATE/DELETE, post-select for
// INSERT).
func (e *Executor) execute(sess *Session, backend *pgproto3.Backend, sqlText, primaryTable string, res rewrite.Result, params []any) error {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	isSelect := strings.HasPrefix(upper, "SELECT")

	if res.FollowupSQL != "" && !res.ReturningIsPost {
		// UPDATE/DELETE ... RETURNING: capture before mutating.
		fields, rows, err := e.queryAll(res.FollowupSQL, nil, primaryTable)
		if err != nil {
			return err
		}
		captured := bufferRows(fields, rows)
		if _, err := e.DB.Exec(sqlText, params...); err != nil {
			return translateSQLiteErr(err)
		}
		return e.sendBuffered(backend, fields, captured, commandTagFor(sqlText, len(captured)))
	}

	if isSelect {
		fields, rows, err := e.queryAll(sqlText, params, primaryTable)
		if err != nil {
			return err
		}
		return e.streamRows(backend, fields, rows, "SELECT")
	}

	result, err := e.DB.Exec(sqlText, params...)
	if err != nil {
		return translateSQLiteErr(err)
	}
	affected, _ := result.RowsAffected()

	if res.FollowupSQL != "" && res.ReturningIsPost {
		fields, rows, err := e.queryAll(res.FollowupSQL, nil, primaryTable)
		if err != nil {
			return err
		}
		return e.streamRows(backend, fields, rows, "INSERT 0")
	}

	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(commandTagForAffected(sqlText, affected))})
}

// queryAll runs sqlText and builds the row descriptor for its results,
// preferring the shadow schema's registered PgType/TypeModifier for
// each column over SQLite's reported storage affinity (spec.md §4.F
// step 2: "using (a) schema cache" first) — SQLite reports a VARCHAR
// column as TEXT and a BOOLEAN column as INTEGER, which would
// otherwise project as the wrong OID (and, for BOOLEAN, the wrong
// text representation: "1"/"0" instead of "t"/"f"). Mirrors
// describeColumns' use of e.Shadow.Column on the extended-query path.
func (e *Executor) queryAll(sqlText string, params []any, primaryTable string) ([]cache.FieldDescription, *sql.Rows, error) {
	rows, err := e.DB.Query(sqlText, params...)
	if err != nil {
		return nil, nil, translateSQLiteErr(err)
	}
	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, nil, err
	}
	fields := make([]cache.FieldDescription, len(cols))
	for i, c := range cols {
		oid := oidinfo.FromSQLiteTypeName(c.DatabaseTypeName())
		typmod := int32(-1)
		if col, ok, _ := e.Shadow.Column(primaryTable, c.Name()); ok {
			oid = col.PgType
			typmod = col.TypeModifier
		}
		fields[i] = cache.FieldDescription{Name: c.Name(), DataTypeOID: oid, DataTypeSize: -1, TypeModifier: typmod, Format: 0}
	}
	return fields, rows, nil
}

// applyNumericScale rescales a NUMERIC result value to its column's
// declared scale before encoding (spec.md's E2: a NUMERIC(10,2) column
// must project "123.40", not SQLite's raw REAL storage "123.4"),
// unpacking precision/scale from the PG-style typmod the DDL
// translator packs (ddl.packTypmod: ((precision<<16)|scale)+4).
func applyNumericScale(value any, f cache.FieldDescription) any {
	if value == nil || f.DataTypeOID != pgtype.NumericOID || f.TypeModifier < 4 {
		return value
	}
	scale := int32((f.TypeModifier - 4) & 0xFFFF)
	d, err := numeric.Parse(fmt.Sprintf("%v", value))
	if err != nil {
		return value
	}
	return d.Rescale(scale)
}

func (e *Executor) streamRows(backend *pgproto3.Backend, fields []cache.FieldDescription, rows *sql.Rows, tag string) error {
	defer rows.Close()
	if err := backend.Send(toPgproto3(fields)); err != nil {
		return err
	}
	count := 0
	dest := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		values := make([][]byte, len(fields))
		for i, f := range fields {
			if dest[i] == nil {
				continue
			}
			value := applyNumericScale(dest[i], f)
			var text string
			var err error
			if f.Format == 1 {
				b, err2 := wire.EncodeBinary(value, f.DataTypeOID)
				if err2 != nil {
					return err2
				}
				values[i] = b
				continue
			}
			text, err = wire.EncodeText(value, f.DataTypeOID)
			if err != nil {
				return err
			}
			values[i] = []byte(text)
		}
		if err := backend.Send(&pgproto3.DataRow{Values: values}); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return backend.Send(&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("%s %d", tag, count))})
}

func commandTagFor(sqlText string, n int) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	switch {
	case strings.HasPrefix(upper, "INSERT"):
		return fmt.Sprintf("INSERT 0 %d", n)
	case strings.HasPrefix(upper, "UPDATE"):
		return fmt.Sprintf("UPDATE %d", n)
	case strings.HasPrefix(upper, "DELETE"):
		return fmt.Sprintf("DELETE %d", n)
	}
	return fmt.Sprintf("SELECT %d", n)
}

func commandTagForAffected(sqlText string, affected int64) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	switch {
	case strings.HasPrefix(upper, "INSERT"):
		return fmt.Sprintf("INSERT 0 %d", affected)
	case strings.HasPrefix(upper, "UPDATE"):
		return fmt.Sprintf("UPDATE %d", affected)
	case strings.HasPrefix(upper, "DELETE"):
		return fmt.Sprintf("DELETE %d", affected)
	case strings.HasPrefix(upper, "CREATE"):
		return "CREATE TABLE"
	case strings.HasPrefix(upper, "DROP"):
		return "DROP TABLE"
	case strings.HasPrefix(upper, "ALTER"):
		return "ALTER TABLE"
	case strings.HasPrefix(upper, "BEGIN"):
		return "BEGIN"
	case strings.HasPrefix(upper, "COMMIT"):
		return "COMMIT"
	case strings.HasPrefix(upper, "ROLLBACK"):
		return "ROLLBACK"
	}
	return "OK"
}

func translateSQLiteErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint"):
		return pgerr.UniqueViolationErr(msg)
	case strings.Contains(msg, "CHECK constraint"):
		return pgerr.CheckViolationErr("", msg)
	case strings.Contains(msg, "no such table"):
		return pgerr.UndefinedTableErr(msg)
	case strings.Contains(msg, "no such column"):
		return pgerr.UndefinedColumnErr("", msg)
	default:
		return pgerr.New(pgerr.KindInternal, "%s", msg)
	}
}

func toErrorResponse(e *pgerr.Error) *pgproto3.ErrorResponse {
	return &pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     e.SQLSTATE(),
		Message:  e.Error(),
	}
}

// splitStatements performs a naive quote-aware split on ';' for the
// Simple Query sub-protocol's "possibly multiple statements" case
// (spec.md §4.F); this is the same class of scanner the rewrite
// package uses elsewhere rather than a full parser.
func splitStatements(sql string) []string {
	var out []string
	depth := 0
	inQuote := byte(0)
	last := 0
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ';' && depth == 0:
			out = append(out, sql[last:i])
			last = i + 1
		}
	}
	if strings.TrimSpace(sql[last:]) != "" {
		out = append(out, sql[last:])
	}
	return out
}

func guessPrimaryTable(sql string) string {
	upper := strings.ToUpper(sql)
	for _, kw := range []string{"FROM", "INTO", "UPDATE"} {
		idx := strings.Index(upper, kw+" ")
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(sql[idx+len(kw)+1:])
		end := strings.IndexAny(rest, " \t\n(,")
		if end < 0 {
			end = len(rest)
		}
		return rest[:end]
	}
	return ""
}
