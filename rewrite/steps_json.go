package rewrite

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// translateJSONOperators implements step 9: PG's -> / ->> / #> / #>>
// path operators become
// json_extract calls (SQLite's native JSON1 extension, present in
// mattn/go-sqlite3 builds compiled with the json1 tag),
// row_to_json() becomes a pg_row_to_json() call and array_agg()
// becomes json_group_array(). Grounded on
// original_source/src/query/json_translator.rs.
func translateJSONOperators(sql string, hints map[string]TypeHint) string {
	sql = translateJSONPathOps(sql, hints)
	sql = translateRowToJSON(sql)
	sql = translateArrayAgg(sql)
	return sql
}

type jsonOp struct {
	token    string
	textMode bool // ->> / #>> return text, -> / #> return JSON
}

var jsonOps = []jsonOp{
	{"#>>", true},
	{"#>", false},
	{"->>", true},
	{"->", false},
}

func translateJSONPathOps(sql string, hints map[string]TypeHint) string {
	for _, op := range jsonOps {
		for {
			idx := strings.Index(sql, op.token)
			if idx < 0 {
				break
			}
			lhsStart := scanBackExpr(sql, idx)
			lhs := strings.TrimSpace(sql[lhsStart:idx])
			rhsEnd := scanForwardExpr(sql, idx+len(op.token))
			rhs := strings.TrimSpace(sql[idx+len(op.token) : rhsEnd])

			path := jsonPathFromRHS(rhs, op.token == "#>" || op.token == "#>>")
			call := "json_extract(" + lhs + ", " + path + ")"
			if op.textMode {
				hints[lhs] = TypeHint{SuggestedOID: pgtype.TextOID, ExpressionType: "json-extract-text"}
			}
			sql = sql[:lhsStart] + call + sql[rhsEnd:]
		}
	}
	return sql
}

// jsonPathFromRHS builds the SQLite JSON path argument: a bare key or
// integer index becomes '$.key' / '$[n]'; PG's #> operator takes a
// text[] path literal which is translated element-by-element.
func jsonPathFromRHS(rhs string, isPathArray bool) string {
	if !isPathArray {
		if strings.HasPrefix(rhs, "'") {
			inner := strings.Trim(rhs, "'")
			if isAllDigits(inner) {
				return "'$[" + inner + "]'"
			}
			return "'$." + inner + "'"
		}
		return "'$[' || " + rhs + " || ']'"
	}
	inner := strings.Trim(strings.TrimSpace(rhs), "'{}")
	var b strings.Builder
	b.WriteString("'$")
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if isAllDigits(part) {
			b.WriteString("[" + part + "]")
		} else {
			b.WriteString("." + part)
		}
	}
	b.WriteString("'")
	return b.String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// translateRowToJSON renames every row_to_json( / ROW_TO_JSON( call
// to pg_row_to_json(, a helper function that this repository does not
// register with SQLite.
func translateRowToJSON(sql string) string {
	return strings.ReplaceAll(strings.ReplaceAll(sql, "row_to_json(", "pg_row_to_json("), "ROW_TO_JSON(", "pg_row_to_json(")
}

// translateArrayAgg rewrites array_agg(expr) to
// json_group_array(expr), SQLite's native aggregate equivalent once
// arrays are represented as JSON text (wire/array.go).
func translateArrayAgg(sql string) string {
	return strings.ReplaceAll(strings.ReplaceAll(sql, "array_agg(", "json_group_array("), "ARRAY_AGG(", "json_group_array(")
}
