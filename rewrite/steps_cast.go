package rewrite

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// stripSchemaPrefix implements step 1: pg_catalog.foo -> foo, for any
// of the functions/types SQLite already resolves unqualified
// (original_source/src/query/schema_prefix.rs). information_schema is
// left alone since catalog.go intercepts it wholesale.
func stripSchemaPrefix(sql string) string {
	sql = strings.ReplaceAll(sql, "pg_catalog.", "")
	sql = strings.ReplaceAll(sql, "PG_CATALOG.", "")
	return sql
}

// translateNumericCast (step 2) rewrites CAST(expr AS NUMERIC(p,s))
// into a call to pg_round_decimal(expr, p, s), preserving
// precision/scale as explicit arguments since SQLite has no
// fixed-point type of its own. The expr::NUMERIC(p,s) form is not
// handled here; translateGeneralCast turns it into a plain CAST.
func translateNumericCast(sql string, hints map[string]TypeHint) string {
	var b strings.Builder
	i := 0
	for i < len(sql) {
		if lit, ok := matchCastClause(sql, i, "NUMERIC"); ok {
			b.WriteString(lit.replacement)
			i = lit.end
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

type castMatch struct {
	replacement string
	end         int
}

// matchCastClause looks for either "CAST(<expr> AS <typeName>(...))" or
// "<expr>::<typeName>(...)" starting at position i, case-insensitively
// for keywords. It is a byte scanner, not a parser: nested parens are
// balanced but expr grammar isn't validated, matching spec.md §4.D's
// explicit "without a full SQL parser" constraint.
func matchCastClause(sql string, i int, typeName string) (castMatch, bool) {
	upper := strings.ToUpper(sql)
	if strings.HasPrefix(upper[i:], "CAST(") {
		depth := 0
		j := i + len("CAST(")
		start := j
		for j < len(sql) {
			switch sql[j] {
			case '(':
				depth++
			case ')':
				if depth == 0 {
					goto doneCast
				}
				depth--
			}
			j++
		}
	doneCast:
		inner := sql[start:j]
		asIdx := findTopLevelAS(inner)
		if asIdx < 0 {
			return castMatch{}, false
		}
		expr := strings.TrimSpace(inner[:asIdx])
		typ := strings.TrimSpace(inner[asIdx+2:])
		if !strings.HasPrefix(strings.ToUpper(typ), typeName) {
			return castMatch{}, false
		}
		p, s, ok := parsePrecisionScale(typ)
		if !ok {
			return castMatch{}, false
		}
		return castMatch{
			replacement: roundDecimalCall(expr, p, s),
			end:         j + 1,
		}, true
	}

	if idx := strings.Index(sql[i:], "::"); idx == 0 {
		// handled by translateGeneralCast's scan, not here (avoids double-processing)
		return castMatch{}, false
	}
	return castMatch{}, false
}

func findTopLevelAS(s string) int {
	upper := strings.ToUpper(s)
	depth := 0
	for i := 0; i+4 <= len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && i+2 <= len(upper) && upper[i:i+2] == "AS" &&
			(i == 0 || s[i-1] == ' ') && (i+2 == len(s) || s[i+2] == ' ') {
			return i
		}
	}
	return -1
}

func parsePrecisionScale(typ string) (precision, scale int, ok bool) {
	open := strings.Index(typ, "(")
	if open < 0 {
		return 38, 10, true // untyped NUMERIC defaults (spec.md §4.A)
	}
	close := strings.LastIndex(typ, ")")
	if close < open {
		return 0, 0, false
	}
	parts := strings.Split(typ[open+1:close], ",")
	precision = atoiSafe(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		scale = atoiSafe(strings.TrimSpace(parts[1]))
	}
	return precision, scale, true
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func roundDecimalCall(expr string, precision, scale int) string {
	return "pg_round_decimal(" + expr + ", " + itoa(precision) + ", " + itoa(scale) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// castTypeOIDs maps the PG type keywords the general-cast step
// recognizes to their OID, for type-hint propagation.
var castTypeOIDs = map[string]oidinfo.OID{
	"TEXT":      pgtype.TextOID,
	"VARCHAR":   pgtype.VarcharOID,
	"INTEGER":   pgtype.Int4OID,
	"INT":       pgtype.Int4OID,
	"INT4":      pgtype.Int4OID,
	"BIGINT":    pgtype.Int8OID,
	"INT8":      pgtype.Int8OID,
	"SMALLINT":  pgtype.Int2OID,
	"INT2":      pgtype.Int2OID,
	"BOOLEAN":   pgtype.BoolOID,
	"BOOL":      pgtype.BoolOID,
	"REAL":      pgtype.Float4OID,
	"FLOAT4":    pgtype.Float4OID,
	"DOUBLE":    pgtype.Float8OID,
	"FLOAT8":    pgtype.Float8OID,
	"DATE":      pgtype.DateOID,
	"TIMESTAMP": pgtype.TimestampOID,
	"TIMESTAMPTZ": pgtype.TimestamptzOID,
	"UUID":      pgtype.UUIDOID,
	"JSON":      pgtype.JSONOID,
	"JSONB":     pgtype.JSONBOID,
	"NUMERIC":   pgtype.NumericOID,
	"DECIMAL":   pgtype.NumericOID,
}

// translateGeneralCast implements step 3: every remaining CAST(expr AS
// T) and expr::T not already consumed by the numeric-cast step becomes
// a SQLite-native CAST with a normalized type name SQLite understands,
// recording a type hint with the PG OID in Result.TypeHints.
func translateGeneralCast(sql, primaryTable string, schema SchemaView, hints map[string]TypeHint) string {
	sql = translateDoubleColonCasts(sql, hints)
	sql = translateRemainingCastFn(sql, hints)
	return sql
}

func translateDoubleColonCasts(sql string, hints map[string]TypeHint) string {
	var b strings.Builder
	i := 0
	for i < len(sql) {
		if i+1 < len(sql) && sql[i] == ':' && sql[i+1] == ':' {
			exprStart := scanBackExpr(sql, i)
			expr := sql[exprStart:i]
			typeEnd, typ := scanCastTypeName(sql, i+2)
			sqliteType, oid := normalizeCastType(typ)
			b2 := b.String()
			b2 = strings.TrimSuffix(b2, expr)
			b.Reset()
			b.WriteString(b2)
			b.WriteString("CAST(" + expr + " AS " + sqliteType + ")")
			if oid != 0 {
				hints[expr] = TypeHint{SuggestedOID: oid, ExpressionType: "cast"}
			}
			i = typeEnd
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

func scanBackExpr(sql string, pos int) int {
	j := pos - 1
	depth := 0
	for j >= 0 {
		c := sql[j]
		if c == ')' {
			depth++
		} else if c == '(' {
			if depth == 0 {
				break
			}
			depth--
		} else if depth == 0 && (isSpace(c) || c == ',' || c == '(') {
			break
		}
		j--
	}
	return j + 1
}

func scanCastTypeName(sql string, pos int) (int, string) {
	j := pos
	depth := 0
	for j < len(sql) {
		c := sql[j]
		if c == '(' {
			depth++
		} else if c == ')' {
			if depth == 0 {
				break
			}
			depth--
		} else if depth == 0 && (isSpace(c) || c == ',') {
			break
		}
		j++
	}
	return j, sql[pos:j]
}

func translateRemainingCastFn(sql string, hints map[string]TypeHint) string {
	var b strings.Builder
	i := 0
	upper := strings.ToUpper(sql)
	for i < len(sql) {
		if strings.HasPrefix(upper[i:], "CAST(") {
			depth := 0
			j := i + len("CAST(")
			start := j
			for j < len(sql) {
				if sql[j] == '(' {
					depth++
				} else if sql[j] == ')' {
					if depth == 0 {
						break
					}
					depth--
				}
				j++
			}
			inner := sql[start:j]
			asIdx := findTopLevelAS(inner)
			if asIdx < 0 {
				b.WriteString(sql[i : j+1])
				i = j + 1
				continue
			}
			expr := strings.TrimSpace(inner[:asIdx])
			typ := strings.TrimSpace(inner[asIdx+2:])
			sqliteType, oid := normalizeCastType(typ)
			b.WriteString("CAST(" + expr + " AS " + sqliteType + ")")
			if oid != 0 {
				hints[expr] = TypeHint{SuggestedOID: oid, ExpressionType: "cast"}
			}
			i = j + 1
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

func normalizeCastType(typ string) (sqliteType string, oid oidinfo.OID) {
	base := typ
	if open := strings.Index(typ, "("); open >= 0 {
		base = typ[:open]
	}
	base = strings.ToUpper(strings.TrimSpace(base))
	oid = castTypeOIDs[base]

	switch base {
	case "TEXT", "VARCHAR", "UUID", "JSON", "JSONB":
		return "TEXT", oid
	case "INTEGER", "INT", "INT4", "BIGINT", "INT8", "SMALLINT", "INT2", "BOOLEAN", "BOOL":
		return "INTEGER", oid
	case "REAL", "FLOAT4", "DOUBLE", "FLOAT8":
		return "REAL", oid
	case "NUMERIC", "DECIMAL":
		return "TEXT", oid
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return "TEXT", oid
	default:
		return base, oid
	}
}
