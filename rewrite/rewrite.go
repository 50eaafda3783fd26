// Package rewrite implements the layered rewriter pipeline (component
// D of spec.md §4.D): a fast-path prescan for statements needing no
// translation, and — when translation is needed — a fixed 11-step
// pipeline (schema prefix, numeric cast, general cast, regex, array,
// batch DML covering both DELETE ... USING and UPDATE ... FROM,
// datetime, JSON, RETURNING, decimal) driven by a bitmask
// of which steps actually apply. Grounded on
// original_source/src/query/*.rs and src/translator/*.rs; the
// "detect then apply only what's needed" shape mirrors spec.md §9's
// design note on turning chained rewriters into a prescanned bitmap.
//
// Several steps emit calls to pg_* helper functions (pg_regexp,
// pg_now, pg_decimal_add, pg_round_decimal, pg_row_to_json, ...).
// Nothing in this repository registers those functions with SQLite.
package rewrite

import (
	"strings"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// TypeHint is what each rewrite step records for any column alias it
// introduces or whose type it can infer; Rewrite and Apply return them
// in Result.TypeHints. The query package builds row descriptions from
// the shadow schema and SQLite's declared column types and does not
// read these hints.
type TypeHint struct {
	SuggestedOID   oidinfo.OID
	SourceColumn   string // non-empty when the alias is a passthrough of a source column
	ExpressionType string // e.g. "now()", "cast", "json_extract" — debugging/diagnostics only
}

// Result is what the rewriter pipeline returns for one statement.
type Result struct {
	SQL        string // the (possibly) rewritten statement; identical string to the input when no rewrite fired (zero-copy fast path)
	Flags      Flags
	TypeHints  map[string]TypeHint
	// FollowupSQL is set by the RETURNING step (4.D.10): for INSERT it
	// is the post-mutation SELECT to run; for UPDATE/DELETE it is the
	// pre-mutation capture SELECT to run *before* the main statement.
	FollowupSQL string
	ReturningIsPost bool
}

// SchemaView is the minimal read surface the rewriter needs from the
// shadow schema / schema cache (component B/C), kept as an interface
// so rewrite has no import-time dependency on either package.
type SchemaView interface {
	// HasNumericColumn reports whether any column of table is NUMERIC,
	// driving rewrite step 11 (decimal rewriting).
	HasNumericColumn(table string) bool
	// EnumLabels returns the ordered labels for an ENUM type bound to
	// table.column, or (nil, false) if the column isn't an ENUM.
	EnumLabels(table, column string) ([]string, bool)
}

// Flags is the bitmap of needed transforms, filled by Prescan and
// consumed, in this fixed order, by Apply.
type Flags uint16

const (
	FlagSchemaPrefix Flags = 1 << iota
	FlagNumericCast
	FlagGeneralCast
	FlagRegex
	FlagArray
	FlagBatchDML
	FlagDateTime
	FlagJSON
	FlagReturning
	FlagDecimal
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Rewrite is the central entry point: given (sql, table-hint,
// schema), returns the translated SQL plus type hints. It is a pure
// function over its inputs other than SchemaView reads, so callers
// (the executors) are responsible for caching.
func Rewrite(sql, primaryTable string, schema SchemaView) Result {
	if FastPathEligible(sql) {
		return Result{SQL: sql, Flags: 0, TypeHints: nil}
	}

	flags := Prescan(sql)
	return Apply(sql, primaryTable, flags, schema)
}

// Apply runs the fixed-order pipeline, skipping unset steps. Each
// step takes the previous step's output, so later rewrites may
// assume earlier ones already ran — spec.md §9's ordering invariant.
func Apply(sql, primaryTable string, flags Flags, schema SchemaView) Result {
	hints := make(map[string]TypeHint)
	out := sql
	res := Result{}

	if flags.has(FlagSchemaPrefix) {
		out = stripSchemaPrefix(out)
	}
	if flags.has(FlagNumericCast) {
		out = translateNumericCast(out, hints)
	}
	if flags.has(FlagGeneralCast) {
		out = translateGeneralCast(out, primaryTable, schema, hints)
	}
	if flags.has(FlagRegex) {
		out = translateRegexOperators(out)
	}
	if flags.has(FlagArray) {
		out = translateArrayOperators(out, hints)
	}
	if flags.has(FlagBatchDML) {
		out = translateBatchDML(out)
	}
	if flags.has(FlagDateTime) {
		out = translateDateTime(out, hints)
	}
	if flags.has(FlagJSON) {
		out = translateJSONOperators(out, hints)
	}
	if flags.has(FlagReturning) {
		out, res.FollowupSQL, res.ReturningIsPost = translateReturning(out, primaryTable)
	}
	if flags.has(FlagDecimal) && schema != nil && schema.HasNumericColumn(primaryTable) {
		out = translateDecimalArithmetic(out)
	}

	res.SQL = out
	res.Flags = flags
	res.TypeHints = hints
	return res
}

// fastPathTriggers are the trigger substrings from spec.md §4.D: if
// none is present (and, for INSERT, none of the extra literal-shape
// checks fire), the statement is returned unchanged, zero-copy.
var fastPathTriggers = []string{
	"::", " ~ ", " !~ ", " ~* ", " !~* ",
	"pg_catalog", "PG_CATALOG",
	"[", "ANY(", "ALL(",
	" @> ", " <@ ", " && ",
	"NOW()", "CURRENT_",
	"AT TIME ZONE",
	"CAST(", "cast(",
	"JOIN", "UNION", "(SELECT",
	"GROUP BY", "HAVING",
	"unnest", "UNNEST",
}

// FastPathEligible implements spec.md §4.D's fast-path prescan.
func FastPathEligible(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	firstWord := firstToken(trimmed)
	switch strings.ToUpper(firstWord) {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
	default:
		return false
	}

	for _, t := range fastPathTriggers {
		if strings.Contains(sql, t) {
			return false
		}
	}

	if strings.EqualFold(firstWord, "INSERT") {
		if hasDateLikeLiteral(sql) || strings.Contains(sql, "{") || strings.Contains(sql, "ARRAY[") {
			return false
		}
	}

	// UPDATE's SET clause can store a bare date/timestamp literal into
	// an INTEGER-backed column exactly like INSERT's VALUES list, so it
	// needs the same exclusion to reach the literal->epoch rewrite step
	// (spec.md §4.D step 8).
	if strings.EqualFold(firstWord, "UPDATE") {
		if hasDateLikeLiteral(sql) {
			return false
		}
	}

	if idx := findReturningClause(sql); idx >= 0 {
		return isSimpleReturning(sql[idx:])
	}

	return true
}

func firstToken(s string) string {
	i := 0
	for i < len(s) && !isSpace(s[i]) {
		i++
	}
	return s[:i]
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// hasDateLikeLiteral looks for single-quoted literals containing '-'
// or ':' (likely date/time values), per spec.md §4.D's INSERT-specific
// fast-path exclusion.
func hasDateLikeLiteral(sql string) bool {
	i := 0
	for i < len(sql) {
		if sql[i] == '\'' {
			j := i + 1
			for j < len(sql) && sql[j] != '\'' {
				j++
			}
			lit := sql[i+1 : min(j, len(sql))]
			if strings.ContainsAny(lit, "-:") {
				return true
			}
			i = j + 1
			continue
		}
		i++
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func findReturningClause(sql string) int {
	upper := strings.ToUpper(sql)
	idx := strings.Index(upper, "RETURNING")
	if idx < 0 {
		return -1
	}
	return idx + len("RETURNING")
}

// isSimpleReturning inspects the RETURNING clause byte-by-byte: a
// clause consisting solely of "*" or a comma-separated identifier
// list is "simple" and preserved (spec.md §4.D).
func isSimpleReturning(clause string) bool {
	clause = strings.TrimSpace(clause)
	if clause == "*" {
		return true
	}
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			c := part[i]
			if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				return false
			}
		}
	}
	return true
}

// Prescan sets the flags bit for every step the statement actually
// needs, found by the same trigger-substring scan the fast path uses
// (spec.md §9: "a bitmap of needed transforms filled by a fast
// prescan").
func Prescan(sql string) Flags {
	var f Flags
	upper := strings.ToUpper(sql)

	if strings.Contains(sql, "pg_catalog.") || strings.Contains(sql, "PG_CATALOG.") {
		f |= FlagSchemaPrefix
	}
	if strings.Contains(upper, "NUMERIC(") && (strings.Contains(upper, "CAST(") || strings.Contains(sql, "::")) {
		f |= FlagNumericCast
	}
	if strings.Contains(sql, "::") || strings.Contains(upper, "CAST(") {
		f |= FlagGeneralCast
	}
	if containsRegexOperator(sql) {
		f |= FlagRegex
	}
	if containsArrayTrigger(sql, upper) {
		f |= FlagArray
	}
	if containsBatchDMLTrigger(upper) {
		f |= FlagBatchDML
	}
	if containsDateTimeTrigger(sql, upper) {
		f |= FlagDateTime
	}
	if containsJSONTrigger(sql) {
		f |= FlagJSON
	}
	if idx := findReturningClause(sql); idx >= 0 && !isSimpleReturning(sql[idx:]) {
		f |= FlagReturning
	} else if idx >= 0 {
		// Simple RETURNING still needs the RETURNING step to build the
		// follow-up SELECT / pre-capture, just not column translation.
		f |= FlagReturning
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
		f |= FlagDecimal
	}
	return f
}

func containsRegexOperator(sql string) bool {
	for _, op := range []string{" ~ ", " !~ ", " ~* ", " !~* "} {
		if strings.Contains(sql, op) {
			return true
		}
	}
	return false
}

func containsArrayTrigger(sql, upper string) bool {
	for _, t := range []string{"@>", "<@", "&&", "ANY(", "ALL(", "ARRAY[", "unnest", "UNNEST"} {
		if strings.Contains(sql, t) {
			return true
		}
	}
	return strings.Contains(sql, "[") && strings.Contains(sql, "]")
}

func containsBatchDMLTrigger(upper string) bool {
	return (strings.HasPrefix(upper, "DELETE") && strings.Contains(upper, "USING") && strings.Contains(upper, "VALUES")) ||
		(strings.HasPrefix(upper, "UPDATE") && strings.Contains(upper, " FROM ") && strings.Contains(upper, "VALUES"))
}

func containsDateTimeTrigger(sql, upper string) bool {
	for _, t := range []string{"NOW()", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "EXTRACT(", "DATE_TRUNC(", "AT TIME ZONE"} {
		if strings.Contains(upper, t) {
			return true
		}
	}
	return hasDateLikeLiteral(sql)
}

func containsJSONTrigger(sql string) bool {
	for _, t := range []string{"->", "->>", "#>", "#>>", "?|", "?&", "row_to_json(", "array_agg("} {
		if strings.Contains(sql, t) {
			return true
		}
	}
	return false
}
