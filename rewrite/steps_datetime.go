package rewrite

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// datetimeFunctionRewrites maps PG's datetime functions/keywords to
// pg_* helper function calls (not registered with SQLite by this
// repository; see the package doc), grounded on
// original_source/src/query/datetime_translator.rs.
var datetimeFunctionRewrites = []struct {
	from string
	to   string
}{
	{"CURRENT_TIMESTAMP", "pg_now()"},
	{"NOW()", "pg_now()"},
	{"CURRENT_DATE", "pg_today()"},
	{"CURRENT_TIME", "pg_curtime()"},
}

// translateDateTime implements step 8: datetime function calls and
// AT TIME ZONE become calls to pg_* helper functions, and bare
// date/timestamp string literals are tagged with a DATE/TIMESTAMP type
// hint.
func translateDateTime(sql string, hints map[string]TypeHint) string {
	upper := strings.ToUpper(sql)
	for _, r := range datetimeFunctionRewrites {
		from := 0
		for {
			idx := strings.Index(upper[from:], r.from)
			if idx < 0 {
				break
			}
			idx += from
			prev := byte(' ')
			if idx > 0 {
				prev = sql[idx-1]
			}
			if prev == '_' || (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z') || (prev >= '0' && prev <= '9') {
				from = idx + len(r.from)
				continue
			}
			sql = sql[:idx] + r.to + sql[idx+len(r.from):]
			upper = strings.ToUpper(sql)
			from = idx + len(r.to)
		}
	}

	sql = translateExtract(sql)
	sql = translateDateTrunc(sql)
	sql = translateAtTimeZone(sql)
	sql = tagDateLiterals(sql, hints)
	return sql
}

// translateExtract rewrites EXTRACT(field FROM expr) into
// pg_extract('field', expr), since SQLite has no EXTRACT syntax.
func translateExtract(sql string) string {
	upper := strings.ToUpper(sql)
	for {
		idx := strings.Index(upper, "EXTRACT(")
		if idx < 0 {
			break
		}
		depth := 0
		j := idx + len("EXTRACT(")
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
		fromIdx := indexTopLevelKeyword(inner, "FROM")
		if fromIdx < 0 {
			sql = sql[:idx] + "pg_extract(" + sql[start:j+1]
			upper = strings.ToUpper(sql)
			continue
		}
		field := strings.TrimSpace(inner[:fromIdx])
		expr := strings.TrimSpace(inner[fromIdx+4:])
		replacement := "pg_extract('" + strings.ToLower(field) + "', " + expr + ")"
		sql = sql[:idx] + replacement + sql[j+1:]
		upper = strings.ToUpper(sql)
	}
	return sql
}

func indexTopLevelKeyword(s, kw string) int {
	upper := strings.ToUpper(s)
	depth := 0
	for i := 0; i+len(kw) <= len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && upper[i:i+len(kw)] == kw &&
			(i == 0 || isSpace(s[i-1])) && (i+len(kw) == len(s) || isSpace(s[i+len(kw)])) {
			return i
		}
	}
	return -1
}

// translateDateTrunc rewrites DATE_TRUNC('unit', expr) to
// pg_date_trunc('unit', expr) — same arity, just a rename to the pg_*
// helper name.
func translateDateTrunc(sql string) string {
	return strings.ReplaceAll(strings.ReplaceAll(sql, "DATE_TRUNC(", "pg_date_trunc("), "date_trunc(", "pg_date_trunc(")
}

// translateAtTimeZone rewrites "expr AT TIME ZONE 'tz'" into
// pg_at_time_zone(expr, 'tz').
func translateAtTimeZone(sql string) string {
	upper := strings.ToUpper(sql)
	for {
		idx := strings.Index(upper, "AT TIME ZONE")
		if idx < 0 {
			break
		}
		exprStart := scanBackExpr(sql, idx)
		expr := strings.TrimSpace(sql[exprStart:idx])
		rest := sql[idx+len("AT TIME ZONE"):]
		rest = strings.TrimLeft(rest, " \t")
		tzEnd := scanForwardExpr(sql, idx+len("AT TIME ZONE")+(len(sql[idx+len("AT TIME ZONE"):])-len(rest)))
		tz := strings.TrimSpace(sql[idx+len("AT TIME ZONE")+(len(sql[idx+len("AT TIME ZONE"):])-len(rest)) : tzEnd])
		replacement := "pg_at_time_zone(" + expr + ", " + tz + ")"
		sql = sql[:exprStart] + replacement + sql[tzEnd:]
		upper = strings.ToUpper(sql)
	}
	return sql
}

// tagDateLiterals scans for quoted literals shaped like a date or
// timestamp and records a type hint, so that a column compared against
// or assigned such a literal gets the right wire OID downstream. For
// INSERT/UPDATE — the storage-mutating statements — spec.md §4.D step
// 8 additionally requires the literal itself rewritten in place to the
// integer-storage form (epoch days / microseconds), since every
// DATE/TIMESTAMP column is stored as an INTEGER, not the literal's
// original text.
func tagDateLiterals(sql string, hints map[string]TypeHint) string {
	rewrite := isInsertOrUpdate(sql)
	var b strings.Builder
	i := 0
	for i < len(sql) {
		if sql[i] != '\'' {
			b.WriteByte(sql[i])
			i++
			continue
		}
		j := i + 1
		for j < len(sql) && sql[j] != '\'' {
			j++
		}
		end := min(j, len(sql))
		lit := sql[i+1 : end]

		switch {
		case looksLikeDate(lit):
			hints[lit] = TypeHint{SuggestedOID: pgtype.DateOID, ExpressionType: "date-literal"}
			if rewrite {
				if days, ok := epochDaysForDateLiteral(lit); ok {
					b.WriteString(strconv.FormatInt(days, 10))
					i = j + 1
					continue
				}
			}
		case looksLikeTimestamp(lit):
			hints[lit] = TypeHint{SuggestedOID: pgtype.TimestampOID, ExpressionType: "timestamp-literal"}
			if rewrite {
				if micros, ok := epochMicrosForTimestampLiteral(lit); ok {
					b.WriteString(strconv.FormatInt(micros, 10))
					i = j + 1
					continue
				}
			}
		}

		if j < len(sql) {
			b.WriteString(sql[i : j+1])
		} else {
			b.WriteString(sql[i:j])
		}
		i = j + 1
	}
	return b.String()
}

// isInsertOrUpdate reports whether sql is a mutating statement whose
// literal values end up stored in SQLite columns (as opposed to a
// SELECT/DELETE predicate, where the literal is only ever compared
// against an already-integer column and is left as text).
func isInsertOrUpdate(sql string) bool {
	switch strings.ToUpper(firstToken(strings.TrimSpace(sql))) {
	case "INSERT", "UPDATE":
		return true
	}
	return false
}

// epochDaysForDateLiteral parses a 'YYYY-MM-DD' literal into days
// since the Unix epoch, matching this server's internal DATE storage
// (spec.md's E3 example: 19737 for 2024-01-15).
func epochDaysForDateLiteral(s string) (int64, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, false
	}
	return t.Unix() / 86400, true
}

// epochMicrosForTimestampLiteral parses a bare timestamp literal into
// microseconds since the Unix epoch, matching this server's internal
// TIMESTAMP storage.
func epochMicrosForTimestampLiteral(s string) (int64, bool) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMicro(), true
		}
	}
	return 0, false
}

func looksLikeDate(s string) bool {
	return len(s) == 10 && s[4] == '-' && s[7] == '-' && allDigitsAt(s, 0, 4) && allDigitsAt(s, 5, 2) && allDigitsAt(s, 8, 2)
}

func looksLikeTimestamp(s string) bool {
	return len(s) >= 19 && looksLikeDate(s[:10]) && (s[10] == ' ' || s[10] == 'T')
}

func allDigitsAt(s string, start, n int) bool {
	if start+n > len(s) {
		return false
	}
	for i := start; i < start+n; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
