package catalog

import (
	"strconv"
	"strings"

	"github.com/pgsqlite/pgsqlite/pgerr"
)

// predicate is one recognized WHERE-clause term: equality, IN(...),
// or LIKE, conjoined with AND only — spec.md §4.E's explicit recognized
// subset ("equality, IN, LIKE, AND of the foregoing").
type predicate struct {
	column string
	op     string // "=", "in", "like"
	values []string
}

// applyFilter parses sql's WHERE clause (if any) against the known
// column set and filters rows in place. An unrecognized column in the
// WHERE clause surfaces FeatureNotSupported per spec.md §4.E rather
// than silently ignoring the predicate.
func applyFilter(rows []Row, knownCols []string, sql string) ([]Row, []string, error) {
	preds, err := parseWhere(sql, knownCols)
	if err != nil {
		return nil, nil, err
	}
	if len(preds) == 0 {
		return rows, knownCols, nil
	}
	var out []Row
	for _, r := range rows {
		if matchesAll(r, preds) {
			out = append(out, r)
		}
	}
	return out, knownCols, nil
}

func parseWhere(sql string, knownCols []string) ([]predicate, error) {
	upper := strings.ToUpper(sql)
	idx := strings.Index(upper, "WHERE")
	if idx < 0 {
		return nil, nil
	}
	clause := sql[idx+len("WHERE"):]
	if end := indexTopLevelClauseEnd(clause); end >= 0 {
		clause = clause[:end]
	}

	known := make(map[string]bool, len(knownCols))
	for _, c := range knownCols {
		known[strings.ToLower(c)] = true
	}

	var preds []predicate
	for _, term := range splitTopLevelAnd(clause) {
		p, ok, err := parseTerm(strings.TrimSpace(term))
		if err != nil {
			return nil, err
		}
		if !ok {
			col := firstIdentifier(strings.TrimSpace(term))
			if col != "" && (col[0] < '0' || col[0] > '9') && !known[strings.ToLower(col)] {
				return nil, pgerr.FeatureNotSupportedErr("catalog column " + col)
			}
			continue
		}
		if !known[strings.ToLower(p.column)] {
			return nil, pgerr.FeatureNotSupportedErr("catalog column " + p.column)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func indexTopLevelClauseEnd(s string) int {
	upper := strings.ToUpper(s)
	for _, kw := range []string{" ORDER BY", " GROUP BY", " LIMIT", " HAVING"} {
		if i := strings.Index(upper, kw); i >= 0 {
			return i
		}
	}
	return -1
}

func splitTopLevelAnd(s string) []string {
	upper := strings.ToUpper(s)
	var parts []string
	depth := 0
	last := 0
	for i := 0; i+5 <= len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && upper[i:i+5] == " AND " {
			parts = append(parts, s[last:i])
			last = i + 5
			i += 4
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func parseTerm(term string) (predicate, bool, error) {
	if term == "" {
		return predicate{}, false, nil
	}
	upper := strings.ToUpper(term)

	if idx := strings.Index(upper, " LIKE "); idx >= 0 {
		col := strings.TrimSpace(term[:idx])
		val := strings.Trim(strings.TrimSpace(term[idx+len(" LIKE "):]), "'")
		return predicate{column: col, op: "like", values: []string{val}}, true, nil
	}
	if idx := strings.Index(upper, " IN "); idx >= 0 {
		col := strings.TrimSpace(term[:idx])
		rest := strings.TrimSpace(term[idx+len(" IN "):])
		rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
		var vals []string
		for _, v := range strings.Split(rest, ",") {
			vals = append(vals, strings.Trim(strings.TrimSpace(v), "'"))
		}
		return predicate{column: col, op: "in", values: vals}, true, nil
	}
	if idx := strings.Index(term, "="); idx >= 0 {
		col := strings.TrimSpace(term[:idx])
		val := strings.Trim(strings.TrimSpace(term[idx+1:]), "'")
		return predicate{column: col, op: "=", values: []string{val}}, true, nil
	}
	return predicate{}, false, nil
}

func matchesAll(r Row, preds []predicate) bool {
	for _, p := range preds {
		v, ok := r[strings.ToLower(p.column)]
		if !ok {
			return false
		}
		s := valueString(v)
		switch p.op {
		case "=":
			if s != p.values[0] {
				return false
			}
		case "in":
			found := false
			for _, want := range p.values {
				if s == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "like":
			if !likeMatch(s, p.values[0]) {
				return false
			}
		}
	}
	return true
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		if x {
			return "t"
		}
		return "f"
	default:
		return ""
	}
}

// likeMatch implements the SQL LIKE subset this package needs: '%' as
// a wildcard, no escape-character support (none of the catalog queries
// the original tests exercise need it).
func likeMatch(s, pattern string) bool {
	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return s == pattern
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
