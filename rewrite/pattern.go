package rewrite

import "strings"

// QueryPattern classifies a statement's shape for the executor's
// fast-path/batch decisions (spec.md §4.C item 3 / §9), grounded on
// original_source/src/optimization/query_pattern.rs.
type QueryPattern int

const (
	PatternUnknown QueryPattern = iota
	PatternSimpleSelect
	PatternSelectByPK
	PatternInsertSingle
	PatternInsertBatch
	PatternUpdateByPK
	PatternDeleteByPK
	PatternAggregate
	PatternJoin
	PatternCatalog
)

func (p QueryPattern) String() string {
	switch p {
	case PatternSimpleSelect:
		return "simple_select"
	case PatternSelectByPK:
		return "select_by_pk"
	case PatternInsertSingle:
		return "insert_single"
	case PatternInsertBatch:
		return "insert_batch"
	case PatternUpdateByPK:
		return "update_by_pk"
	case PatternDeleteByPK:
		return "delete_by_pk"
	case PatternAggregate:
		return "aggregate"
	case PatternJoin:
		return "join"
	case PatternCatalog:
		return "catalog"
	default:
		return "unknown"
	}
}

// OptimizationHints is what Recognize derives for the executor and
// cache.StmtEntry to consume, avoiding re-deriving this on every
// execution of the same fingerprint.
type OptimizationHints struct {
	Pattern            QueryPattern
	UseFastPath         bool
	ExpectedResultSize  string // one of cache.ResultSize's sizes, spelled as a string so this package does not import cache
}

// Recognize classifies sql by shape. The query package does not call
// it and nothing stores its result in a cache.StmtEntry; its callers
// are this package's tests.
func Recognize(sql, primaryTable string, pkColumn string) OptimizationHints {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if strings.Contains(upper, "PG_CATALOG") || strings.Contains(upper, "INFORMATION_SCHEMA") {
		return OptimizationHints{Pattern: PatternCatalog, UseFastPath: false, ExpectedResultSize: "small"}
	}

	switch {
	case strings.HasPrefix(upper, "SELECT"):
		if strings.Contains(upper, "JOIN") {
			return OptimizationHints{Pattern: PatternJoin, UseFastPath: false, ExpectedResultSize: "unknown"}
		}
		if strings.Contains(upper, "GROUP BY") || hasAggregateFunction(upper) {
			return OptimizationHints{Pattern: PatternAggregate, UseFastPath: false, ExpectedResultSize: "single"}
		}
		if pkColumn != "" && whereIsPKEquality(upper, pkColumn) {
			return OptimizationHints{Pattern: PatternSelectByPK, UseFastPath: true, ExpectedResultSize: "single"}
		}
		return OptimizationHints{Pattern: PatternSimpleSelect, UseFastPath: true, ExpectedResultSize: "unknown"}

	case strings.HasPrefix(upper, "INSERT"):
		if strings.Count(upper, "VALUES") == 1 && strings.Count(sql, "),(") > 0 {
			return OptimizationHints{Pattern: PatternInsertBatch, UseFastPath: false, ExpectedResultSize: "empty"}
		}
		return OptimizationHints{Pattern: PatternInsertSingle, UseFastPath: true, ExpectedResultSize: "empty"}

	case strings.HasPrefix(upper, "UPDATE"):
		if pkColumn != "" && whereIsPKEquality(upper, pkColumn) {
			return OptimizationHints{Pattern: PatternUpdateByPK, UseFastPath: true, ExpectedResultSize: "empty"}
		}
		return OptimizationHints{Pattern: PatternUnknown, UseFastPath: false, ExpectedResultSize: "empty"}

	case strings.HasPrefix(upper, "DELETE"):
		if pkColumn != "" && whereIsPKEquality(upper, pkColumn) {
			return OptimizationHints{Pattern: PatternDeleteByPK, UseFastPath: true, ExpectedResultSize: "empty"}
		}
		return OptimizationHints{Pattern: PatternUnknown, UseFastPath: false, ExpectedResultSize: "empty"}
	}

	return OptimizationHints{Pattern: PatternUnknown, UseFastPath: false, ExpectedResultSize: "unknown"}
}

func hasAggregateFunction(upper string) bool {
	for _, fn := range []string{"COUNT(", "SUM(", "AVG(", "MIN(", "MAX("} {
		if strings.Contains(upper, fn) {
			return true
		}
	}
	return false
}

func whereIsPKEquality(upper, pkColumn string) bool {
	idx := strings.Index(upper, "WHERE")
	if idx < 0 {
		return false
	}
	clause := upper[idx+len("WHERE"):]
	pk := strings.ToUpper(pkColumn)
	eqIdx := strings.Index(clause, pk+" =")
	if eqIdx < 0 {
		eqIdx = strings.Index(clause, pk+"=")
	}
	if eqIdx < 0 {
		return false
	}
	// Reject compound WHERE clauses (AND/OR) beyond the PK equality —
	// those need the generic path, not the by-PK fast path.
	return !strings.Contains(clause, " AND ") && !strings.Contains(clause, " OR ")
}
