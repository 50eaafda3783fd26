package rewrite

import "strings"

// translateReturning implements step 10 (spec.md §4.D / §4.F): SQLite
// has no RETURNING support for the versions this repo targets as a
// baseline, so an INSERT ... RETURNING is split into the bare INSERT
// plus a follow-up SELECT keyed on last_insert_rowid(); an
// UPDATE/DELETE ... RETURNING instead needs its follow-up SELECT run
// *before* the mutation, since the rows (and their pre-update values
// for UPDATE) would otherwise no longer be identifiable afterward.
// Grounded on original_source/src/query/returning_translator.rs.
func translateReturning(sql, primaryTable string) (stripped, followup string, isPost bool) {
	upper := strings.ToUpper(sql)
	idx := strings.Index(upper, "RETURNING")
	if idx < 0 {
		return sql, "", false
	}
	clause := strings.TrimSpace(sql[idx+len("RETURNING"):])
	stripped = strings.TrimSpace(sql[:idx])

	switch {
	case strings.HasPrefix(upper, "INSERT"):
		followup = "SELECT " + clause + " FROM " + primaryTable + " WHERE rowid = last_insert_rowid()"
		return stripped, followup, true
	case strings.HasPrefix(upper, "UPDATE"), strings.HasPrefix(upper, "DELETE"):
		whereIdx := indexTopLevelKeyword(stripped, "WHERE")
		predicate := ""
		if whereIdx >= 0 {
			predicate = " " + strings.TrimSpace(stripped[whereIdx:])
		}
		followup = "SELECT " + clause + " FROM " + primaryTable + predicate
		return stripped, followup, false
	}
	return sql, "", false
}

// translateDecimalArithmetic implements step 11: arithmetic operators
// (+ - * /) applied to columns known (via SchemaView) to be NUMERIC
// are rewritten to calls to pg_decimal_* helper functions (not
// registered with SQLite by this repository; see the package doc).
// Grounded on
// original_source/src/types/decimal_handler.rs's arithmetic overloads.
//
// This step only fires when the caller has already confirmed
// (schema.HasNumericColumn) that the query's primary table has at
// least one NUMERIC column — see Apply in rewrite.go — so the scan
// here is limited to the four arithmetic operators without needing to
// re-check column types expression-by-expression, so arithmetic on
// non-NUMERIC columns of the same table is rewritten too.
func translateDecimalArithmetic(sql string) string {
	for _, op := range []struct {
		symbol string
		fn     string
	}{
		{"+", "pg_decimal_add"},
		{"-", "pg_decimal_sub"},
		{"*", "pg_decimal_mul"},
		{"/", "pg_decimal_div"},
	} {
		sql = translateArithmeticOp(sql, op.symbol, op.fn)
	}
	return sql
}

func translateArithmeticOp(sql, symbol, fn string) string {
	i := 0
	var b strings.Builder
	for i < len(sql) {
		if sql[i] == symbol[0] && !insideStringLiteral(sql, i) && isArithmeticContext(sql, i) {
			lhsStart := scanBackExpr(sql, i)
			lhs := strings.TrimSpace(sql[lhsStart:i])
			rhsEnd := scanForwardExpr(sql, i+1)
			rhs := strings.TrimSpace(sql[i+1 : rhsEnd])
			if lhs != "" && rhs != "" {
				b2 := b.String()
				b2 = strings.TrimSuffix(b2, lhs)
				b.Reset()
				b.WriteString(b2)
				b.WriteString(fn + "(" + lhs + ", " + rhs + ")")
				i = rhsEnd
				continue
			}
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

// isArithmeticContext rejects "*" used as SELECT *. A unary "-" passes
// this check; translateArithmeticOp then leaves it alone because its
// left operand is empty.
func isArithmeticContext(sql string, i int) bool {
	if sql[i] == '*' {
		prev := lastNonSpace(sql, i)
		if prev < 0 || sql[prev] == ',' || sql[prev] == '(' {
			return false
		}
	}
	return true
}

func lastNonSpace(sql string, before int) int {
	j := before - 1
	for j >= 0 && isSpace(sql[j]) {
		j--
	}
	return j
}

func insideStringLiteral(sql string, pos int) bool {
	inLit := false
	for i := 0; i < pos; i++ {
		if sql[i] == '\'' {
			inLit = !inLit
		}
	}
	return inLit
}
