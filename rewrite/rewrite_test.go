package rewrite

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

type fakeSchema struct {
	numericTables map[string]bool
	enums         map[string][]string
}

func (f fakeSchema) HasNumericColumn(table string) bool { return f.numericTables[table] }

func (f fakeSchema) EnumLabels(table, column string) ([]string, bool) {
	labels, ok := f.enums[table+"."+column]
	return labels, ok
}

func TestFastPathEligible_PlainStatementsPass(t *testing.T) {
	assert.True(t, FastPathEligible("SELECT id, name FROM users WHERE id = 1"))
	assert.True(t, FastPathEligible("UPDATE users SET name = 'bob' WHERE id = 1"))
	assert.True(t, FastPathEligible("DELETE FROM users WHERE id = 1"))
}

func TestFastPathEligible_RejectsTriggerSubstrings(t *testing.T) {
	assert.False(t, FastPathEligible("SELECT id::text FROM users"))
	assert.False(t, FastPathEligible("SELECT * FROM users WHERE name ~ 'b.*'"))
	assert.False(t, FastPathEligible("SELECT NOW()"))
	assert.False(t, FastPathEligible("SELECT * FROM pg_catalog.pg_type"))
	assert.False(t, FastPathEligible("SELECT tags[1] FROM items"))
}

func TestFastPathEligible_RejectsNonDML(t *testing.T) {
	assert.False(t, FastPathEligible("CREATE TABLE foo (id INTEGER)"))
	assert.False(t, FastPathEligible("BEGIN"))
}

func TestFastPathEligible_InsertWithDateLikeLiteralIsExcluded(t *testing.T) {
	assert.False(t, FastPathEligible("INSERT INTO events (id, created_at) VALUES (1, '2024-01-01')"))
}

func TestFastPathEligible_UpdateWithDateLikeLiteralIsExcluded(t *testing.T) {
	assert.False(t, FastPathEligible("UPDATE events SET created_at = '2024-01-15' WHERE id = 1"))
}

func TestFastPathEligible_SimpleReturningStillFastPath(t *testing.T) {
	assert.True(t, FastPathEligible("INSERT INTO users (name) VALUES ('bob') RETURNING id, name"))
	assert.True(t, FastPathEligible("INSERT INTO users (name) VALUES ('bob') RETURNING *"))
}

func TestFastPathEligible_ComplexReturningIsExcluded(t *testing.T) {
	assert.False(t, FastPathEligible("INSERT INTO users (name) VALUES ('bob') RETURNING id + 1"))
}

func TestRewrite_FastPathReturnsIdenticalString(t *testing.T) {
	sql := "SELECT id FROM users WHERE id = 1"
	res := Rewrite(sql, "users", nil)
	assert.Equal(t, sql, res.SQL)
	assert.Zero(t, res.Flags)
	assert.Nil(t, res.TypeHints)
}

func TestRewrite_NowRewrittenToHelper(t *testing.T) {
	res := Rewrite("SELECT NOW()", "", fakeSchema{})
	assert.Contains(t, res.SQL, "pg_now()")
	assert.NotContains(t, res.SQL, "NOW()")
}

func TestRewrite_PgCatalogPrefixStripped(t *testing.T) {
	res := Rewrite("SELECT * FROM pg_catalog.pg_type", "", fakeSchema{})
	assert.NotContains(t, res.SQL, "pg_catalog.")
	assert.Contains(t, res.SQL, "pg_type")
}

func TestRewrite_JSONArrowRewrittenToJSONExtract(t *testing.T) {
	sql := "SELECT data->'name' FROM docs"
	res := Apply(sql, "docs", Prescan(sql), fakeSchema{})
	assert.Contains(t, res.SQL, "json_extract(data, '$.name')")
}

func TestRewrite_DecimalStepOnlyRunsWhenSchemaReportsNumeric(t *testing.T) {
	withNumeric := Rewrite("SELECT price::NUMERIC(10,2) FROM products", "products",
		fakeSchema{numericTables: map[string]bool{"products": true}})
	assert.True(t, withNumeric.Flags.has(FlagDecimal))

	withoutNumeric := Rewrite("SELECT price::NUMERIC(10,2) FROM products", "products",
		fakeSchema{numericTables: map[string]bool{}})
	assert.Equal(t, withNumeric.Flags, withoutNumeric.Flags)

	arith := "SELECT price*qty, CAST(id AS TEXT) FROM products"
	gated := Rewrite(arith, "products", fakeSchema{numericTables: map[string]bool{"products": true}})
	assert.Contains(t, gated.SQL, "pg_decimal_mul(price, qty)")
	ungated := Rewrite(arith, "products", fakeSchema{numericTables: map[string]bool{}})
	assert.NotContains(t, ungated.SQL, "pg_decimal_mul")
}

func TestRewrite_InsertDateLiteralRewrittenToEpochDays(t *testing.T) {
	res := Rewrite("INSERT INTO events (id, created_at) VALUES (1, '2024-01-15')", "events", fakeSchema{})
	assert.Contains(t, res.SQL, "19737")
	assert.NotContains(t, res.SQL, "2024-01-15")
}

func TestRewrite_UpdateDateLiteralRewrittenToEpochDays(t *testing.T) {
	res := Rewrite("UPDATE events SET created_at = '2024-01-15' WHERE id = 1", "events", fakeSchema{})
	assert.Contains(t, res.SQL, "19737")
	assert.NotContains(t, res.SQL, "2024-01-15")
}

func TestRewrite_InsertTimestampLiteralRewrittenToEpochMicros(t *testing.T) {
	res := Rewrite("INSERT INTO events (id, at) VALUES (1, '2024-01-15 12:30:00')", "events", fakeSchema{})
	assert.NotContains(t, res.SQL, "2024-01-15 12:30:00")
	assert.Regexp(t, `VALUES \(1, \d+\)`, res.SQL)
}

func TestRewrite_SelectDateLiteralLeftAsTextButHinted(t *testing.T) {
	res := Rewrite("SELECT * FROM events WHERE created_at = '2024-01-15' AND NOW() > created_at", "events", fakeSchema{})
	assert.Contains(t, res.SQL, "2024-01-15")
	assert.Equal(t, uint32(pgtype.DateOID), res.TypeHints["2024-01-15"].SuggestedOID)
}

func TestPrescan_SetsExpectedFlags(t *testing.T) {
	f := Prescan("SELECT id::text, data->'k' FROM t WHERE name ~ 'a.*' AND NOW() > created_at")
	assert.True(t, f.has(FlagGeneralCast))
	assert.True(t, f.has(FlagJSON))
	assert.True(t, f.has(FlagRegex))
	assert.True(t, f.has(FlagDateTime))
}
