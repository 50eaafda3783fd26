// Package ddl implements the CREATE TABLE translator (component I):
// it walks a column-definition list at paren-depth zero, without a
// full SQL parser, the same way the teacher's url.go/conn.go walk a
// DSN's key=value tokens at quote/paren-depth zero (scanner,
// SkipSpaces). Here the tokens are column names, PG type names and
// constraints instead of connection parameters.
package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgsqlite/pgsqlite/oidinfo"
	"github.com/pgsqlite/pgsqlite/shadow"
)

// EnumLookup is the subset of *shadow.Store the translator needs to
// resolve a column's type name to an already-registered ENUM's label
// set, for trigger generation.
type EnumLookup interface {
	EnumByName(name string) (shadow.EnumType, string, bool, error)
}

// Plan is the result of translating one DDL statement: the SQLite DDL
// to execute, plus the shadow-schema rows and triggers it implies.
// Kind is the exact command tag (spec.md §6).
type Plan struct {
	Kind string

	SQLiteSQL string // empty when the statement is pure metadata (no engine DDL to run)
	Table     string

	Columns    []shadow.Column
	ArrayCols  []shadow.ArrayColumn
	EnumUsages []EnumUsage
	Triggers   []string // CREATE TRIGGER statements, run after SQLiteSQL

	Enum           *shadow.EnumType // set for CREATE TYPE ... AS ENUM
	EnumLabelsJSON string

	DropTable    string // set for DROP TABLE
	RenameTable  [2]string // [from, to], set for ALTER TABLE ... RENAME TO
	RenameColumn struct {
		Table, From, To string
	}
	AddColumn bool // true when Columns holds a single ADD COLUMN row
}

// EnumUsage is one (table, column) -> enum type relationship
// discovered while translating a CREATE TABLE.
type EnumUsage struct {
	Table, Column, TypeName string
}

// columnType is the parsed shape of one column's type clause.
type columnType struct {
	SQLiteType string
	OID        oidinfo.OID
	Modifier   int32
	IsArray    bool
	ElementOID oidinfo.OID
	IsSerial   bool
	EnumName   string // set when the raw type isn't a built-in PG type
}

// TranslateCreateTable handles "CREATE TABLE [IF NOT EXISTS] name (col_def, …)"
// per spec.md §4.I: translated SQLite DDL, one shadow row per column,
// array-column rows, ENUM-usage rows plus BEFORE INSERT/UPDATE
// validation triggers, and SERIAL-vs-PRIMARY-KEY redundancy removal.
func TranslateCreateTable(sql string, enums EnumLookup) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "CREATE TABLE") {
		return nil, fmt.Errorf("ddl: not a CREATE TABLE statement")
	}
	rest = strings.TrimSpace(rest[len("CREATE TABLE"):])

	ifNotExists := false
	if strings.HasPrefix(strings.ToUpper(rest), "IF NOT EXISTS") {
		ifNotExists = true
		rest = strings.TrimSpace(rest[len("IF NOT EXISTS"):])
	}

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return nil, fmt.Errorf("ddl: malformed CREATE TABLE: missing column list")
	}
	table := strings.TrimSpace(rest[:open])
	close := matchingParen(rest, open)
	if close < 0 {
		return nil, fmt.Errorf("ddl: malformed CREATE TABLE: unbalanced parens")
	}
	body := rest[open+1 : close]

	plan := &Plan{Kind: "CREATE TABLE", Table: table}
	var colDefs []string
	var tableConstraints []string
	serialCols := map[string]bool{}

	for _, item := range splitTopLevelComma(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if isTableConstraintStart(item) {
			tableConstraints = append(tableConstraints, item)
			continue
		}

		col, err := parseColumnDef(item)
		if err != nil {
			return nil, err
		}
		colDefs = append(colDefs, col.sqliteDef())

		shadowCol := shadow.Column{
			Table:        table,
			Column:       col.Name,
			PgType:       col.Type.OID,
			SQLiteType:   col.Type.SQLiteType,
			TypeModifier: col.Type.Modifier,
			Ordinal:      len(plan.Columns),
		}
		plan.Columns = append(plan.Columns, shadowCol)

		if col.Type.IsArray {
			plan.ArrayCols = append(plan.ArrayCols, shadow.ArrayColumn{
				Table:      table,
				Column:     col.Name,
				ElementOID: col.Type.ElementOID,
				Dimensions: 1,
			})
		}
		if col.Type.EnumName != "" {
			plan.EnumUsages = append(plan.EnumUsages, EnumUsage{Table: table, Column: col.Name, TypeName: col.Type.EnumName})
			if enum, labelsJSON, ok, err := enums.EnumByName(col.Type.EnumName); err == nil && ok {
				plan.Triggers = append(plan.Triggers, buildEnumTriggers(table, col.Name, enum.Name, enum.Labels)...)
				_ = labelsJSON
			}
		}
		if col.Type.IsSerial {
			serialCols[strings.ToLower(col.Name)] = true
		}
	}

	// Redundancy removal: a table-level PRIMARY KEY(col) naming a
	// SERIAL/BIGSERIAL column is dropped, since that column's own
	// definition already emitted INTEGER PRIMARY KEY AUTOINCREMENT
	// (spec.md §4.I).
	var keptConstraints []string
	for _, c := range tableConstraints {
		if col, ok := singleColumnPrimaryKey(c); ok && serialCols[strings.ToLower(col)] {
			continue
		}
		keptConstraints = append(keptConstraints, c)
	}

	allDefs := append(append([]string{}, colDefs...), keptConstraints...)
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(table)
	b.WriteString(" (\n\t")
	b.WriteString(strings.Join(allDefs, ",\n\t"))
	b.WriteString("\n)")
	plan.SQLiteSQL = b.String()

	return plan, nil
}

type parsedColumn struct {
	Name string
	Type columnType
	Rest string // trailing constraint tokens, translated verbatim onto the SQLite column def
}

func (c parsedColumn) sqliteDef() string {
	def := c.Name + " " + c.Type.SQLiteType
	if c.Rest != "" {
		def += " " + c.Rest
	}
	return def
}

// parseColumnDef tokenizes one column definition ("name TYPE(args)
// CONSTRAINT...") at paren/quote depth zero, the same token-at-a-time
// walk as the teacher's parseOpts loop.
func parseColumnDef(def string) (parsedColumn, error) {
	tokens := scanTokens(def)
	if len(tokens) < 2 {
		return parsedColumn{}, fmt.Errorf("ddl: malformed column definition %q", def)
	}
	name := tokens[0]
	rest := tokens[1:]

	typeTokens, constraintTokens := splitTypeTokens(rest)
	rawType := strings.Join(typeTokens, " ")
	ct := mapColumnType(rawType)

	constraintStr := rewriteConstraints(strings.Join(constraintTokens, " "))
	if ct.IsSerial {
		constraintStr = stripPrimaryKeyToken(constraintStr)
	}

	return parsedColumn{Name: name, Type: ct, Rest: constraintStr}, nil
}

// constraintStop lists the keywords that end a column's type clause
// and begin its constraint clause.
var constraintStop = map[string]bool{
	"NOT": true, "NULL": true, "PRIMARY": true, "UNIQUE": true,
	"DEFAULT": true, "REFERENCES": true, "CHECK": true,
	"COLLATE": true, "CONSTRAINT": true, "GENERATED": true,
}

func splitTypeTokens(tokens []string) (typeTokens, constraintTokens []string) {
	for i, t := range tokens {
		if constraintStop[strings.ToUpper(t)] {
			return tokens[:i], tokens[i:]
		}
	}
	return tokens, nil
}

// rewriteConstraints rewrites DEFAULT NOW()/CURRENT_TIMESTAMP to the
// epoch-microseconds storage unit (spec.md §4.I's datetime-default
// rule); every other constraint token passes through unchanged.
func rewriteConstraints(s string) string {
	upper := strings.ToUpper(s)
	for _, kw := range []string{"NOW()", "CURRENT_TIMESTAMP"} {
		if idx := strings.Index(upper, "DEFAULT "+kw); idx >= 0 {
			s = s[:idx] + "DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000000)" + s[idx+len("DEFAULT "+kw):]
			upper = strings.ToUpper(s)
		}
	}
	return s
}

func stripPrimaryKeyToken(s string) string {
	upper := strings.ToUpper(s)
	idx := strings.Index(upper, "PRIMARY KEY")
	if idx < 0 {
		return s
	}
	return strings.TrimSpace(s[:idx] + s[idx+len("PRIMARY KEY"):])
}

func isTableConstraintStart(item string) bool {
	upper := strings.ToUpper(strings.TrimSpace(item))
	for _, kw := range []string{"PRIMARY KEY", "UNIQUE", "FOREIGN KEY", "CHECK", "CONSTRAINT"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// singleColumnPrimaryKey reports the column name when c is exactly
// "PRIMARY KEY (col)" naming one column.
func singleColumnPrimaryKey(c string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(c))
	if !strings.HasPrefix(upper, "PRIMARY KEY") {
		return "", false
	}
	open := strings.IndexByte(c, '(')
	close := strings.LastIndexByte(c, ')')
	if open < 0 || close < 0 || close < open {
		return "", false
	}
	inner := strings.TrimSpace(c[open+1 : close])
	if strings.ContainsAny(inner, ",") {
		return "", false
	}
	return inner, true
}

func matchingParen(s string, open int) int {
	depth := 0
	inQuote := byte(0)
	for i := open; i < len(s); i++ {
		c := s[i]
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
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevelComma splits s on commas at paren/quote depth zero.
func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	inQuote := byte(0)
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case c == ',' && depth == 0:
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	out = append(out, s[last:])
	return out
}

// scanTokens splits def into whitespace-separated tokens at
// paren/quote depth zero, keeping each parenthesized group or quoted
// string as a single token (so "NUMERIC(10,2)" and "DEFAULT 'x'" tokenize
// as [NUMERIC(10,2)] and [DEFAULT 'x']).
func scanTokens(def string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	inQuote := byte(0)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(def); i++ {
		c := def[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
			cur.WriteByte(c)
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')':
			depth--
			cur.WriteByte(c)
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	// Merge a bare parenthesized group into the preceding token
	// (e.g. "VARCHAR" "(50)" -> "VARCHAR(50)"), matching PG's own
	// grammar where type arguments sit flush against the type name.
	var merged []string
	for _, t := range tokens {
		if strings.HasPrefix(t, "(") && len(merged) > 0 && !strings.ContainsAny(merged[len(merged)-1], "'\"") {
			merged[len(merged)-1] += t
			continue
		}
		merged = append(merged, t)
	}
	return merged
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
