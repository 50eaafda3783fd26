package ddl

import (
	"fmt"
	"strings"

	"github.com/pgsqlite/pgsqlite/shadow"
)

// TranslateDropTable handles "DROP TABLE [IF EXISTS] name". Dropping
// a table also drops its ENUM triggers (spec.md §4.I); the caller
// looks those up from the shadow schema before the table row itself
// is deleted, since Plan carries only the table name.
func TranslateDropTable(sql string) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "DROP TABLE") {
		return nil, fmt.Errorf("ddl: not a DROP TABLE statement")
	}
	rest = strings.TrimSpace(rest[len("DROP TABLE"):])
	ifExists := strings.HasPrefix(strings.ToUpper(rest), "IF EXISTS")
	if ifExists {
		rest = strings.TrimSpace(rest[len("IF EXISTS"):])
	}
	table := strings.TrimSpace(rest)

	var b strings.Builder
	b.WriteString("DROP TABLE ")
	if ifExists {
		b.WriteString("IF EXISTS ")
	}
	b.WriteString(table)

	return &Plan{Kind: "DROP TABLE", Table: table, DropTable: table, SQLiteSQL: b.String()}, nil
}

// TranslateAlterTable handles the subset of ALTER TABLE spec.md §4.I
// names: ADD COLUMN, RENAME TO, RENAME COLUMN ... TO ....
func TranslateAlterTable(sql string) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "ALTER TABLE") {
		return nil, fmt.Errorf("ddl: not an ALTER TABLE statement")
	}
	rest = strings.TrimSpace(rest[len("ALTER TABLE"):])
	if strings.HasPrefix(strings.ToUpper(rest), "IF EXISTS") {
		rest = strings.TrimSpace(rest[len("IF EXISTS"):])
	}

	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return nil, fmt.Errorf("ddl: malformed ALTER TABLE %q", sql)
	}
	table := fields[0]
	action := strings.ToUpper(strings.Join(fields[1:], " "))
	actionRest := strings.TrimSpace(rest[len(table):])

	switch {
	case strings.HasPrefix(action, "ADD COLUMN"):
		return translateAddColumn(table, trimKeyword(actionRest, "ADD COLUMN"))
	case strings.HasPrefix(action, "ADD "):
		return translateAddColumn(table, trimKeyword(actionRest, "ADD"))
	case strings.HasPrefix(action, "RENAME TO"):
		newName := strings.TrimSpace(trimKeyword(actionRest, "RENAME TO"))
		return &Plan{
			Kind:        "ALTER TABLE",
			Table:       table,
			RenameTable: [2]string{table, newName},
			SQLiteSQL:   fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, newName),
		}, nil
	case strings.HasPrefix(action, "RENAME COLUMN"):
		body := strings.TrimSpace(trimKeyword(actionRest, "RENAME COLUMN"))
		toIdx := indexAnyKeyword(body, " TO ")
		if toIdx < 0 {
			return nil, fmt.Errorf("ddl: malformed RENAME COLUMN clause %q", body)
		}
		from := strings.TrimSpace(body[:toIdx])
		to := strings.TrimSpace(body[toIdx+len(" TO "):])
		plan := &Plan{
			Kind:      "ALTER TABLE",
			Table:     table,
			SQLiteSQL: fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, from, to),
		}
		plan.RenameColumn.Table, plan.RenameColumn.From, plan.RenameColumn.To = table, from, to
		return plan, nil
	}
	return nil, fmt.Errorf("ddl: unsupported ALTER TABLE clause %q", sql)
}

func translateAddColumn(table, colDef string) (*Plan, error) {
	col, err := parseColumnDef(strings.TrimSpace(colDef))
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Kind:      "ALTER TABLE",
		Table:     table,
		AddColumn: true,
		SQLiteSQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, col.sqliteDef()),
	}
	plan.Columns = []shadow.Column{{
		Table: table, Column: col.Name, PgType: col.Type.OID,
		SQLiteType: col.Type.SQLiteType, TypeModifier: col.Type.Modifier,
	}}
	if col.Type.IsArray {
		plan.ArrayCols = []shadow.ArrayColumn{{Table: table, Column: col.Name, ElementOID: col.Type.ElementOID, Dimensions: 1}}
	}
	if col.Type.EnumName != "" {
		plan.EnumUsages = []EnumUsage{{Table: table, Column: col.Name, TypeName: col.Type.EnumName}}
	}
	return plan, nil
}

func trimKeyword(s, kw string) string {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if strings.HasPrefix(upper, strings.ToUpper(kw)) {
		return strings.TrimSpace(s[strings.Index(upper, strings.ToUpper(kw))+len(kw):])
	}
	return s
}
