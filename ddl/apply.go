package ddl

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgsqlite/pgsqlite/cache"
	"github.com/pgsqlite/pgsqlite/shadow"
)

// IsDDL reports whether sql's leading keyword is CREATE, ALTER or
// DROP, letting the executor decide between this path and the ordinary
// rewrite+execute path (spec.md §4.F item 4). Dispatch then accepts
// CREATE TABLE/TYPE/INDEX, ALTER TABLE/TYPE and DROP TABLE/TYPE and
// returns an error for any other form.
func IsDDL(sqlText string) bool {
	kw := strings.ToUpper(firstWord(sqlText))
	return kw == "CREATE" || kw == "ALTER" || kw == "DROP"
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, " \t\n")
	if end < 0 {
		return s
	}
	return s[:end]
}

func secondWord(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return ""
	}
	return firstWord(s[i:])
}

// Dispatch classifies sqlText and runs the matching translator,
// consulting store for ENUM/usage lookups an ALTER TYPE ADD VALUE or
// a CREATE TABLE column needs.
func Dispatch(sqlText string, store *shadow.Store) (*Plan, error) {
	kw := strings.ToUpper(firstWord(sqlText))
	sub := strings.ToUpper(secondWord(sqlText))

	switch {
	case kw == "CREATE" && sub == "TABLE":
		return TranslateCreateTable(sqlText, store)
	case kw == "CREATE" && sub == "TYPE":
		return TranslateCreateType(sqlText)
	case kw == "CREATE" && sub == "INDEX":
		return &Plan{Kind: "CREATE INDEX", SQLiteSQL: sqlText}, nil
	case kw == "DROP" && sub == "TABLE":
		return TranslateDropTable(sqlText)
	case kw == "DROP" && sub == "TYPE":
		return TranslateDropType(sqlText)
	case kw == "ALTER" && sub == "TABLE":
		return TranslateAlterTable(sqlText)
	case kw == "ALTER" && sub == "TYPE":
		name := strings.TrimSpace(sqlText[strings.Index(strings.ToUpper(sqlText), "TYPE")+len("TYPE"):])
		if idx := strings.Index(strings.ToUpper(name), "ADD VALUE"); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		current, _, ok, err := store.EnumByName(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ddl: unknown type %q", name)
		}
		usages, err := store.UsagesOfEnum(name)
		if err != nil {
			return nil, err
		}
		return TranslateAlterTypeAddValue(sqlText, current, usages)
	}
	return nil, fmt.Errorf("ddl: unsupported DDL statement %q", sqlText)
}

// Apply runs plan's SQLite DDL (if any), updates the shadow schema
// and installs/drops triggers, all inside one transaction, then
// invalidates the plan and schema caches for the affected table
// (Testable Property 6).
func Apply(db *sql.DB, store *shadow.Store, plans *cache.PlanCache, schema *cache.SchemaCache, plan *Plan) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if plan.SQLiteSQL != "" {
		if _, err := tx.Exec(plan.SQLiteSQL); err != nil {
			return fmt.Errorf("ddl: %w", err)
		}
	}

	switch plan.Kind {
	case "CREATE TABLE":
		if err := store.RegisterTable(tx, plan.Table, plan.Columns); err != nil {
			return err
		}
		for _, a := range plan.ArrayCols {
			if err := store.RegisterArrayColumn(tx, a); err != nil {
				return err
			}
		}
		for _, u := range plan.EnumUsages {
			if err := store.RegisterEnumUsage(tx, u.Table, u.Column, u.TypeName); err != nil {
				return err
			}
		}
	case "ALTER TABLE":
		if plan.AddColumn {
			for _, c := range plan.Columns {
				if err := store.AddColumn(tx, plan.Table, c); err != nil {
					return err
				}
			}
			for _, a := range plan.ArrayCols {
				if err := store.RegisterArrayColumn(tx, a); err != nil {
					return err
				}
			}
			for _, u := range plan.EnumUsages {
				if err := store.RegisterEnumUsage(tx, u.Table, u.Column, u.TypeName); err != nil {
					return err
				}
			}
		}
		if plan.RenameTable[1] != "" {
			if err := store.RenameTable(tx, plan.RenameTable[0], plan.RenameTable[1]); err != nil {
				return err
			}
		}
		if plan.RenameColumn.To != "" {
			if err := store.RenameColumn(tx, plan.RenameColumn.Table, plan.RenameColumn.From, plan.RenameColumn.To); err != nil {
				return err
			}
		}
	case "DROP TABLE":
		usages, err := tableEnumUsages(store, plan.DropTable)
		if err != nil {
			return err
		}
		for _, u := range usages {
			for _, dt := range dropEnumTriggers(u.Table, u.Column, u.TypeName) {
				if _, err := tx.Exec(dt); err != nil {
					return err
				}
			}
		}
		if err := store.DropTable(tx, plan.DropTable); err != nil {
			return err
		}
	case "CREATE TYPE":
		if err := store.RegisterEnum(tx, *plan.Enum, plan.EnumLabelsJSON); err != nil {
			return err
		}
	case "ALTER TYPE":
		if err := store.RegisterEnum(tx, *plan.Enum, plan.EnumLabelsJSON); err != nil {
			return err
		}
	case "DROP TYPE":
		usages, err := store.UsagesOfEnum(plan.Enum.Name)
		if err != nil {
			return err
		}
		for _, u := range usages {
			for _, dt := range dropEnumTriggers(u.Table, u.Column, plan.Enum.Name) {
				if _, err := tx.Exec(dt); err != nil {
					return err
				}
			}
		}
		if err := store.DropEnum(tx, plan.Enum.Name); err != nil {
			return err
		}
	}

	for _, trig := range plan.Triggers {
		if _, err := tx.Exec(trig); err != nil {
			return fmt.Errorf("ddl: installing trigger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if plans != nil && plan.Table != "" {
		plans.InvalidateTable(plan.Table)
	}
	if schema != nil && plan.Table != "" {
		schema.Invalidate(plan.Table)
	}
	if plans != nil && plan.DropTable != "" {
		plans.InvalidateTable(plan.DropTable)
	}
	if schema != nil && plan.DropTable != "" {
		schema.Invalidate(plan.DropTable)
	}
	return nil
}

// tableEnumUsages finds every ENUM usage row for columns belonging to
// table, so DROP TABLE can drop their triggers before the shadow rows
// disappear.
func tableEnumUsages(store *shadow.Store, table string) ([]struct {
	Table, Column, TypeName string
}, error) {
	cols, err := store.Columns(table)
	if err != nil {
		return nil, err
	}
	var out []struct{ Table, Column, TypeName string }
	for _, c := range cols {
		typeName, ok, err := store.EnumUsage(table, c.Column)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, struct{ Table, Column, TypeName string }{table, c.Column, typeName})
		}
	}
	return out, nil
}
