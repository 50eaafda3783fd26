package ddl

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pgsqlite/pgsqlite/shadow"
)

// enumOID derives a stable pseudo-OID for a user-defined ENUM type
// name. Real PG assigns these from pg_type's OID sequence at CREATE
// TYPE time; this server has no such sequence, so it hashes the name
// into a range well above any OID pgtype/oidinfo ever assigns,
// guaranteeing no collision with a built-in type.
func enumOID(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return 100000 + h.Sum32()%900000
}

// TranslateCreateType handles "CREATE TYPE name AS ENUM (labels...)".
// It produces no SQLite DDL of its own — ENUMs are a shadow-schema
// concept only, enforced by the triggers installed on each column
// that uses one (spec.md §4.I).
func TranslateCreateType(sql string) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "CREATE TYPE") {
		return nil, fmt.Errorf("ddl: not a CREATE TYPE statement")
	}
	rest = strings.TrimSpace(rest[len("CREATE TYPE"):])

	asIdx := strings.Index(strings.ToUpper(rest), " AS ENUM")
	if asIdx < 0 {
		return nil, fmt.Errorf("ddl: only CREATE TYPE ... AS ENUM is supported")
	}
	name := strings.TrimSpace(rest[:asIdx])
	labelsPart := strings.TrimSpace(rest[asIdx+len(" AS ENUM"):])

	labels, err := parseLabelList(labelsPart)
	if err != nil {
		return nil, err
	}

	enum := shadow.EnumType{OID: enumOID(name), Name: name, Labels: labels}
	return &Plan{
		Kind:           "CREATE TYPE",
		Enum:           &enum,
		EnumLabelsJSON: labelsJSON(labels),
	}, nil
}

// TranslateAlterTypeAddValue handles "ALTER TYPE name ADD VALUE 'label'
// [BEFORE|AFTER 'other']". Per spec.md §9, arbitrary CHECK constraints
// can't be amended when labels change, so every BEFORE INSERT/UPDATE
// trigger installed for columns using this type is recreated against
// the new label set rather than edited in place.
func TranslateAlterTypeAddValue(sql string, current shadow.EnumType, usages []shadow.EnumColumnUsage) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "ALTER TYPE") {
		return nil, fmt.Errorf("ddl: not an ALTER TYPE statement")
	}
	rest = strings.TrimSpace(rest[len("ALTER TYPE"):])

	addIdx := strings.Index(strings.ToUpper(rest), "ADD VALUE")
	if addIdx < 0 {
		return nil, fmt.Errorf("ddl: only ALTER TYPE ... ADD VALUE is supported")
	}
	valuePart := strings.TrimSpace(rest[addIdx+len("ADD VALUE"):])
	// Drop a trailing BEFORE/AFTER 'other' placement clause: label
	// order only matters for display, not for trigger validation.
	if idx := indexAnyKeyword(valuePart, "BEFORE", "AFTER"); idx >= 0 {
		valuePart = strings.TrimSpace(valuePart[:idx])
	}
	label := strings.Trim(valuePart, "'\" ")

	labels := append(append([]string{}, current.Labels...), label)
	enum := shadow.EnumType{OID: current.OID, Name: current.Name, Labels: labels}

	plan := &Plan{Kind: "ALTER TYPE", Enum: &enum, EnumLabelsJSON: labelsJSON(labels)}
	for _, u := range usages {
		plan.Triggers = append(plan.Triggers, dropEnumTriggers(u.Table, u.Column, enum.Name)...)
		plan.Triggers = append(plan.Triggers, buildEnumTriggers(u.Table, u.Column, enum.Name, labels)...)
	}
	return plan, nil
}

// TranslateDropType handles "DROP TYPE [IF EXISTS] name". The caller
// is responsible for dropping the triggers installed for each
// recorded usage before removing the shadow rows (DropType itself
// only marks which type to remove).
func TranslateDropType(sql string) (*Plan, error) {
	rest := strings.TrimSpace(sql)
	upper := strings.ToUpper(rest)
	if !strings.HasPrefix(upper, "DROP TYPE") {
		return nil, fmt.Errorf("ddl: not a DROP TYPE statement")
	}
	rest = strings.TrimSpace(rest[len("DROP TYPE"):])
	if strings.HasPrefix(strings.ToUpper(rest), "IF EXISTS") {
		rest = strings.TrimSpace(rest[len("IF EXISTS"):])
	}
	name := strings.TrimSpace(rest)
	enum := shadow.EnumType{Name: name}
	return &Plan{Kind: "DROP TYPE", Enum: &enum}, nil
}

func indexAnyKeyword(s string, keywords ...string) int {
	upper := strings.ToUpper(s)
	best := -1
	for _, kw := range keywords {
		if i := strings.Index(upper, kw); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func parseLabelList(s string) ([]string, error) {
	open := strings.IndexByte(s, '(')
	close := strings.LastIndexByte(s, ')')
	if open < 0 || close < open {
		return nil, fmt.Errorf("ddl: malformed ENUM label list %q", s)
	}
	var labels []string
	for _, part := range splitTopLevelComma(s[open+1 : close]) {
		labels = append(labels, strings.Trim(strings.TrimSpace(part), "'\""))
	}
	return labels, nil
}

func labelsJSON(labels []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(l, `"`, `\"`))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}

// buildEnumTriggers emits the BEFORE INSERT/UPDATE validation
// triggers for one (table, column) ENUM usage, rejecting any value
// not in labels via RAISE(ABORT, ...) — SQLite's only in-engine way
// to reject a write from a trigger body (spec.md §4.I, §9).
func buildEnumTriggers(table, column, typeName string, labels []string) []string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = "'" + strings.ReplaceAll(l, "'", "''") + "'"
	}
	inList := strings.Join(quoted, ", ")
	triggerBase := fmt.Sprintf("%s_%s_%s", table, column, typeName)

	insertTrig := fmt.Sprintf(
		"CREATE TRIGGER %s_ins BEFORE INSERT ON %s\nFOR EACH ROW WHEN NEW.%s IS NOT NULL AND NEW.%s NOT IN (%s)\nBEGIN SELECT RAISE(ABORT, 'invalid input value for enum %s'); END",
		triggerBase, table, column, column, inList, typeName)
	updateTrig := fmt.Sprintf(
		"CREATE TRIGGER %s_upd BEFORE UPDATE ON %s\nFOR EACH ROW WHEN NEW.%s IS NOT NULL AND NEW.%s NOT IN (%s)\nBEGIN SELECT RAISE(ABORT, 'invalid input value for enum %s'); END",
		triggerBase, table, column, column, inList, typeName)
	return []string{insertTrig, updateTrig}
}

// dropEnumTriggers returns the DROP TRIGGER statements matching
// buildEnumTriggers' naming for one usage, used when a table/column
// using an ENUM is dropped or the type itself is dropped.
func dropEnumTriggers(table, column, typeName string) []string {
	base := fmt.Sprintf("%s_%s_%s", table, column, typeName)
	return []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_ins", base),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_upd", base),
	}
}
