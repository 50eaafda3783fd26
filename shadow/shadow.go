// Package shadow maintains the shadow-schema tables (component B of
// spec.md §4.B) inside the same SQLite database as the user's own
// tables: pg_columns, pg_enums, pg_enum_usage and pg_arrays. It is
// the server-side counterpart to the teacher's own role as a
// database/sql driver — here this package is itself the thing a
// database/sql consumer (github.com/mattn/go-sqlite3) drives.
package shadow

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS pg_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	pg_type INTEGER NOT NULL,
	sqlite_type TEXT NOT NULL,
	type_modifier INTEGER NOT NULL DEFAULT -1,
	ordinal INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (table_name, column_name)
);
CREATE TABLE IF NOT EXISTS pg_enums (
	type_oid INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	labels_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pg_enum_usage (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	type_name TEXT NOT NULL,
	PRIMARY KEY (table_name, column_name)
);
CREATE TABLE IF NOT EXISTS pg_arrays (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	element_type INTEGER NOT NULL,
	dimensions INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (table_name, column_name)
);
`

// Column is one row of pg_columns.
type Column struct {
	Table        string
	Column       string
	PgType       oidinfo.OID
	SQLiteType   string
	TypeModifier int32
	Ordinal      int
}

// EnumType is one row of pg_enums plus its ordered labels.
type EnumType struct {
	OID    oidinfo.OID
	Name   string
	Labels []string
}

// ArrayColumn is one row of pg_arrays.
type ArrayColumn struct {
	Table      string
	Column     string
	ElementOID oidinfo.OID
	Dimensions int
}

// Store is the shadow-schema store for one opened database handle.
type Store struct {
	db   *sql.DB
	once sync.Once
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the shadow tables if absent. Safe to call repeatedly;
// internally guarded by sync.Once per Store instance.
func (s *Store) Init() error {
	var err error
	s.once.Do(func() {
		_, err = s.db.Exec(schemaDDL)
	})
	return err
}

// RegisterTable inserts one pg_columns row per column, atomically
// with the caller's CREATE TABLE (spec.md §3 invariant). Call within
// the same transaction as the DDL statement.
func (s *Store) RegisterTable(tx *sql.Tx, table string, cols []Column) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO pg_columns
		(table_name, column_name, pg_type, sqlite_type, type_modifier, ordinal)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range cols {
		if _, err := stmt.Exec(table, c.Column, c.PgType, c.SQLiteType, c.TypeModifier, c.Ordinal); err != nil {
			return fmt.Errorf("shadow: register column %s.%s: %w", table, c.Column, err)
		}
	}
	return nil
}

// DropTable removes all shadow metadata for table (spec.md §4.B: DROP
// TABLE deletes all rows for that table, including ENUM usage and
// array rows).
func (s *Store) DropTable(tx *sql.Tx, table string) error {
	for _, q := range []string{
		"DELETE FROM pg_columns WHERE table_name = ?",
		"DELETE FROM pg_enum_usage WHERE table_name = ?",
		"DELETE FROM pg_arrays WHERE table_name = ?",
	} {
		if _, err := tx.Exec(q, table); err != nil {
			return err
		}
	}
	return nil
}

// AddColumn appends one pg_columns row (ALTER TABLE ADD COLUMN).
func (s *Store) AddColumn(tx *sql.Tx, table string, c Column) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO pg_columns
		(table_name, column_name, pg_type, sqlite_type, type_modifier, ordinal)
		VALUES (?, ?, ?, ?, ?, ?)`, table, c.Column, c.PgType, c.SQLiteType, c.TypeModifier, c.Ordinal)
	return err
}

// RenameColumn propagates a column rename across pg_columns and any
// ENUM usage row.
func (s *Store) RenameColumn(tx *sql.Tx, table, from, to string) error {
	if _, err := tx.Exec(`UPDATE pg_columns SET column_name = ? WHERE table_name = ? AND column_name = ?`, to, table, from); err != nil {
		return err
	}
	_, err := tx.Exec(`UPDATE pg_enum_usage SET column_name = ? WHERE table_name = ? AND column_name = ?`, to, table, from)
	return err
}

// RenameTable propagates a table rename across every shadow table.
func (s *Store) RenameTable(tx *sql.Tx, from, to string) error {
	for _, t := range []string{"pg_columns", "pg_enum_usage", "pg_arrays"} {
		if _, err := tx.Exec(fmt.Sprintf(`UPDATE %s SET table_name = ? WHERE table_name = ?`, t), to, from); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns every pg_columns row for table, ordered by ordinal.
func (s *Store) Columns(table string) ([]Column, error) {
	rows, err := s.db.Query(`SELECT table_name, column_name, pg_type, sqlite_type, type_modifier, ordinal
		FROM pg_columns WHERE table_name = ? ORDER BY ordinal`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Table, &c.Column, &c.PgType, &c.SQLiteType, &c.TypeModifier, &c.Ordinal); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Column looks up one column's metadata.
func (s *Store) Column(table, column string) (Column, bool, error) {
	var c Column
	err := s.db.QueryRow(`SELECT table_name, column_name, pg_type, sqlite_type, type_modifier, ordinal
		FROM pg_columns WHERE table_name = ? AND column_name = ?`, table, column).
		Scan(&c.Table, &c.Column, &c.PgType, &c.SQLiteType, &c.TypeModifier, &c.Ordinal)
	if err == sql.ErrNoRows {
		return Column{}, false, nil
	}
	if err != nil {
		return Column{}, false, err
	}
	return c, true, nil
}

// RegisterEnum inserts or replaces an ENUM type definition.
func (s *Store) RegisterEnum(tx *sql.Tx, e EnumType, labelsJSON string) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO pg_enums (type_oid, name, labels_json) VALUES (?, ?, ?)`,
		e.OID, e.Name, labelsJSON)
	return err
}

// EnumByName looks up an ENUM type by name.
func (s *Store) EnumByName(name string) (EnumType, string, bool, error) {
	var e EnumType
	var labelsJSON string
	err := s.db.QueryRow(`SELECT type_oid, name, labels_json FROM pg_enums WHERE name = ?`, name).
		Scan(&e.OID, &e.Name, &labelsJSON)
	if err == sql.ErrNoRows {
		return EnumType{}, "", false, nil
	}
	if err != nil {
		return EnumType{}, "", false, err
	}
	return e, labelsJSON, true, nil
}

// RegisterEnumUsage records a (table, column) -> enum type binding.
func (s *Store) RegisterEnumUsage(tx *sql.Tx, table, column, typeName string) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO pg_enum_usage (table_name, column_name, type_name) VALUES (?, ?, ?)`,
		table, column, typeName)
	return err
}

// EnumUsage looks up the ENUM type name bound to a column, if any.
func (s *Store) EnumUsage(table, column string) (string, bool, error) {
	var typeName string
	err := s.db.QueryRow(`SELECT type_name FROM pg_enum_usage WHERE table_name = ? AND column_name = ?`, table, column).
		Scan(&typeName)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return typeName, true, nil
}

// RegisterArrayColumn records an array column's element type/dims.
func (s *Store) RegisterArrayColumn(tx *sql.Tx, a ArrayColumn) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO pg_arrays (table_name, column_name, element_type, dimensions) VALUES (?, ?, ?, ?)`,
		a.Table, a.Column, a.ElementOID, a.Dimensions)
	return err
}

// ArrayColumnInfo looks up an array column's element type, if the
// column is an array.
func (s *Store) ArrayColumnInfo(table, column string) (ArrayColumn, bool, error) {
	var a ArrayColumn
	err := s.db.QueryRow(`SELECT table_name, column_name, element_type, dimensions FROM pg_arrays WHERE table_name = ? AND column_name = ?`,
		table, column).Scan(&a.Table, &a.Column, &a.ElementOID, &a.Dimensions)
	if err == sql.ErrNoRows {
		return ArrayColumn{}, false, nil
	}
	if err != nil {
		return ArrayColumn{}, false, err
	}
	return a, true, nil
}

// EnumColumnUsage is one (table, column) pair bound to an ENUM type.
type EnumColumnUsage struct {
	Table, Column string
}

// UsagesOfEnum lists every column bound to typeName, used to replace
// validation triggers after ALTER TYPE ... ADD VALUE and to drop them
// on DROP TYPE (spec.md §4.I/§9).
func (s *Store) UsagesOfEnum(typeName string) ([]EnumColumnUsage, error) {
	rows, err := s.db.Query(`SELECT table_name, column_name FROM pg_enum_usage WHERE type_name = ?`, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnumColumnUsage
	for rows.Next() {
		var u EnumColumnUsage
		if err := rows.Scan(&u.Table, &u.Column); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DropEnum removes an ENUM type and every usage row bound to it; the
// caller is responsible for dropping the validation triggers first
// (it needs UsagesOfEnum's result to name them).
func (s *Store) DropEnum(tx *sql.Tx, typeName string) error {
	if _, err := tx.Exec(`DELETE FROM pg_enum_usage WHERE type_name = ?`, typeName); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM pg_enums WHERE name = ?`, typeName)
	return err
}

// UserTables lists every table with at least one pg_columns row,
// excluding SQLite's own sqlite_* tables and this package's own
// pg_* shadow tables (used by the catalog interceptor's pg_class
// synthesis, spec.md Testable Property 4).
func (s *Store) UserTables() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT table_name FROM pg_columns ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if strings.HasPrefix(t, "sqlite_") || isShadowTable(t) {
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func isShadowTable(name string) bool {
	switch name {
	case "pg_columns", "pg_enums", "pg_enum_usage", "pg_arrays":
		return true
	}
	return false
}
