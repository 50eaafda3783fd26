package ddl

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// pgTypeOIDs maps every PG type keyword spec.md's storage-mapping
// table names (spec.md §3: "booleans and small/medium/large integers
// -> INTEGER; float/numeric -> REAL; ... all string/UUID/JSON/array/
// range/network/bit types -> TEXT; bytea -> BLOB; date/time/
// timestamp/timetz/timestamptz/interval -> INTEGER") to its OID.
// SERIAL variants map to their underlying integer OID; array element
// OIDs are looked up separately once the [] suffix is stripped.
var pgTypeOIDs = map[string]oidinfo.OID{
	"INTEGER": pgtype.Int4OID, "INT": pgtype.Int4OID, "INT4": pgtype.Int4OID,
	"BIGINT": pgtype.Int8OID, "INT8": pgtype.Int8OID,
	"SMALLINT": pgtype.Int2OID, "INT2": pgtype.Int2OID,
	"SERIAL": pgtype.Int4OID, "BIGSERIAL": pgtype.Int8OID, "SMALLSERIAL": pgtype.Int2OID,
	"BOOLEAN": pgtype.BoolOID, "BOOL": pgtype.BoolOID,
	"REAL": pgtype.Float4OID, "FLOAT4": pgtype.Float4OID,
	"DOUBLE PRECISION": pgtype.Float8OID, "FLOAT8": pgtype.Float8OID,
	"NUMERIC": pgtype.NumericOID, "DECIMAL": pgtype.NumericOID,
	"TEXT": pgtype.TextOID,
	"VARCHAR": pgtype.VarcharOID, "CHARACTER VARYING": pgtype.VarcharOID,
	"CHAR": pgtype.BPCharOID, "CHARACTER": pgtype.BPCharOID, "BPCHAR": pgtype.BPCharOID,
	"UUID": pgtype.UUIDOID,
	"JSON": pgtype.JSONOID, "JSONB": pgtype.JSONBOID,
	"BYTEA": pgtype.ByteaOID,
	"DATE": pgtype.DateOID,
	"TIME": pgtype.TimeOID, "TIME WITHOUT TIME ZONE": pgtype.TimeOID,
	"TIME WITH TIME ZONE": oidinfo.TimetzOID, "TIMETZ": oidinfo.TimetzOID,
	"TIMESTAMP": pgtype.TimestampOID, "TIMESTAMP WITHOUT TIME ZONE": pgtype.TimestampOID,
	"TIMESTAMP WITH TIME ZONE": pgtype.TimestamptzOID, "TIMESTAMPTZ": pgtype.TimestamptzOID,
	"INTERVAL": pgtype.IntervalOID,
	"MONEY":    oidinfo.MoneyOID,
	"INET":     oidinfo.InetOID, "CIDR": oidinfo.CIDROID, "MACADDR": oidinfo.MacaddrOID,
	"BIT": oidinfo.BitOID, "VARBIT": oidinfo.VarbitOID, "BIT VARYING": oidinfo.VarbitOID,
	"INT4RANGE": oidinfo.Int4rangeOID, "INT8RANGE": oidinfo.Int8rangeOID,
	"NUMRANGE": oidinfo.NumrangeOID, "TSRANGE": oidinfo.TsrangeOID,
	"TSTZRANGE": oidinfo.TstzrangeOID, "DATERANGE": oidinfo.DaterangeOID,
}

var serialTypes = map[string]bool{"SERIAL": true, "BIGSERIAL": true, "SMALLSERIAL": true}

// mapColumnType resolves a raw PG type clause (e.g. "NUMERIC(10,2)",
// "INTEGER[]", "status") to its SQLite storage type and PG OID. A
// type keyword not found in pgTypeOIDs is assumed to name a
// user-defined ENUM; the caller looks it up against the shadow schema
// to decide whether to install validation triggers.
func mapColumnType(raw string) columnType {
	raw = strings.TrimSpace(raw)

	isArray := false
	base := raw
	if strings.HasSuffix(base, "]") {
		if open := strings.LastIndexByte(base, '['); open >= 0 {
			base = strings.TrimSpace(base[:open])
			isArray = true
		}
	}

	name, precision, scale := splitTypeArgs(base)
	upperName := normalizeMultiWord(strings.ToUpper(name))

	oid, known := pgTypeOIDs[upperName]
	if !known {
		// Unrecognized keyword: treat as an ENUM/user-defined type
		// name, stored as TEXT and validated by a trigger if a
		// matching CREATE TYPE was seen (spec.md §4.I).
		ct := columnType{SQLiteType: "TEXT", OID: pgtype.TextOID, EnumName: name}
		if isArray {
			ct.IsArray = true
			ct.ElementOID = pgtype.TextOID
			ct.EnumName = "" // array-of-enum isn't validated by the column trigger today
		}
		return ct
	}

	storage := oidinfo.StorageFor(oid)
	sqliteType := storage.String()

	ct := columnType{OID: oid, SQLiteType: sqliteType, IsSerial: serialTypes[upperName]}
	if ct.IsSerial {
		ct.SQLiteType = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	if isArray {
		ct.IsArray = true
		ct.ElementOID = oid
		ct.SQLiteType = "TEXT"
		if arrOID, ok := arrayOIDFor(oid); ok {
			ct.OID = arrOID
		}
	}
	if upperName == "NUMERIC" || upperName == "DECIMAL" {
		ct.Modifier = packTypmod(precision, scale)
	}
	return ct
}

// normalizeMultiWord folds the two-token phrases pgTypeOIDs keys on
// down to a canonical form once whitespace from scanTokens has been
// collapsed to single spaces.
func normalizeMultiWord(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitTypeArgs splits "NAME(p,s)" or "NAME(n)" into its bare name
// and optional precision/scale (0 when absent or single-arg).
func splitTypeArgs(s string) (name string, precision, scale int) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, 0, 0
	}
	close := strings.LastIndexByte(s, ')')
	if close < open {
		return s[:open], 0, 0
	}
	name = strings.TrimSpace(s[:open])
	parts := strings.Split(s[open+1:close], ",")
	precision = atoiOr(parts[0], 0)
	if len(parts) > 1 {
		scale = atoiOr(parts[1], 0)
	}
	return name, precision, scale
}

// packTypmod reproduces PostgreSQL's own NUMERIC typmod encoding:
// ((precision << 16) | scale) + 4, or -1 for an unconstrained NUMERIC.
func packTypmod(precision, scale int) int32 {
	if precision == 0 {
		return -1
	}
	return int32((precision<<16)|scale) + 4
}

// arrayOIDFor returns the registered array OID for an element type,
// when oidinfo's table carries one (not every scalar type has a
// dedicated _foo array OID entry in the registry; unregistered
// element types still store correctly as TEXT/JSON, just without
// resolving to a specific PG array OID on the wire).
func arrayOIDFor(elem oidinfo.OID) (oidinfo.OID, bool) {
	for oid, ti := range oidinfo.All() {
		if ti.IsArray && ti.ElementOID == elem {
			return oid, true
		}
	}
	return 0, false
}
