// Package oidinfo is the type OID metadata table for the PostgreSQL
// types this server understands: wire size, storage category and,
// for arrays, element OID. It plays the role lib-pq's own "oid"
// sub-package (github.com/lib/pq/oid) plays for the client side,
// except this table also carries the storage-kind mapping the
// rewriter and DDL translator need.
package oidinfo

import "github.com/jackc/pgx/v5/pgtype"

// OID is a PostgreSQL type identifier.
type OID = uint32

// Well-known OIDs not exported by pgtype. Values match PostgreSQL's
// pg_type catalog.
const (
	MoneyOID     OID = 790
	MoneyArrayOID OID = 791
	TimetzOID    OID = 1266
	TimetzArrayOID OID = 1270
	BitOID       OID = 1560
	BitArrayOID  OID = 1561
	VarbitOID    OID = 1562
	VarbitArrayOID OID = 1563
	MacaddrOID   OID = 829
	MacaddrArrayOID OID = 1040
	InetOID      OID = 869
	InetArrayOID OID = 1041
	CIDROID      OID = 650
	CIDRArrayOID OID = 651
	Int4rangeOID OID = 3904
	NumrangeOID  OID = 3906
	TsrangeOID   OID = 3908
	TstzrangeOID OID = 3910
	DaterangeOID OID = 3912
	Int8rangeOID OID = 3926
)

// StorageKind is the SQLite column affinity a PG type maps to.
type StorageKind int

const (
	StorageInteger StorageKind = iota
	StorageReal
	StorageText
	StorageBlob
)

// VariableSize is the TypeInfo.WireSize value of variable-length types
// (matching PostgreSQL's pg_type.typlen convention); fixed-width types
// carry their binary wire width there instead.
const VariableSize = -1

// TypeInfo describes one supported PostgreSQL type.
type TypeInfo struct {
	OID         OID
	Name        string
	WireSize    int
	Storage     StorageKind
	IsArray     bool
	ElementOID  OID // 0 if not an array
}

var registry = map[OID]TypeInfo{
	pgtype.BoolOID:        {pgtype.BoolOID, "bool", 1, StorageInteger, false, 0},
	pgtype.Int2OID:        {pgtype.Int2OID, "int2", 2, StorageInteger, false, 0},
	pgtype.Int4OID:        {pgtype.Int4OID, "int4", 4, StorageInteger, false, 0},
	pgtype.Int8OID:        {pgtype.Int8OID, "int8", 8, StorageInteger, false, 0},
	pgtype.Float4OID:      {pgtype.Float4OID, "float4", 4, StorageReal, false, 0},
	pgtype.Float8OID:      {pgtype.Float8OID, "float8", 8, StorageReal, false, 0},
	pgtype.NumericOID:     {pgtype.NumericOID, "numeric", VariableSize, StorageReal, false, 0},
	pgtype.TextOID:        {pgtype.TextOID, "text", VariableSize, StorageText, false, 0},
	pgtype.VarcharOID:     {pgtype.VarcharOID, "varchar", VariableSize, StorageText, false, 0},
	pgtype.BPCharOID:      {pgtype.BPCharOID, "bpchar", VariableSize, StorageText, false, 0},
	pgtype.ByteaOID:       {pgtype.ByteaOID, "bytea", VariableSize, StorageBlob, false, 0},
	pgtype.DateOID:        {pgtype.DateOID, "date", 4, StorageInteger, false, 0},
	pgtype.TimeOID:        {pgtype.TimeOID, "time", 8, StorageInteger, false, 0},
	TimetzOID:             {TimetzOID, "timetz", 12, StorageInteger, false, 0},
	pgtype.TimestampOID:   {pgtype.TimestampOID, "timestamp", 8, StorageInteger, false, 0},
	pgtype.TimestamptzOID: {pgtype.TimestamptzOID, "timestamptz", 8, StorageInteger, false, 0},
	pgtype.IntervalOID:    {pgtype.IntervalOID, "interval", 16, StorageInteger, false, 0},
	pgtype.UUIDOID:        {pgtype.UUIDOID, "uuid", 16, StorageText, false, 0},
	pgtype.JSONOID:        {pgtype.JSONOID, "json", VariableSize, StorageText, false, 0},
	pgtype.JSONBOID:       {pgtype.JSONBOID, "jsonb", VariableSize, StorageText, false, 0},
	MoneyOID:              {MoneyOID, "money", 8, StorageText, false, 0},
	MacaddrOID:            {MacaddrOID, "macaddr", 6, StorageText, false, 0},
	InetOID:               {InetOID, "inet", VariableSize, StorageText, false, 0},
	CIDROID:               {CIDROID, "cidr", VariableSize, StorageText, false, 0},
	BitOID:                {BitOID, "bit", VariableSize, StorageText, false, 0},
	VarbitOID:             {VarbitOID, "varbit", VariableSize, StorageText, false, 0},
	Int4rangeOID:          {Int4rangeOID, "int4range", VariableSize, StorageText, false, 0},
	NumrangeOID:           {NumrangeOID, "numrange", VariableSize, StorageText, false, 0},
	TsrangeOID:            {TsrangeOID, "tsrange", VariableSize, StorageText, false, 0},
	TstzrangeOID:          {TstzrangeOID, "tstzrange", VariableSize, StorageText, false, 0},
	DaterangeOID:          {DaterangeOID, "daterange", VariableSize, StorageText, false, 0},
	Int8rangeOID:          {Int8rangeOID, "int8range", VariableSize, StorageText, false, 0},

	pgtype.BoolArrayOID:        {pgtype.BoolArrayOID, "_bool", VariableSize, StorageText, true, pgtype.BoolOID},
	pgtype.Int2ArrayOID:        {pgtype.Int2ArrayOID, "_int2", VariableSize, StorageText, true, pgtype.Int2OID},
	pgtype.Int4ArrayOID:        {pgtype.Int4ArrayOID, "_int4", VariableSize, StorageText, true, pgtype.Int4OID},
	pgtype.Int8ArrayOID:        {pgtype.Int8ArrayOID, "_int8", VariableSize, StorageText, true, pgtype.Int8OID},
	pgtype.Float4ArrayOID:      {pgtype.Float4ArrayOID, "_float4", VariableSize, StorageText, true, pgtype.Float4OID},
	pgtype.Float8ArrayOID:      {pgtype.Float8ArrayOID, "_float8", VariableSize, StorageText, true, pgtype.Float8OID},
	pgtype.NumericArrayOID:     {pgtype.NumericArrayOID, "_numeric", VariableSize, StorageText, true, pgtype.NumericOID},
	pgtype.TextArrayOID:        {pgtype.TextArrayOID, "_text", VariableSize, StorageText, true, pgtype.TextOID},
	pgtype.VarcharArrayOID:     {pgtype.VarcharArrayOID, "_varchar", VariableSize, StorageText, true, pgtype.VarcharOID},
	pgtype.ByteaArrayOID:       {pgtype.ByteaArrayOID, "_bytea", VariableSize, StorageText, true, pgtype.ByteaOID},
	pgtype.DateArrayOID:        {pgtype.DateArrayOID, "_date", VariableSize, StorageText, true, pgtype.DateOID},
	pgtype.TimestampArrayOID:   {pgtype.TimestampArrayOID, "_timestamp", VariableSize, StorageText, true, pgtype.TimestampOID},
	pgtype.TimestamptzArrayOID: {pgtype.TimestamptzArrayOID, "_timestamptz", VariableSize, StorageText, true, pgtype.TimestamptzOID},
	pgtype.UUIDArrayOID:        {pgtype.UUIDArrayOID, "_uuid", VariableSize, StorageText, true, pgtype.UUIDOID},
	pgtype.JSONBArrayOID:       {pgtype.JSONBArrayOID, "_jsonb", VariableSize, StorageText, true, pgtype.JSONBOID},
}

// Lookup returns the metadata for a type OID and whether it is known.
func Lookup(oid OID) (TypeInfo, bool) {
	ti, ok := registry[oid]
	return ti, ok
}

// FromSQLiteTypeName maps a database/sql driver's reported column type
// name (mattn/go-sqlite3's DatabaseTypeName, e.g. "INTEGER", "TEXT",
// "REAL", "NUMERIC") back to a default PG OID, used when a result
// column has no shadow-schema entry (an expression column, a JOIN
// against an unregistered view, etc.) — the shadow-schema lookup is
// always preferred when available.
func FromSQLiteTypeName(name string) OID {
	switch name {
	case "INTEGER", "INT":
		return pgtype.Int8OID
	case "REAL", "FLOAT", "DOUBLE":
		return pgtype.Float8OID
	case "NUMERIC", "DECIMAL":
		return pgtype.NumericOID
	case "BLOB":
		return pgtype.ByteaOID
	case "BOOLEAN", "BOOL":
		return pgtype.BoolOID
	default:
		return pgtype.TextOID
	}
}

// All returns every registered type, keyed by OID — used by the
// catalog interceptor's pg_type synthesis.
func All() map[OID]TypeInfo {
	return registry
}

// StorageFor returns the SQLite storage kind for a type OID, falling
// back to StorageText for unrecognized OIDs (conservative default:
// text round-trips everything).
func StorageFor(oid OID) StorageKind {
	if ti, ok := registry[oid]; ok {
		return ti.Storage
	}
	return StorageText
}

// IsNumericLike reports whether the OID is NUMERIC or an array of it;
// used by the rewriter's decimal-rewriting step (spec.md §4.D.11).
func IsNumericLike(oid OID) bool {
	return oid == pgtype.NumericOID || oid == pgtype.NumericArrayOID
}

func (k StorageKind) String() string {
	switch k {
	case StorageInteger:
		return "INTEGER"
	case StorageReal:
		return "REAL"
	case StorageText:
		return "TEXT"
	case StorageBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}
