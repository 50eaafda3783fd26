package oidinfo

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestLookup_KnownAndUnknown(t *testing.T) {
	ti, ok := Lookup(pgtype.Int4OID)
	assert.True(t, ok)
	assert.Equal(t, "int4", ti.Name)

	_, ok = Lookup(999999)
	assert.False(t, ok)
}

func TestLookup_ArrayEntryCarriesElementOID(t *testing.T) {
	ti, ok := Lookup(pgtype.Int4ArrayOID)
	assert.True(t, ok)
	assert.True(t, ti.IsArray)
	assert.EqualValues(t, pgtype.Int4OID, ti.ElementOID)
}

func TestFromSQLiteTypeName(t *testing.T) {
	cases := map[string]OID{
		"INTEGER": pgtype.Int8OID,
		"INT":     pgtype.Int8OID,
		"REAL":    pgtype.Float8OID,
		"NUMERIC": pgtype.NumericOID,
		"BLOB":    pgtype.ByteaOID,
		"BOOLEAN": pgtype.BoolOID,
		"TEXT":    pgtype.TextOID,
		"":        pgtype.TextOID,
	}
	for name, want := range cases {
		assert.Equal(t, want, FromSQLiteTypeName(name), "name=%q", name)
	}
}

func TestAll_IncludesRegisteredTypes(t *testing.T) {
	all := All()
	_, ok := all[pgtype.TextOID]
	assert.True(t, ok)
}

func TestStorageFor_KnownAndFallback(t *testing.T) {
	assert.Equal(t, StorageInteger, StorageFor(pgtype.Int4OID))
	assert.Equal(t, StorageText, StorageFor(999999))
}

func TestIsNumericLike(t *testing.T) {
	assert.True(t, IsNumericLike(pgtype.NumericOID))
	assert.True(t, IsNumericLike(pgtype.NumericArrayOID))
	assert.False(t, IsNumericLike(pgtype.Int4OID))
}

func TestStorageKind_String(t *testing.T) {
	assert.Equal(t, "INTEGER", StorageInteger.String())
	assert.Equal(t, "REAL", StorageReal.String())
	assert.Equal(t, "TEXT", StorageText.String())
	assert.Equal(t, "BLOB", StorageBlob.String())
}
