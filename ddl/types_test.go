package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapColumnType_Scalars(t *testing.T) {
	cases := map[string]string{
		"INTEGER": "INTEGER",
		"BOOLEAN": "INTEGER",
		"TEXT":    "TEXT",
		"BYTEA":   "BLOB",
	}
	for raw, want := range cases {
		ct := mapColumnType(raw)
		assert.Equalf(t, want, ct.SQLiteType, "raw=%s", raw)
	}
}

func TestMapColumnType_Serial(t *testing.T) {
	ct := mapColumnType("SERIAL")
	assert.True(t, ct.IsSerial)
	assert.Equal(t, "INTEGER PRIMARY KEY AUTOINCREMENT", ct.SQLiteType)
}

func TestMapColumnType_Array(t *testing.T) {
	ct := mapColumnType("INTEGER[]")
	assert.True(t, ct.IsArray)
	assert.Equal(t, "TEXT", ct.SQLiteType)
}

func TestMapColumnType_UnknownIsEnumCandidate(t *testing.T) {
	ct := mapColumnType("mood")
	assert.Equal(t, "TEXT", ct.SQLiteType)
	assert.Equal(t, "mood", ct.EnumName)
	assert.False(t, ct.IsArray)
}

func TestMapColumnType_NumericTypmod(t *testing.T) {
	ct := mapColumnType("NUMERIC(10,2)")
	assert.Equal(t, packTypmod(10, 2), ct.Modifier)

	unconstrained := mapColumnType("NUMERIC")
	assert.Equal(t, int32(-1), unconstrained.Modifier)
}

func TestPackTypmod(t *testing.T) {
	assert.Equal(t, int32(-1), packTypmod(0, 0))
	assert.Equal(t, int32((10<<16)|2)+4, packTypmod(10, 2))
}
