package wire

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArrayText_BasicIntegers(t *testing.T) {
	got, err := EncodeArrayText("[1,2,3]", pgtype.Int4OID)
	require.NoError(t, err)
	assert.Equal(t, "{1,2,3}", got)
}

func TestEncodeArrayText_QuotesElementsNeedingIt(t *testing.T) {
	got, err := EncodeArrayText(`["a b","c,d"]`, pgtype.TextOID)
	require.NoError(t, err)
	assert.Equal(t, `{"a b","c,d"}`, got)
}

func TestEncodeArrayText_NullElement(t *testing.T) {
	got, err := EncodeArrayText(`["a",null]`, pgtype.TextOID)
	require.NoError(t, err)
	assert.Equal(t, `{a,NULL}`, got)
}

func TestEncodeArrayText_EmptyStorageIsEmptyArray(t *testing.T) {
	got, err := EncodeArrayText("", pgtype.Int4OID)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestEncodeArrayText_InvalidJSONErrors(t *testing.T) {
	_, err := EncodeArrayText("not-json", pgtype.Int4OID)
	assert.Error(t, err)
}

func TestDecodeArrayText_BasicIntegers(t *testing.T) {
	got, err := DecodeArrayText("{1,2,3}", pgtype.Int4OID)
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2,3]", got)
}

func TestDecodeArrayText_QuotedElementsWithEscapes(t *testing.T) {
	got, err := DecodeArrayText(`{"a,b","c\"d"}`, pgtype.TextOID)
	require.NoError(t, err)
	assert.JSONEq(t, `["a,b","c\"d"]`, got)
}

func TestDecodeArrayText_NullToken(t *testing.T) {
	got, err := DecodeArrayText(`{a,NULL}`, pgtype.TextOID)
	require.NoError(t, err)
	assert.JSONEq(t, `["a",null]`, got)
}

func TestDecodeArrayText_MalformedLiteralErrors(t *testing.T) {
	_, err := DecodeArrayText("not-an-array", pgtype.Int4OID)
	assert.Error(t, err)
}

func TestEncodeDecodeArrayText_RoundTrips(t *testing.T) {
	storage := `[1,2,3]`
	text, err := EncodeArrayText(storage, pgtype.Int4OID)
	require.NoError(t, err)
	back, err := DecodeArrayText(text, pgtype.Int4OID)
	require.NoError(t, err)
	assert.JSONEq(t, storage, back)
}

func TestEncodeArrayBinary_HeaderAndElementCount(t *testing.T) {
	b, err := EncodeArrayBinary(`[1,2]`, pgtype.Int4OID)
	require.NoError(t, err)
	// ndim(4) + hasnull(4) + elemoid(4) + dims(4+4) = 20 bytes of header,
	// then 2 elements each (4-byte length + 4-byte int4 payload).
	assert.Equal(t, 20+2*(4+4), len(b))
}

func TestEncodeArrayBinary_NullElementEncodesNegativeLength(t *testing.T) {
	b, err := EncodeArrayBinary(`[null]`, pgtype.Int4OID)
	require.NoError(t, err)
	// hasNull flag lives at byte offset 4.
	assert.EqualValues(t, 1, b[7])
}

func TestQuoteUnquoteArrayElement(t *testing.T) {
	assert.Equal(t, `""`, quoteArrayElement(""))
	assert.Equal(t, "plain", quoteArrayElement("plain"))
	assert.Equal(t, `"a,b"`, quoteArrayElement("a,b"))
	assert.Equal(t, "a", unquoteArrayElement("a"))
	assert.Equal(t, `a"b`, unquoteArrayElement(`"a\"b"`))
}
