package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11"

func TestEncodeUUIDText_LowercasesCanonicalForm(t *testing.T) {
	got, err := encodeUUIDText(testUUID)
	require.NoError(t, err)
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11", got)
}

func TestEncodeUUIDText_InvalidErrors(t *testing.T) {
	_, err := encodeUUIDText("not-a-uuid")
	assert.Error(t, err)
	_, err = encodeUUIDText(123)
	assert.Error(t, err)
}

func TestEncodeDecodeUUIDBinary_RoundTrips(t *testing.T) {
	b, err := encodeUUIDBinary(testUUID)
	require.NoError(t, err)
	require.Len(t, b, 16)

	got, err := decodeUUIDBinary(b)
	require.NoError(t, err)
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11", got)
}

func TestDecodeUUIDBinary_WrongLengthErrors(t *testing.T) {
	_, err := decodeUUIDBinary([]byte{1, 2, 3})
	assert.Error(t, err)
}
