// Package wire implements the binary and text codecs for PostgreSQL
// wire types (component A of spec.md). It generalizes the teacher's
// per-OID encode/decode switch (lib-pq's encode.go/decode.go/
// datetime.go/array.go/codec.go) from "Go value <-> database/sql
// driver.Value" into "Go value <-> wire bytes", using
// github.com/jackc/pgx/v5/pgtype only for OID constants.
package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgsqlite/pgsqlite/numeric"
	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// pgEpochUnixSeconds is the number of seconds between the Unix epoch
// (1970-01-01) and the PostgreSQL epoch (2000-01-01), used to
// translate between this server's internal SQLite storage (Unix-
// epoch based, matching spec.md's E3 example: 19737 days internally)
// and the wire's PG-epoch-based binary encoding (8780 days on the
// wire for the same date).
const pgEpochUnixSeconds = 946684800

const (
	microsPerSecond = 1_000_000
	microsPerDay    = 86400 * microsPerSecond
)

// UnixDaysToPgDays converts SQLite's internal day count (days since
// 1970-01-01) to the wire's day count (days since 2000-01-01).
func UnixDaysToPgDays(unixDays int64) int32 {
	return int32(unixDays - pgEpochUnixSeconds/86400)
}

// PgDaysToUnixDays is the inverse of UnixDaysToPgDays.
func PgDaysToUnixDays(pgDays int32) int64 {
	return int64(pgDays) + pgEpochUnixSeconds/86400
}

// UnixMicrosToPgMicros converts microseconds since the Unix epoch to
// microseconds since the PostgreSQL epoch.
func UnixMicrosToPgMicros(unixMicros int64) int64 {
	return unixMicros - int64(pgEpochUnixSeconds)*microsPerSecond
}

// PgMicrosToUnixMicros is the inverse of UnixMicrosToPgMicros.
func PgMicrosToUnixMicros(pgMicros int64) int64 {
	return pgMicros + int64(pgEpochUnixSeconds)*microsPerSecond
}

// EncodeText renders value (as produced by the storage layer, or a
// decoded parameter) as the PostgreSQL text wire form for oid.
func EncodeText(value any, oid oidinfo.OID) (string, error) {
	if value == nil {
		return "", nil
	}
	switch oid {
	case pgtype.BoolOID:
		return encodeBoolText(value)
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return fmt.Sprintf("%d", toInt64(value)), nil
	case pgtype.Float4OID, pgtype.Float8OID:
		return formatFloatText(value, oid)
	case pgtype.NumericOID:
		return encodeNumericText(value)
	case pgtype.DateOID:
		return encodeDateText(value)
	case pgtype.TimeOID:
		return encodeTimeText(toInt64(value))
	case oidinfo.TimetzOID:
		return encodeTimetzText(value)
	case pgtype.TimestampOID:
		return encodeTimestampText(toInt64(value), false)
	case pgtype.TimestamptzOID:
		return encodeTimestampText(toInt64(value), true)
	case pgtype.IntervalOID:
		return encodeIntervalText(toInt64(value))
	case pgtype.UUIDOID:
		return encodeUUIDText(value)
	case pgtype.ByteaOID:
		return encodeByteaText(value)
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

// EncodeBinary renders value as the PostgreSQL binary wire form for oid.
func EncodeBinary(value any, oid oidinfo.OID) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	switch oid {
	case pgtype.BoolOID:
		b, err := encodeBoolText(value)
		if err != nil {
			return nil, err
		}
		if b == "t" {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case pgtype.Int2OID:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(toInt64(value)))
		return buf, nil
	case pgtype.Int4OID:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(toInt64(value)))
		return buf, nil
	case pgtype.Int8OID:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(toInt64(value)))
		return buf, nil
	case pgtype.Float4OID:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, float32bits(value))
		return buf, nil
	case pgtype.Float8OID:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, float64bits(value))
		return buf, nil
	case pgtype.NumericOID:
		d, err := toDecimal(value)
		if err != nil {
			return nil, err
		}
		return d.EncodeBinary(), nil
	case pgtype.DateOID:
		unixDays, err := dateToUnixDays(value)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(UnixDaysToPgDays(unixDays)))
		return buf, nil
	case pgtype.TimeOID:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(toInt64(value)))
		return buf, nil
	case oidinfo.TimetzOID:
		return encodeTimetzBinary(value)
	case pgtype.TimestampOID:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(UnixMicrosToPgMicros(toInt64(value))))
		return buf, nil
	case pgtype.TimestamptzOID:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(UnixMicrosToPgMicros(toInt64(value))))
		return buf, nil
	case pgtype.IntervalOID:
		return encodeIntervalBinary(toInt64(value)), nil
	case pgtype.UUIDOID:
		return encodeUUIDBinary(value)
	case pgtype.ByteaOID:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("wire: bytea value is %T, want []byte", value)
		}
		return b, nil
	case pgtype.JSONBOID:
		s, _ := EncodeText(value, oid)
		return append([]byte{1}, []byte(s)...), nil
	default:
		s, err := EncodeText(value, oid)
		return []byte(s), err
	}
}

// DecodeText parses the wire text form b for oid into a Go value
// suitable for storage (see oidinfo.StorageFor for the target kind).
func DecodeText(b []byte, oid oidinfo.OID) (any, error) {
	s := string(b)
	switch oid {
	case pgtype.BoolOID:
		return s == "t" || s == "true" || s == "TRUE" || s == "1", nil
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w", wrapInvalid("integer", s))
		}
		return v, nil
	case pgtype.Float4OID:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, wrapInvalid("real", s)
		}
		return v, nil
	case pgtype.Float8OID:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, wrapInvalid("double precision", s)
		}
		return v, nil
	case pgtype.NumericOID:
		d, err := numeric.Parse(s)
		if err != nil {
			return nil, wrapInvalid("numeric", s)
		}
		return d, nil
	case pgtype.DateOID:
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, wrapInvalid("date", s)
		}
		return t.Unix() / 86400, nil
	case pgtype.TimeOID:
		return parseTimeOfDayMicros(s)
	case oidinfo.TimetzOID:
		return parseTimetzText(s)
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return parseTimestampText(s, oid == pgtype.TimestamptzOID)
	case pgtype.IntervalOID:
		return parseIntervalText(s)
	case pgtype.UUIDOID:
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, wrapInvalid("uuid", s)
		}
		return strings.ToLower(u.String()), nil
	case pgtype.ByteaOID:
		return decodeByteaText(s)
	default:
		return s, nil
	}
}

// DecodeBinary parses the wire binary form b for oid.
func DecodeBinary(b []byte, oid oidinfo.OID) (any, error) {
	switch oid {
	case pgtype.BoolOID:
		return len(b) > 0 && b[0] != 0, nil
	case pgtype.Int2OID:
		if len(b) < 2 {
			return nil, fmt.Errorf("wire: short int2")
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case pgtype.Int4OID:
		if len(b) < 4 {
			return nil, fmt.Errorf("wire: short int4")
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case pgtype.Int8OID:
		if len(b) < 8 {
			return nil, fmt.Errorf("wire: short int8")
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case pgtype.Float4OID:
		if len(b) < 4 {
			return nil, fmt.Errorf("wire: short float4")
		}
		bits := binary.BigEndian.Uint32(b)
		return float64(float32frombits(bits)), nil
	case pgtype.Float8OID:
		if len(b) < 8 {
			return nil, fmt.Errorf("wire: short float8")
		}
		return float64frombits(binary.BigEndian.Uint64(b)), nil
	case pgtype.NumericOID:
		return numeric.DecodeBinary(b)
	case pgtype.DateOID:
		if len(b) < 4 {
			return nil, fmt.Errorf("wire: short date")
		}
		pgDays := int32(binary.BigEndian.Uint32(b))
		return PgDaysToUnixDays(pgDays), nil
	case pgtype.TimeOID:
		if len(b) < 8 {
			return nil, fmt.Errorf("wire: short time")
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case oidinfo.TimetzOID:
		return decodeTimetzBinary(b)
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		if len(b) < 8 {
			return nil, fmt.Errorf("wire: short timestamp")
		}
		pgMicros := int64(binary.BigEndian.Uint64(b))
		return PgMicrosToUnixMicros(pgMicros), nil
	case pgtype.IntervalOID:
		return decodeIntervalBinary(b)
	case pgtype.UUIDOID:
		return decodeUUIDBinary(b)
	case pgtype.ByteaOID:
		return append([]byte(nil), b...), nil
	default:
		return string(b), nil
	}
}

func wrapInvalid(typeName, value string) error {
	return fmt.Errorf("invalid input syntax for type %s: %q", typeName, value)
}

func encodeByteaText(value any) (string, error) {
	b, ok := value.([]byte)
	if !ok {
		return "", fmt.Errorf("wire: bytea value is %T, want []byte", value)
	}
	return `\x` + hex.EncodeToString(b), nil
}

func decodeByteaText(s string) ([]byte, error) {
	if !strings.HasPrefix(s, `\x`) {
		return nil, wrapInvalid("bytea", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, wrapInvalid("bytea", s)
	}
	return b, nil
}
