package wire

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgsqlite/pgsqlite/numeric"
	"github.com/pgsqlite/pgsqlite/oidinfo"
)

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toFloat64(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func float32bits(value any) uint32 {
	return math.Float32bits(float32(toFloat64(value)))
}

func float64bits(value any) uint64 {
	return math.Float64bits(toFloat64(value))
}

func float32frombits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func float64frombits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func formatFloatText(value any, oid oidinfo.OID) (string, error) {
	bits := 64
	if oid == pgtype.Float4OID {
		bits = 32
	}
	return fmt.Sprintf("%s", trimFloat(toFloat64(value), bits)), nil
}

// trimFloat renders f the way PostgreSQL's text output does: the
// shortest decimal that round-trips at the given precision, no
// trailing zeros, integers without a decimal point.
func trimFloat(f float64, bits int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	prec := -1
	s := fmt.Sprintf("%g", f)
	_ = prec
	if bits == 32 {
		s = fmt.Sprintf("%g", float64(float32(f)))
	}
	return s
}

func toDecimal(value any) (numeric.Decimal, error) {
	switch v := value.(type) {
	case numeric.Decimal:
		return v, nil
	case string:
		return numeric.Parse(v)
	case float64:
		return numeric.Parse(fmt.Sprintf("%v", v))
	default:
		return numeric.Decimal{}, fmt.Errorf("wire: cannot convert %T to numeric", value)
	}
}

func encodeNumericText(value any) (string, error) {
	d, err := toDecimal(value)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func encodeBoolText(value any) (string, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return "t", nil
		}
		return "f", nil
	case int64:
		if v != 0 {
			return "t", nil
		}
		return "f", nil
	default:
		return "", fmt.Errorf("wire: cannot convert %T to bool", value)
	}
}
