package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func encodeDateText(value any) (string, error) {
	unixDays := toInt64(value)
	t := time.Unix(unixDays*86400, 0).UTC()
	return t.Format("2006-01-02"), nil
}

func dateToUnixDays(value any) (int64, error) {
	return toInt64(value), nil
}

func encodeTimeText(micros int64) (string, error) {
	d := time.Duration(micros) * time.Microsecond
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ns := d.Nanoseconds()
	if ns == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, ns/1000), nil
}

func parseTimeOfDayMicros(s string) (int64, error) {
	layouts := []string{"15:04:05.999999", "15:04:05"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return int64(t.Hour())*3600*microsPerSecond +
				int64(t.Minute())*60*microsPerSecond +
				int64(t.Second())*microsPerSecond +
				int64(t.Nanosecond())/1000, nil
		}
	}
	return 0, wrapInvalid("time", s)
}

// encodeTimetzText renders value, expected to be a struct{Micros int64; OffsetSeconds int32}.
func encodeTimetzText(value any) (string, error) {
	tz, ok := value.(Timetz)
	if !ok {
		return "", fmt.Errorf("wire: timetz value is %T, want wire.Timetz", value)
	}
	base, err := encodeTimeText(tz.Micros)
	if err != nil {
		return "", err
	}
	offHours := -tz.OffsetSeconds / 3600
	return fmt.Sprintf("%s%+03d", base, offHours), nil
}

// Timetz is the internal representation of TIME WITH TIME ZONE:
// microseconds since midnight plus a UTC offset in seconds where
// negative values are *east* of UTC, matching spec.md's binary
// contract for timetz.
type Timetz struct {
	Micros        int64
	OffsetSeconds int32
}

func parseTimetzText(s string) (Timetz, error) {
	idx := strings.IndexAny(s, "+-")
	if idx <= 0 {
		return Timetz{}, wrapInvalid("timetz", s)
	}
	micros, err := parseTimeOfDayMicros(s[:idx])
	if err != nil {
		return Timetz{}, err
	}
	offHours, err := strconv.Atoi(s[idx:])
	if err != nil {
		return Timetz{}, wrapInvalid("timetz", s)
	}
	return Timetz{Micros: micros, OffsetSeconds: int32(-offHours * 3600)}, nil
}

func encodeTimetzBinary(value any) ([]byte, error) {
	tz, ok := value.(Timetz)
	if !ok {
		return nil, fmt.Errorf("wire: timetz value is %T, want wire.Timetz", value)
	}
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[0:], uint64(tz.Micros))
	binary.BigEndian.PutUint32(buf[8:], uint32(tz.OffsetSeconds))
	return buf, nil
}

func decodeTimetzBinary(b []byte) (Timetz, error) {
	if len(b) < 12 {
		return Timetz{}, fmt.Errorf("wire: short timetz")
	}
	micros := int64(binary.BigEndian.Uint64(b[0:]))
	off := int32(binary.BigEndian.Uint32(b[8:]))
	return Timetz{Micros: micros, OffsetSeconds: off}, nil
}

func encodeTimestampText(unixMicros int64, withZone bool) (string, error) {
	t := time.UnixMicro(unixMicros).UTC()
	layout := "2006-01-02 15:04:05"
	frac := t.Nanosecond()
	if frac != 0 {
		layout = "2006-01-02 15:04:05.999999"
	}
	s := t.Format(layout)
	if withZone {
		s += "+00"
	}
	return s, nil
}

func parseTimestampText(s string, withZone bool) (int64, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05-07",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if !withZone {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
			}
			return t.UnixMicro(), nil
		}
	}
	typeName := "timestamp"
	if withZone {
		typeName = "timestamp with time zone"
	}
	return 0, wrapInvalid(typeName, s)
}

// Interval is the decomposed form of PostgreSQL's INTERVAL type.
// Internal storage (a single SQLite INTEGER column) collapses this
// into total microseconds using 30-day months and 24-hour days, an
// approximation noted in DESIGN.md; the wire binary form always uses
// the exact three-field representation spec.md §4.A specifies.
type Interval struct {
	Micros int64
	Days   int32
	Months int32
}

const (
	microsPerMonth = 30 * int64(microsPerDay)
)

// ToTotalMicros collapses an Interval to the single-integer storage
// form used internally.
func (iv Interval) ToTotalMicros() int64 {
	return int64(iv.Months)*microsPerMonth + int64(iv.Days)*int64(microsPerDay) + iv.Micros
}

// IntervalFromTotalMicros expands the collapsed storage form back
// into days/months/micros for wire projection.
func IntervalFromTotalMicros(total int64) Interval {
	months := total / microsPerMonth
	rem := total % microsPerMonth
	days := rem / int64(microsPerDay)
	micros := rem % int64(microsPerDay)
	return Interval{Micros: micros, Days: int32(days), Months: int32(months)}
}

func encodeIntervalText(totalMicros int64) (string, error) {
	iv := IntervalFromTotalMicros(totalMicros)
	var parts []string
	if iv.Months != 0 {
		years := iv.Months / 12
		months := iv.Months % 12
		if years != 0 {
			parts = append(parts, fmt.Sprintf("%d years", years))
		}
		if months != 0 {
			parts = append(parts, fmt.Sprintf("%d mons", months))
		}
	}
	if iv.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d days", iv.Days))
	}
	if iv.Micros != 0 || len(parts) == 0 {
		neg := iv.Micros < 0
		m := iv.Micros
		if neg {
			m = -m
		}
		h := m / (3600 * microsPerSecond)
		m -= h * 3600 * microsPerSecond
		mi := m / (60 * microsPerSecond)
		m -= mi * 60 * microsPerSecond
		s := m / microsPerSecond
		sign := ""
		if neg {
			sign = "-"
		}
		parts = append(parts, fmt.Sprintf("%s%02d:%02d:%02d", sign, h, mi, s))
	}
	return strings.Join(parts, " "), nil
}

func parseIntervalText(s string) (int64, error) {
	// Accepts the ISO-ish "HH:MM:SS" suffix form this server emits;
	// falls back to treating the whole string as a HH:MM:SS clock
	// duration, matching the teacher's narrow Clock.scanString parser.
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err == nil {
		return (int64(t.Hour())*3600 + int64(t.Minute())*60 + int64(t.Second())) * microsPerSecond, nil
	}
	return 0, wrapInvalid("interval", s)
}

func encodeIntervalBinary(totalMicros int64) []byte {
	iv := IntervalFromTotalMicros(totalMicros)
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:], uint64(iv.Micros))
	binary.BigEndian.PutUint32(buf[8:], uint32(iv.Days))
	binary.BigEndian.PutUint32(buf[12:], uint32(iv.Months))
	return buf
}

func decodeIntervalBinary(b []byte) (int64, error) {
	if len(b) < 16 {
		return 0, fmt.Errorf("wire: short interval")
	}
	micros := int64(binary.BigEndian.Uint64(b[0:]))
	days := int32(binary.BigEndian.Uint32(b[8:]))
	months := int32(binary.BigEndian.Uint32(b[12:]))
	return Interval{Micros: micros, Days: days, Months: months}.ToTotalMicros(), nil
}
