package wire

import (
	"strings"

	"github.com/google/uuid"
)

func encodeUUIDText(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", wrapInvalid("uuid", "")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", wrapInvalid("uuid", s)
	}
	return strings.ToLower(u.String()), nil
}

func encodeUUIDBinary(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, wrapInvalid("uuid", "")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, wrapInvalid("uuid", s)
	}
	b := u[:]
	return append([]byte(nil), b...), nil
}

func decodeUUIDBinary(b []byte) (string, error) {
	if len(b) != 16 {
		return "", wrapInvalid("uuid", "")
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", wrapInvalid("uuid", "")
	}
	return strings.ToLower(u.String()), nil
}
