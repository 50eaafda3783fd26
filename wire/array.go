package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pgsqlite/pgsqlite/oidinfo"
)

// EncodeArrayText renders storageJSON (the internal JSON-text storage
// form, per spec.md §3's Array column contract) as PostgreSQL's
// "{elem,elem}" text array form, with each element formatted through
// its element type's text encoder. Quoting follows the teacher's
// appendArrayQuotedString approach in array.go.
func EncodeArrayText(storageJSON string, elemOID oidinfo.OID) (string, error) {
	var elems []any
	if storageJSON == "" {
		elems = nil
	} else if err := json.Unmarshal([]byte(storageJSON), &elems); err != nil {
		return "", fmt.Errorf("wire: array storage is not valid JSON: %w", err)
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if e == nil {
			b.WriteString("NULL")
			continue
		}
		text, err := EncodeText(jsonScalarToStorage(e, elemOID), elemOID)
		if err != nil {
			return "", err
		}
		b.WriteString(quoteArrayElement(text))
	}
	b.WriteByte('}')
	return b.String(), nil
}

// DecodeArrayText parses a PostgreSQL "{elem,elem}" literal into the
// internal JSON-text storage form.
func DecodeArrayText(pgText string, elemOID oidinfo.OID) (string, error) {
	pgText = strings.TrimSpace(pgText)
	if !strings.HasPrefix(pgText, "{") || !strings.HasSuffix(pgText, "}") {
		return "", fmt.Errorf("wire: malformed array literal %q", pgText)
	}
	inner := pgText[1 : len(pgText)-1]
	tokens, err := splitArrayElements(inner)
	if err != nil {
		return "", err
	}

	elems := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "NULL" {
			elems = append(elems, nil)
			continue
		}
		unquoted := unquoteArrayElement(tok)
		v, err := DecodeText([]byte(unquoted), elemOID)
		if err != nil {
			return "", err
		}
		elems = append(elems, v)
	}
	out, err := json.Marshal(elems)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func quoteArrayElement(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := strings.ContainsAny(s, `{}",\ ` + "\t\n") || strings.EqualFold(s, "NULL")
	if !needsQuote {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func unquoteArrayElement(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		inner = strings.ReplaceAll(inner, `\\`, `\`)
		return inner
	}
	return s
}

// splitArrayElements splits a comma-separated array body respecting
// double-quoted elements, mirroring the teacher's scanner style used
// throughout array.go/url.go (byte-by-byte, tracking quote state).
func splitArrayElements(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var tokens []string
	var cur bytes.Buffer
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(s):
			cur.WriteByte(c)
			i++
			cur.WriteByte(s[i])
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	tokens = append(tokens, cur.String())
	return tokens, nil
}

// jsonScalarToStorage adjusts a value decoded from the JSON storage
// representation (where everything is float64/string/bool) back into
// the shape EncodeText expects for the element OID.
func jsonScalarToStorage(v any, elemOID oidinfo.OID) any {
	if f, ok := v.(float64); ok {
		switch oidinfo.StorageFor(elemOID) {
		case oidinfo.StorageInteger:
			return int64(f)
		default:
			return f
		}
	}
	return v
}

// EncodeArrayBinary produces PostgreSQL's binary array wire format:
// int32 ndim, int32 has-null flag, uint32 element OID, then per
// dimension (int32 size, int32 lower bound), then each element as
// (int32 length, bytes) with length -1 for NULL.
func EncodeArrayBinary(storageJSON string, elemOID oidinfo.OID) ([]byte, error) {
	var elems []any
	if storageJSON != "" {
		if err := json.Unmarshal([]byte(storageJSON), &elems); err != nil {
			return nil, fmt.Errorf("wire: array storage is not valid JSON: %w", err)
		}
	}

	hasNull := int32(0)
	for _, e := range elems {
		if e == nil {
			hasNull = 1
			break
		}
	}

	var buf bytes.Buffer
	writeInt32 := func(v int32) { b := make([]byte, 4); binary.BigEndian.PutUint32(b, uint32(v)); buf.Write(b) }
	writeInt32(1) // ndim
	writeInt32(hasNull)
	writeInt32(int32(elemOID))
	writeInt32(int32(len(elems)))
	writeInt32(1) // lower bound

	for _, e := range elems {
		if e == nil {
			writeInt32(-1)
			continue
		}
		eb, err := EncodeBinary(jsonScalarToStorage(e, elemOID), elemOID)
		if err != nil {
			return nil, err
		}
		writeInt32(int32(len(eb)))
		buf.Write(eb)
	}
	return buf.Bytes(), nil
}
