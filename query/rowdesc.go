package query

import (
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pgsqlite/pgsqlite/cache"
)

// toPgproto3 converts this package's own field descriptors (shared
// with cache.RowDescCache so both packages describe the same shape
// without either importing pgproto3 at the cache layer) into the
// wire-framing library's message type.
func toPgproto3(fields []cache.FieldDescription) *pgproto3.RowDescription {
	desc := &pgproto3.RowDescription{Fields: make([]pgproto3.FieldDescription, len(fields))}
	for i, f := range fields {
		desc.Fields[i] = pgproto3.FieldDescription{
			Name:                 []byte(f.Name),
			TableOID:             f.TableOID,
			TableAttributeNumber: uint16(f.ColumnAttrNo),
			DataTypeOID:          f.DataTypeOID,
			DataTypeSize:         f.DataTypeSize,
			TypeModifier:         f.TypeModifier,
			Format:               f.Format,
		}
	}
	return desc
}
