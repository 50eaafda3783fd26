// Package pgerr is the server-side mirror of lib-pq's error.go: the
// same field shape (Severity, Code, Message, Detail, Hint, Schema,
// Table, Column, Constraint), but constructed by this server to send
// as an ErrorResponse rather than parsed from one received as a
// client. See spec.md §7 for the error kind taxonomy and §6 for the
// SQLSTATE table.
package pgerr

import "fmt"

// Severity values, matching the teacher's Efatal/Epanic/... constants.
const (
	SeverityError   = "ERROR"
	SeverityFatal   = "FATAL"
	SeverityWarning = "WARNING"
	SeverityNotice  = "NOTICE"
)

// Kind is the internal error classification from spec.md §7.
type Kind int

const (
	KindProtocol Kind = iota
	KindParse
	KindType
	KindConstraint
	KindRuntime
	KindTransaction
	KindFeature
	KindCancelled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "Protocol"
	case KindParse:
		return "Parse"
	case KindType:
		return "Type"
	case KindConstraint:
		return "Constraint"
	case KindRuntime:
		return "Runtime"
	case KindTransaction:
		return "Transaction"
	case KindFeature:
		return "Feature"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Internal"
	}
}

// defaultSQLSTATE maps a Kind to the SQLSTATE spec.md §6 assigns it
// when no more specific code applies.
func (k Kind) defaultSQLSTATE() string {
	switch k {
	case KindProtocol:
		return "08P01"
	case KindParse:
		return "42601"
	case KindType:
		return "22P02"
	case KindConstraint:
		return "23505"
	case KindRuntime:
		return "XX000"
	case KindTransaction:
		return "25P02"
	case KindFeature:
		return "0A000"
	case KindCancelled:
		return "57014"
	default:
		return "XX000"
	}
}

// Named SQLSTATEs from spec.md §6, for callers that need a specific
// one rather than a kind's default.
const (
	UndefinedTable            = "42P01"
	UndefinedColumn           = "42703"
	SyntaxError               = "42601"
	InvalidTextRepresentation = "22P02"
	NumericValueOutOfRange    = "22003"
	UniqueViolation           = "23505"
	CheckViolation            = "23514"
	InFailedSQLTransaction    = "25P02"
	QueryCanceled             = "57014"
	FeatureNotSupported       = "0A000"
	InternalError             = "XX000"
	InvalidSQLStatementName   = "26000"
	InvalidCursorName         = "34000"
)

// Error is a server-side PostgreSQL error, shaped like the wire
// ErrorResponse/NoticeResponse fields.
type Error struct {
	Severity   string
	Kind       Kind
	Code       string // SQLSTATE; defaults to Kind.defaultSQLSTATE() when empty
	Message    string
	Detail     string
	Hint       string
	Schema     string
	Table      string
	Column     string
	Constraint string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pgsqlite: %s (%s)", e.Message, e.SQLSTATE())
}

// SQLSTATE returns the wire error code, falling back to the Kind's
// default when Code was left blank.
func (e *Error) SQLSTATE() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.defaultSQLSTATE()
}

// New constructs an *Error with severity ERROR.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Severity: SeverityError, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCode overrides the SQLSTATE.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail sets the Detail field and returns e for chaining.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithTable sets Schema/Table detail fields.
func (e *Error) WithTable(schema, table string) *Error {
	e.Schema = schema
	e.Table = table
	return e
}

// WithColumn sets the Column detail field.
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// WithConstraint sets the Constraint detail field.
func (e *Error) WithConstraint(constraint string) *Error {
	e.Constraint = constraint
	return e
}

// Undefined table/column/syntax/type/constraint convenience constructors,
// mirroring the exact SQLSTATEs named in spec.md §6.
func UndefinedTableErr(table string) *Error {
	return New(KindParse, "relation %q does not exist", table).WithCode(UndefinedTable).WithTable("", table)
}

func UndefinedColumnErr(table, column string) *Error {
	return New(KindParse, "column %q of relation %q does not exist", column, table).
		WithCode(UndefinedColumn).WithTable("", table).WithColumn(column)
}

func SyntaxErr(detail string) *Error {
	return New(KindParse, "syntax error").WithCode(SyntaxError).WithDetail(detail)
}

func InvalidTextErr(typeName, value string) *Error {
	return New(KindType, "invalid input syntax for type %s: %q", typeName, value).WithCode(InvalidTextRepresentation)
}

func NumericRangeErr(typeName string) *Error {
	return New(KindType, "numeric value out of range for type %s", typeName).WithCode(NumericValueOutOfRange)
}

func UniqueViolationErr(constraint string) *Error {
	return New(KindConstraint, "duplicate key value violates unique constraint %q", constraint).
		WithCode(UniqueViolation).WithConstraint(constraint)
}

func CheckViolationErr(constraint, detail string) *Error {
	return New(KindConstraint, "new row for relation violates check constraint %q", constraint).
		WithCode(CheckViolation).WithConstraint(constraint).WithDetail(detail)
}

func InFailedTransactionErr() *Error {
	return New(KindTransaction, "current transaction is aborted, commands ignored until end of transaction block").
		WithCode(InFailedSQLTransaction)
}

func CancelledErr() *Error {
	return New(KindCancelled, "canceling statement due to user request").WithCode(QueryCanceled)
}

func FeatureNotSupportedErr(feature string) *Error {
	return New(KindFeature, "%s is not supported", feature).WithCode(FeatureNotSupported)
}

// As extracts an *Error from err via errors.As-like matching without
// importing errors (avoids an import cycle with callers that alias
// the stdlib package); kept trivial since *Error never wraps another
// error today.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
