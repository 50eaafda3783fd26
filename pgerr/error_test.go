package pgerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsSeverityAndSQLSTATE(t *testing.T) {
	e := New(KindParse, "bad token %q", "x")
	assert.Equal(t, SeverityError, e.Severity)
	assert.Equal(t, "bad token \"x\"", e.Message)
	assert.Equal(t, SyntaxError, e.SQLSTATE())
}

func TestWithCode_Overrides(t *testing.T) {
	e := New(KindRuntime, "boom").WithCode(InternalError)
	assert.Equal(t, InternalError, e.SQLSTATE())
}

func TestError_ImplementsErrorInterface(t *testing.T) {
	e := New(KindType, "invalid input syntax")
	assert.Contains(t, e.Error(), "invalid input syntax")
	assert.Contains(t, e.Error(), e.SQLSTATE())
}

func TestWithDetailTableColumnConstraint_Chain(t *testing.T) {
	e := New(KindConstraint, "oops").
		WithDetail("d").
		WithTable("public", "users").
		WithColumn("email").
		WithConstraint("users_email_key")
	assert.Equal(t, "d", e.Detail)
	assert.Equal(t, "public", e.Schema)
	assert.Equal(t, "users", e.Table)
	assert.Equal(t, "email", e.Column)
	assert.Equal(t, "users_email_key", e.Constraint)
}

func TestConvenienceConstructors_SQLSTATEs(t *testing.T) {
	assert.Equal(t, UndefinedTable, UndefinedTableErr("ghost").SQLSTATE())
	assert.Equal(t, UndefinedColumn, UndefinedColumnErr("t", "c").SQLSTATE())
	assert.Equal(t, SyntaxError, SyntaxErr("near EOF").SQLSTATE())
	assert.Equal(t, InvalidTextRepresentation, InvalidTextErr("int4", "abc").SQLSTATE())
	assert.Equal(t, NumericValueOutOfRange, NumericRangeErr("numeric").SQLSTATE())
	assert.Equal(t, UniqueViolation, UniqueViolationErr("users_pkey").SQLSTATE())
	assert.Equal(t, CheckViolation, CheckViolationErr("chk", "detail").SQLSTATE())
	assert.Equal(t, InFailedSQLTransaction, InFailedTransactionErr().SQLSTATE())
	assert.Equal(t, QueryCanceled, CancelledErr().SQLSTATE())
	assert.Equal(t, FeatureNotSupported, FeatureNotSupportedErr("LISTEN").SQLSTATE())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Protocol", KindProtocol.String())
	assert.Equal(t, "Parse", KindParse.String())
	assert.Equal(t, "Type", KindType.String())
	assert.Equal(t, "Constraint", KindConstraint.String())
	assert.Equal(t, "Runtime", KindRuntime.String())
	assert.Equal(t, "Transaction", KindTransaction.String())
	assert.Equal(t, "Feature", KindFeature.String())
	assert.Equal(t, "Cancelled", KindCancelled.String())
	assert.Equal(t, "Internal", KindInternal.String())
}

func TestAs(t *testing.T) {
	var err error = New(KindRuntime, "boom")
	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, KindRuntime, e.Kind)

	_, ok = As(assertPlainError{})
	assert.False(t, ok)
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "plain" }
