package record

import (
	"errors"
	"fmt"
)

// Conversion error kinds. Every one of them aborts the whole conversion.
var (
	ErrStructuralParse   = errors.New("structural parse error")
	ErrMissingSection    = errors.New("missing section")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrInconsistentGraph = errors.New("inconsistent graph")
	ErrCorruptImage      = errors.New("corrupt binary image")
)

// Error describes a failed conversion step. It unwraps to one of the
// sentinel kinds above.
type Error struct {
	Kind   error
	Record string // offending record or declaration kind
	Schema string // expected schema name, if any
	Msg    string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Record != "" {
		msg += ": " + e.Record
	}
	if e.Schema != "" {
		msg += " (expected " + e.Schema + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, rec, schema, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Record: rec, Schema: schema, Msg: msg}
}

// StructuralParse reports an impossible grammar event sequence.
func StructuralParse(rec, format string, args ...any) error {
	return newError(ErrStructuralParse, rec, "", format, args...)
}

// MissingSection reports that no record of the named kind was found.
func MissingSection(schema string) error {
	return newError(ErrMissingSection, "", schema, "")
}

// SchemaViolation reports a declaration that does not satisfy its schema.
func SchemaViolation(rec, schema, format string, args ...any) error {
	return newError(ErrSchemaViolation, rec, schema, format, args...)
}

// InconsistentGraph reports a record whose null flag contradicts its
// auxiliary data.
func InconsistentGraph(rec, format string, args ...any) error {
	return newError(ErrInconsistentGraph, rec, "", format, args...)
}

// CorruptImage reports binary input that cannot be decoded.
func CorruptImage(rec, format string, args ...any) error {
	return newError(ErrCorruptImage, rec, "", format, args...)
}
