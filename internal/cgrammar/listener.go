// Package cgrammar walks the C declaration subset used by decompiled data
// files and reports what it sees as an ordered stream of grammar events.
//
// It understands global declarations with storage classes, qualifiers,
// struct and typedef type names, pointer and array declarators and brace
// initializers of literal values. It does not evaluate anything: every scalar
// is handed to the Listener as source text.
package cgrammar

// Listener receives tree-walk events in source order. Returning an error from
// any method stops the walk and the error is returned from Walk unchanged.
type Listener interface {
	EnterCompilationUnit() error
	ExitCompilationUnit() error
	EnterDeclaration() error
	ExitDeclaration() error
	StorageClassSpecifier(text string) error
	// TypeSpecifier fires once per specifier. A "struct X" specifier fires
	// twice: once as "struct X" and once for the tag "X".
	TypeSpecifier(text string) error
	// Declarator fires before the size expressions of its sized array
	// dimensions, which are reported as assignment expressions.
	Declarator(name string, sizedDims int) error
	AssignmentExpression(text string) error
	EnterInitializer() error
	ExitInitializer() error
}

// BaseListener implements Listener with no-ops; embed it to handle a subset
// of events.
type BaseListener struct{}

func (BaseListener) EnterCompilationUnit() error { return nil }
func (BaseListener) ExitCompilationUnit() error { return nil }
func (BaseListener) EnterDeclaration() error { return nil }
func (BaseListener) ExitDeclaration() error { return nil }
func (BaseListener) StorageClassSpecifier(string) error { return nil }
func (BaseListener) TypeSpecifier(string) error { return nil }
func (BaseListener) Declarator(string, int) error { return nil }
func (BaseListener) AssignmentExpression(string) error { return nil }
func (BaseListener) EnterInitializer() error { return nil }
func (BaseListener) ExitInitializer() error { return nil }
