package cgrammar

import (
	"fmt"
	"strings"
)

var storageClasses = map[string]bool{
	"extern":   true,
	"static":   true,
	"typedef":  true,
	"register": true,
	"auto":     true,
}

var qualifiers = map[string]bool{
	"const":    true,
	"volatile": true,
	"restrict": true,
}

// builtinTypes may be followed by further specifiers ("unsigned int").
var builtinTypes = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"float":    true,
	"double":   true,
	"signed":   true,
	"unsigned": true,
}

// SyntaxError is returned for source text outside the declaration subset.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type walker struct {
	lex *lexer
	tok Token
	l   Listener
}

// Walk scans src and reports its declarations to l.
func Walk(src string, l Listener) error {
	w := &walker{lex: newLexer(src), l: l}
	if err := w.advance(); err != nil {
		return err
	}
	if err := l.EnterCompilationUnit(); err != nil {
		return err
	}
	for w.tok.Type != EOF {
		if err := w.declaration(); err != nil {
			return err
		}
	}
	return l.ExitCompilationUnit()
}

func (w *walker) advance() error {
	tok, err := w.lex.next()
	if err != nil {
		return err
	}
	w.tok = tok
	return nil
}

func (w *walker) syntax(format string, args ...any) error {
	return &SyntaxError{Line: w.tok.Line, Msg: fmt.Sprintf(format, args...)}
}

func (w *walker) expect(tt TokenType) (Token, error) {
	if w.tok.Type != tt {
		return Token{}, w.syntax("expected %s, found %s", tt, w.describe())
	}
	tok := w.tok
	return tok, w.advance()
}

func (w *walker) describe() string {
	if w.tok.Lexeme != "" {
		return fmt.Sprintf("%q", w.tok.Lexeme)
	}
	return w.tok.Type.String()
}

func (w *walker) declaration() error {
	if err := w.l.EnterDeclaration(); err != nil {
		return err
	}
	if err := w.specifiers(); err != nil {
		return err
	}
	if w.tok.Type != SEMI {
		for {
			if err := w.initDeclarator(); err != nil {
				return err
			}
			if w.tok.Type != COMMA {
				break
			}
			if err := w.advance(); err != nil {
				return err
			}
		}
	}
	if _, err := w.expect(SEMI); err != nil {
		return err
	}
	return w.l.ExitDeclaration()
}

func (w *walker) specifiers() error {
	typed := false
	for w.tok.Type == IDENT {
		word := w.tok.Lexeme
		switch {
		case storageClasses[word]:
			if err := w.l.StorageClassSpecifier(word); err != nil {
				return err
			}
		case qualifiers[word]:
		case word == "struct" || word == "union":
			if err := w.advance(); err != nil {
				return err
			}
			tag, err := w.expect(IDENT)
			if err != nil {
				return err
			}
			if err := w.l.TypeSpecifier(word + " " + tag.Lexeme); err != nil {
				return err
			}
			if err := w.l.TypeSpecifier(tag.Lexeme); err != nil {
				return err
			}
			typed = true
			continue
		case builtinTypes[word]:
			if err := w.l.TypeSpecifier(word); err != nil {
				return err
			}
			typed = true
		case !typed:
			if err := w.l.TypeSpecifier(word); err != nil {
				return err
			}
			typed = true
		default:
			// First identifier after a type name is the declarator.
			return nil
		}
		if err := w.advance(); err != nil {
			return err
		}
	}
	if !typed {
		return w.syntax("declaration without a type, found %s", w.describe())
	}
	return nil
}

func (w *walker) initDeclarator() error {
	for w.tok.Type == STAR {
		if err := w.advance(); err != nil {
			return err
		}
		for w.tok.Type == IDENT && qualifiers[w.tok.Lexeme] {
			if err := w.advance(); err != nil {
				return err
			}
		}
	}
	name, err := w.expect(IDENT)
	if err != nil {
		return err
	}
	var dims []string
	for w.tok.Type == LBRACKET {
		if err := w.advance(); err != nil {
			return err
		}
		if w.tok.Type != RBRACKET {
			expr, err := w.expression()
			if err != nil {
				return err
			}
			dims = append(dims, expr)
		}
		if _, err := w.expect(RBRACKET); err != nil {
			return err
		}
	}
	if err := w.l.Declarator(name.Lexeme, len(dims)); err != nil {
		return err
	}
	for _, d := range dims {
		if err := w.l.AssignmentExpression(d); err != nil {
			return err
		}
	}
	if w.tok.Type != ASSIGN {
		return nil
	}
	if err := w.advance(); err != nil {
		return err
	}
	return w.initializer()
}

func (w *walker) initializer() error {
	if err := w.l.EnterInitializer(); err != nil {
		return err
	}
	if w.tok.Type == LBRACE {
		if err := w.advance(); err != nil {
			return err
		}
		for w.tok.Type != RBRACE {
			if err := w.initializer(); err != nil {
				return err
			}
			if w.tok.Type != COMMA {
				break
			}
			if err := w.advance(); err != nil {
				return err
			}
		}
		if _, err := w.expect(RBRACE); err != nil {
			return err
		}
	} else {
		expr, err := w.expression()
		if err != nil {
			return err
		}
		if err := w.l.AssignmentExpression(expr); err != nil {
			return err
		}
	}
	return w.l.ExitInitializer()
}

// expression returns the source text of a unary literal expression.
func (w *walker) expression() (string, error) {
	var prefix strings.Builder
	for w.tok.Type == MINUS || w.tok.Type == PLUS || w.tok.Type == AMP {
		prefix.WriteString(w.tok.Lexeme)
		if err := w.advance(); err != nil {
			return "", err
		}
	}
	switch w.tok.Type {
	case NUMBER, STRING, CHAR, IDENT:
		text := prefix.String() + w.tok.Lexeme
		return text, w.advance()
	default:
		return "", w.syntax("expected expression, found %s", w.describe())
	}
}
