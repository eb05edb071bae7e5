package cgrammar

import (
	"fmt"
	"strings"
)

// lexer scans the declaration subset: identifiers, numbers, string and
// character literals, and the punctuation used by brace initializers.
// Comments are discarded; preprocessor lines are collected, not expanded.
type lexer struct {
	src        string
	pos        int
	line       int
	directives []string
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// atLineStart reports whether only whitespace precedes pos on its line.
func (l *lexer) atLineStart() bool {
	for i := l.pos - 1; i >= 0; i-- {
		switch l.src[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

// skipTrivia discards whitespace, comments and directive lines.
func (l *lexer) skipTrivia() error {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case isSpace(c):
			l.advance()
		case c == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peek2() == '*':
			start := l.line
			l.advance()
			l.advance()
			closed := false
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peek2() == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return fmt.Errorf("line %d: unterminated block comment", start)
			}
		case c == '#' && l.atLineStart():
			start := l.pos
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			l.directives = append(l.directives, strings.TrimSpace(l.src[start:l.pos]))
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	line := l.line
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Line: line}, nil
	}
	c := l.peek()
	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && (isIdentStart(l.peek()) || isDigit(l.peek())) {
			l.advance()
		}
		return Token{Type: IDENT, Lexeme: l.src[start:l.pos], Line: line}, nil
	case isDigit(c) || (c == '.' && isDigit(l.peek2())):
		return l.scanNumber(), nil
	case c == '"':
		return l.scanQuoted('"', STRING)
	case c == '\'':
		return l.scanQuoted('\'', CHAR)
	}

	l.advance()
	var tt TokenType
	switch c {
	case '{':
		tt = LBRACE
	case '}':
		tt = RBRACE
	case '[':
		tt = LBRACKET
	case ']':
		tt = RBRACKET
	case '(':
		tt = LPAREN
	case ')':
		tt = RPAREN
	case ';':
		tt = SEMI
	case ',':
		tt = COMMA
	case '=':
		tt = ASSIGN
	case '*':
		tt = STAR
	case '&':
		tt = AMP
	case '-':
		tt = MINUS
	case '+':
		tt = PLUS
	default:
		return Token{}, fmt.Errorf("line %d: unexpected character %q", line, c)
	}
	return Token{Type: tt, Lexeme: string(c), Line: line}, nil
}

// scanNumber accepts decimal, hex and floating literals with C suffixes.
func (l *lexer) scanNumber() Token {
	line := l.line
	start := l.pos
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
	}
	for l.pos < len(l.src) {
		c := l.peek()
		if isDigit(c) || isIdentStart(c) || c == '.' {
			l.advance()
			continue
		}
		// Exponent sign, e.g. 1e-05.
		if (c == '-' || c == '+') && l.pos > start {
			prev := l.src[l.pos-1]
			hex := strings.HasPrefix(l.src[start:l.pos], "0x") || strings.HasPrefix(l.src[start:l.pos], "0X")
			if !hex && (prev == 'e' || prev == 'E') {
				l.advance()
				continue
			}
		}
		break
	}
	return Token{Type: NUMBER, Lexeme: l.src[start:l.pos], Line: line}
}

func (l *lexer) scanQuoted(quote byte, tt TokenType) (Token, error) {
	line := l.line
	start := l.pos
	l.advance()
	for l.pos < len(l.src) {
		c := l.advance()
		if c == '\\' {
			l.advance()
			continue
		}
		if c == quote {
			return Token{Type: tt, Lexeme: l.src[start:l.pos], Line: line}, nil
		}
		if c == '\n' {
			break
		}
	}
	return Token{}, fmt.Errorf("line %d: unterminated %s", line, tt)
}

// ScanIncludes returns the include directives of src in order, e.g.
// `#include "ultra64.h"`.
func ScanIncludes(src string) ([]string, error) {
	l := newLexer(src)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			break
		}
	}
	var out []string
	for _, d := range l.directives {
		if strings.HasPrefix(d, "#include") {
			out = append(out, d)
		}
	}
	return out, nil
}
