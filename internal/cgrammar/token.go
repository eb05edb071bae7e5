package cgrammar

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota

	IDENT
	NUMBER
	STRING
	CHAR

	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )
	SEMI     // ;
	COMMA    // ,
	ASSIGN   // =
	STAR     // *
	AMP      // &
	MINUS    // -
	PLUS     // +
)

var tokenNames = map[TokenType]string{
	EOF:      "end of input",
	IDENT:    "identifier",
	NUMBER:   "number",
	STRING:   "string literal",
	CHAR:     "character literal",
	LBRACE:   "'{'",
	RBRACE:   "'}'",
	LBRACKET: "'['",
	RBRACKET: "']'",
	LPAREN:   "'('",
	RPAREN:   "')'",
	SEMI:     "';'",
	COMMA:    "','",
	ASSIGN:   "'='",
	STAR:     "'*'",
	AMP:      "'&'",
	MINUS:    "'-'",
	PLUS:     "'+'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexeme with the line it started on.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}
