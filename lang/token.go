// Package lang implements the lexer, arena-backed AST, and parser for the
// Lua 5.1/5.2 source language consumed by the dlfmt pretty-printer.
package lang

import "fmt"

// TokenKind identifies the lexical category of a Token.
type TokenKind int

const (
	TokenEndOfInput TokenKind = iota
	TokenIdentifier
	TokenKeyword
	TokenNumber
	TokenString
	TokenSymbol
)

var tokenKindNames = map[TokenKind]string{
	TokenEndOfInput: "<eof>",
	TokenIdentifier: "identifier",
	TokenKeyword:    "keyword",
	TokenNumber:     "number",
	TokenString:     "string",
	TokenSymbol:     "symbol",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is an immutable lexical unit. For every kind except TokenString,
// Text slices the source buffer that produced it and is retained for the
// lifetime of the file. A TokenString's Text is the literal's content
// without its delimiters (a copy built from the source for quoted strings,
// the slice between the brackets for long strings), not the whole lexeme.
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Long bool // string token was written with [[...]] rather than quotes
}

func (t Token) String() string {
	if t.Kind == TokenEndOfInput {
		return "<eof>"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// keywords holds the 22 reserved Lua words. An identifier lexeme found here
// is emitted as TokenKeyword instead of TokenIdentifier.
var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// CommentKind identifies the sidecar record category.
type CommentKind int

const (
	ShortComment CommentKind = iota
	LongComment
	CommentBlankLine
)

// CommentRecord is a sidecar entry, kept out of the token stream and
// consumed by the printer through a monotonic, line-number-keyed cursor.
type CommentRecord struct {
	Kind CommentKind
	Text string // empty for CommentBlankLine
	Line int
}
