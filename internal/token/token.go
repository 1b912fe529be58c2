// Package token defines the closed set of lexical token kinds the scanner
// produces and the Token value itself.
package token

import "github.com/sysmel/bootstrap/internal/source"

// Kind is a closed enumeration of lexical token categories.
type Kind int

const (
	Nat Kind = iota
	Float
	Character
	String
	Symbol
	Identifier
	Keyword
	Operator
	Dot
	LeftParen
	RightParen
	LeftBracket
	RightBracket
	LeftCurly
	RightCurly
	LeftArray    // #(
	LeftByteArray // #[
	Semicolon
	Assign
	Arrow
	Bar
	Colon
	Error
	EndOfSource
)

var names = map[Kind]string{
	Nat:           "Nat",
	Float:         "Float",
	Character:     "Character",
	String:        "String",
	Symbol:        "Symbol",
	Identifier:    "Identifier",
	Keyword:       "Keyword",
	Operator:      "Operator",
	Dot:           "Dot",
	LeftParen:     "LeftParen",
	RightParen:    "RightParen",
	LeftBracket:   "LeftBracket",
	RightBracket:  "RightBracket",
	LeftCurly:     "LeftCurly",
	RightCurly:    "RightCurly",
	LeftArray:     "LeftArray",
	LeftByteArray: "LeftByteArray",
	Semicolon:     "Semicolon",
	Assign:        "Assign",
	Arrow:         "Arrow",
	Bar:           "Bar",
	Colon:         "Colon",
	Error:         "Error",
	EndOfSource:   "EndOfSource",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "Unknown"
}

// Token is a single lexical unit: a kind, the source span it covers, and,
// for Error tokens, the message describing why scanning failed there.
type Token struct {
	Kind         Kind
	Position     source.Position
	ErrorMessage string
}

// Text returns the raw source text this token spans.
func (t Token) Text() string {
	return t.Position.Text()
}
