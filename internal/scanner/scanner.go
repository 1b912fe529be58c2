// Package scanner turns a source.Buffer into a stream of tokens. It never
// fails outright: unknown characters and unterminated comments become
// Error tokens that the parser folds into SyntaxError nodes, so the rest
// of the pipeline can keep going.
package scanner

import (
	"fmt"
	"strings"

	"github.com/sysmel/bootstrap/internal/source"
	"github.com/sysmel/bootstrap/internal/token"
)

const tabStop = 4

// operatorChars is the merged character set for Operator tokens.
const operatorChars = "+-*/\\~<>=@%|&?!^"

func isOperatorChar(c byte) bool {
	return strings.IndexByte(operatorChars, c) >= 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifierPart(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isAlnum(c byte) bool {
	return isIdentifierPart(c)
}

// state is the scanner's cursor into the buffer. It mirrors the reference
// implementation's ScannerState: a position plus line/column bookkeeping
// that treats CRLF as a single line break.
type state struct {
	buf          *source.Buffer
	position     int
	line         int
	column       int
	isPreviousCR bool
}

func newState(buf *source.Buffer) *state {
	return &state{buf: buf, position: 0, line: 1, column: 1}
}

func (s *state) atEnd() bool { return s.position >= len(s.buf.Text) }

func (s *state) peek(offset int) int {
	p := s.position + offset
	if p < len(s.buf.Text) {
		return int(s.buf.Text[p])
	}
	return -1
}

func (s *state) advanceSingle() {
	c := s.buf.Text[s.position]
	s.position++
	switch c {
	case '\r':
		s.line++
		s.column = 1
		s.isPreviousCR = true
	case '\n':
		if !s.isPreviousCR {
			s.line++
			s.column = 1
		}
		s.isPreviousCR = false
	case '\t':
		s.column = ((s.column-1)/tabStop+1)*tabStop + 1
		s.isPreviousCR = false
	default:
		s.column++
		s.isPreviousCR = false
	}
}

func (s *state) advance(count int) {
	for i := 0; i < count; i++ {
		s.advanceSingle()
	}
}

func (s *state) positionSince(start state) source.Position {
	return source.Position{
		Buffer:      s.buf,
		StartIndex:  start.position,
		StartLine:   start.line,
		StartColumn: start.column,
		EndIndex:    s.position,
		EndLine:     s.line,
		EndColumn:   s.column,
	}
}

func (s *state) token(kind token.Kind, start state) token.Token {
	return token.Token{Kind: kind, Position: s.positionSince(start)}
}

func (s *state) errorToken(message string, start state) token.Token {
	return token.Token{Kind: token.Error, Position: s.positionSince(start), ErrorMessage: message}
}

// Scan performs a single pass over buf and returns every token, terminated
// by exactly one EndOfSource token. It always terminates because every
// branch either advances position or emits EndOfSource.
func Scan(buf *source.Buffer) []token.Token {
	st := newState(buf)
	var tokens []token.Token
	for {
		tok, ok := skipWhite(st)
		if ok {
			tokens = append(tokens, tok)
			continue
		}
		tok = scanOne(st)
		tokens = append(tokens, tok)
		if tok.Kind == token.EndOfSource {
			return tokens
		}
	}
}

// skipWhite consumes whitespace and comments. It returns a token and true
// only when a malformed comment must be reported as an Error token.
func skipWhite(s *state) (token.Token, bool) {
	for {
		for !s.atEnd() && s.peek(0) <= ' ' {
			s.advance(1)
		}
		if s.peek(0) != '#' {
			return token.Token{}, false
		}
		if s.peek(1) == '#' {
			s.advance(2)
			for !s.atEnd() && s.peek(0) != '\r' && s.peek(0) != '\n' {
				s.advance(1)
			}
			continue
		}
		if s.peek(1) == '*' {
			start := *s
			s.advance(2)
			closed := false
			for !s.atEnd() {
				if s.peek(0) == '*' && s.peek(1) == '#' {
					s.advance(2)
					closed = true
					break
				}
				s.advance(1)
			}
			if !closed {
				return s.errorToken("Incomplete multiline comment.", start), true
			}
			continue
		}
		return token.Token{}, false
	}
}

func scanOne(s *state) token.Token {
	if s.atEnd() {
		return s.token(token.EndOfSource, *s)
	}
	c := byte(s.peek(0))
	switch {
	case isDigit(c):
		return scanNumber(s)
	case c == '"':
		return scanString(s)
	case c == '\'':
		return scanCharacter(s)
	case c == '#':
		return scanHashPrefixed(s)
	case isIdentifierStart(c):
		return scanIdentifierOrKeyword(s)
	case c == '.':
		start := *s
		s.advance(1)
		return s.token(token.Dot, start)
	case c == '(':
		start := *s
		s.advance(1)
		return s.token(token.LeftParen, start)
	case c == ')':
		start := *s
		s.advance(1)
		return s.token(token.RightParen, start)
	case c == '[':
		start := *s
		s.advance(1)
		return s.token(token.LeftBracket, start)
	case c == ']':
		start := *s
		s.advance(1)
		return s.token(token.RightBracket, start)
	case c == '{':
		start := *s
		s.advance(1)
		return s.token(token.LeftCurly, start)
	case c == '}':
		start := *s
		s.advance(1)
		return s.token(token.RightCurly, start)
	case c == ';':
		start := *s
		s.advance(1)
		return s.token(token.Semicolon, start)
	case c == ':':
		return scanColonOrAssign(s)
	case isOperatorChar(c):
		return scanOperator(s)
	default:
		start := *s
		unknown := string(c)
		s.advance(1)
		return s.errorToken(fmt.Sprintf("Unknown character: %s", unknown), start)
	}
}

func scanColonOrAssign(s *state) token.Token {
	start := *s
	s.advance(1)
	if s.peek(0) == '=' {
		s.advance(1)
		return s.token(token.Assign, start)
	}
	return s.token(token.Colon, start)
}

func scanOperator(s *state) token.Token {
	start := *s
	for !s.atEnd() && isOperatorChar(byte(s.peek(0))) {
		s.advance(1)
	}
	tok := s.token(token.Operator, start)
	if tok.Text() == "|" {
		tok.Kind = token.Bar
	}
	return tok
}

func scanIdentifierOrKeyword(s *state) token.Token {
	start := *s
	for !s.atEnd() && isIdentifierPart(byte(s.peek(0))) {
		s.advance(1)
	}
	if s.peek(0) == ':' && s.peek(1) != '=' {
		s.advance(1)
		return s.token(token.Keyword, start)
	}
	return s.token(token.Identifier, start)
}

func scanNumber(s *state) token.Token {
	start := *s
	for !s.atEnd() && isDigit(byte(s.peek(0))) {
		s.advance(1)
	}
	if (s.peek(0) == 'r' || s.peek(0) == 'R') && isAlnum(byte(s.peek(1))) {
		s.advance(1)
		for !s.atEnd() && isAlnum(byte(s.peek(0))) {
			s.advance(1)
		}
		return s.token(token.Nat, start)
	}

	isFloat := false
	if s.peek(0) == '.' && isDigit(byte(s.peek(1))) {
		isFloat = true
		s.advance(1)
		for !s.atEnd() && isDigit(byte(s.peek(0))) {
			s.advance(1)
		}
	}
	if s.peek(0) == 'e' || s.peek(0) == 'E' {
		offset := 1
		if s.peek(1) == '+' || s.peek(1) == '-' {
			offset = 2
		}
		if isDigit(byte(s.peek(offset))) {
			isFloat = true
			s.advance(offset)
			for !s.atEnd() && isDigit(byte(s.peek(0))) {
				s.advance(1)
			}
		}
	}
	if isFloat {
		return s.token(token.Float, start)
	}
	return s.token(token.Nat, start)
}

func scanDelimited(s *state, quote byte) (ok bool) {
	for !s.atEnd() {
		c := byte(s.peek(0))
		if c == '\\' && !s.atEnd() {
			s.advance(1)
			if !s.atEnd() {
				s.advance(1)
			}
			continue
		}
		if c == quote {
			s.advance(1)
			return true
		}
		s.advance(1)
	}
	return false
}

func scanString(s *state) token.Token {
	start := *s
	s.advance(1)
	if !scanDelimited(s, '"') {
		return s.errorToken("Unterminated string literal.", start)
	}
	return s.token(token.String, start)
}

func scanCharacter(s *state) token.Token {
	start := *s
	s.advance(1)
	if !scanDelimited(s, '\'') {
		return s.errorToken("Unterminated character literal.", start)
	}
	return s.token(token.Character, start)
}

func scanHashPrefixed(s *state) token.Token {
	start := *s
	s.advance(1)
	switch s.peek(0) {
	case '(':
		s.advance(1)
		return s.token(token.LeftArray, start)
	case '[':
		s.advance(1)
		return s.token(token.LeftByteArray, start)
	case '"':
		s.advance(1)
		if !scanDelimited(s, '"') {
			return s.errorToken("Unterminated symbol literal.", start)
		}
		return s.token(token.Symbol, start)
	}
	if isOperatorChar(byte(s.peek(0))) {
		for !s.atEnd() && isOperatorChar(byte(s.peek(0))) {
			s.advance(1)
		}
		return s.token(token.Symbol, start)
	}
	if isIdentifierStart(byte(s.peek(0))) {
		for {
			for !s.atEnd() && isIdentifierPart(byte(s.peek(0))) {
				s.advance(1)
			}
			if s.peek(0) == ':' && isIdentifierStart(byte(s.peek(1))) {
				s.advance(1)
				continue
			}
			break
		}
		return s.token(token.Symbol, start)
	}
	return s.errorToken("Expected a symbol name after #.", start)
}
