// Package parser is a recursive-descent parser from a token.Token stream
// to an ast.Node concrete syntax tree. It never panics on malformed input:
// every failure to match a production is reified as an *ast.SyntaxError
// node and parsing continues, per the error policy in the language spec.
package parser

import (
	"strconv"
	"strings"

	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/source"
	"github.com/sysmel/bootstrap/internal/token"
)

type parser struct {
	buf    *source.Buffer
	tokens []token.Token
	pos    int
}

// Parse consumes the full token stream for buf and returns one CST node
// covering the whole input (a ValueSequence when there is more than one
// top-level expression, the bare expression otherwise, ast.Node(nil) for
// an empty or whitespace-only buffer... in practice an empty sequence).
func Parse(buf *source.Buffer, tokens []token.Token) ast.Node {
	p := &parser{buf: buf, tokens: tokens}
	return p.parseTopLevel(token.EndOfSource)
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peekKind(offset int) token.Kind {
	i := p.pos + offset
	if i < len(p.tokens) {
		return p.tokens[i].Kind
	}
	return token.EndOfSource
}

func (p *parser) peek(offset int) token.Token {
	i := p.pos + offset
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1]
	}
	return token.Token{Kind: token.EndOfSource}
}

func (p *parser) advance() { p.pos++ }

func (p *parser) next() token.Token {
	t := p.peek(0)
	p.pos++
	return t
}

func (p *parser) currentPosition() source.Position {
	return p.peek(0).Position
}

func (p *parser) previousPosition() source.Position {
	if p.pos == 0 {
		return p.currentPosition()
	}
	return p.tokens[p.pos-1].Position
}

func (p *parser) spanFrom(start int) source.Position {
	startPos := p.tokens[start].Position
	if p.pos > start {
		return startPos.To(p.previousPosition())
	}
	return startPos.Until(p.currentPosition())
}

func (p *parser) errorHere(message string) *ast.SyntaxError {
	return ast.NewSyntaxError(p.currentPosition(), message)
}

// advanceWithExpectedError mirrors the reference implementation's recovery
// step: it consumes the offending token (an Error token's message is
// embedded verbatim; otherwise one token is eaten so the parser always
// makes progress) and returns a SyntaxError node.
func (p *parser) advanceWithExpectedError(message string) ast.Node {
	if p.peekKind(0) == token.Error {
		tok := p.next()
		return ast.NewSyntaxError(tok.Position, tok.ErrorMessage)
	}
	if p.atEnd() {
		return p.errorHere(message)
	}
	pos := p.currentPosition()
	p.advance()
	return ast.NewSyntaxError(pos, message)
}

// --- top level / sequencing ---

func (p *parser) parseTopLevel(delimiter token.Kind) ast.Node {
	elements := p.parseExpressionListUntil(delimiter)
	if len(elements) == 0 {
		return &ast.ValueSequence{}
	}
	if len(elements) == 1 {
		return elements[0]
	}
	return &ast.ValueSequence{Elements: elements}
}

func (p *parser) parseExpressionListUntil(delimiter token.Kind) []ast.Node {
	var elements []ast.Node

	for p.peekKind(0) == token.Dot {
		p.advance()
	}

	expectsExpression := true
	for !p.atEnd() && p.peekKind(0) != delimiter {
		if !expectsExpression {
			elements = append(elements, p.errorHere("Expected dot before expression."))
		}
		elements = append(elements, p.parseExpression())

		expectsExpression = false
		for p.peekKind(0) == token.Dot {
			expectsExpression = true
			p.advance()
		}
	}
	return elements
}

// --- expression grammar ---

func (p *parser) parseExpression() ast.Node {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() ast.Node {
	start := p.pos
	left := p.parseKeywordMessage()
	if p.peekKind(0) == token.Assign {
		p.advance()
		right := p.parseAssignment()
		asg := &ast.Assignment{Store: left, Value: right}
		asg.Pos = p.spanFrom(start)
		return asg
	}
	return left
}

// parseKeywordMessage implements standard Smalltalk-style keyword-message
// precedence: a keyword chain binds looser than a binary sequence and its
// arguments are themselves binary sequences (never raw keyword chains),
// which is what makes `if: 1 = 1 then: 10 else: 20` parse as one message
// with three arguments instead of an ambiguous nesting. The distilled
// grammar table nests KeywordSend a level lower (inside Unary); that
// reading admits the same ambiguity real Smalltalk resolves this way, so
// this is the interpretation implemented here.
func (p *parser) parseKeywordMessage() ast.Node {
	start := p.pos
	var receiver ast.Node
	if p.peekKind(0) != token.Keyword {
		receiver = p.parseBinarySeq()
		if p.peekKind(0) != token.Keyword {
			return receiver
		}
	}

	var parts []string
	var args []ast.Node
	for p.peekKind(0) == token.Keyword {
		kw := p.next()
		parts = append(parts, kw.Text())
		args = append(args, p.parseBinarySeq())
	}
	selector := &ast.IdentifierReference{Name: strings.Join(parts, "")}
	msg := &ast.MessageSend{Receiver: receiver, Selector: selector, Arguments: args}
	setPos(msg, p.spanFrom(start))
	setPos(selector, p.spanFrom(start))

	if p.peekKind(0) == token.Semicolon {
		return p.parseCascadeTail(msg, start)
	}
	return msg
}

func (p *parser) parseCascadeTail(first *ast.MessageSend, start int) ast.Node {
	cascade := first.AsCascade()
	for p.peekKind(0) == token.Semicolon {
		p.advance()
		cascade.Messages = append(cascade.Messages, p.parseCascadeMessage())
	}
	setPos(cascade, p.spanFrom(start))
	return cascade
}

func (p *parser) parseCascadeMessage() *ast.CascadeMessage {
	start := p.pos
	if p.peekKind(0) == token.Keyword {
		var parts []string
		var args []ast.Node
		for p.peekKind(0) == token.Keyword {
			kw := p.next()
			parts = append(parts, kw.Text())
			args = append(args, p.parseBinarySeq())
		}
		sel := &ast.IdentifierReference{Name: strings.Join(parts, "")}
		msg := &ast.CascadeMessage{Selector: sel, Arguments: args}
		setPos(msg, p.spanFrom(start))
		return msg
	}
	if p.peekKind(0) == token.Identifier {
		tok := p.next()
		sel := &ast.IdentifierReference{Name: tok.Text()}
		setPos(sel, tok.Position)
		msg := &ast.CascadeMessage{Selector: sel}
		setPos(msg, tok.Position)
		return msg
	}
	if p.peekKind(0) == token.Operator || p.peekKind(0) == token.Bar {
		tok := p.next()
		sel := &ast.IdentifierReference{Name: tok.Text()}
		setPos(sel, tok.Position)
		operand := p.parseCascadeOrPrimary()
		msg := &ast.CascadeMessage{Selector: sel, Arguments: []ast.Node{operand}}
		setPos(msg, p.spanFrom(start))
		return msg
	}
	errNode := p.advanceWithExpectedError("Expected a cascaded message.")
	return &ast.CascadeMessage{Selector: errNode}
}

func (p *parser) parseBinarySeq() ast.Node {
	start := p.pos
	first := p.parseCascadeOrPrimary()
	var ops []ast.BinaryOperation
	for p.peekKind(0) == token.Operator || p.peekKind(0) == token.Bar {
		opTok := p.next()
		opNode := &ast.IdentifierReference{Name: opTok.Text()}
		setPos(opNode, opTok.Position)
		operand := p.parseCascadeOrPrimary()
		ops = append(ops, ast.BinaryOperation{Operator: opNode, Operand: operand})
	}
	if len(ops) == 0 {
		return first
	}
	seq := &ast.BinaryExpressionSequence{First: first, Operations: ops}
	setPos(seq, p.spanFrom(start))
	return seq
}

// parseCascadeOrPrimary parses a primary and folds in a cascade directly
// attached to it (`primary msg1; msg2`) is handled one level up once a
// keyword or binary message has actually been formed; here we only need
// to hand back the primary itself.
func (p *parser) parseCascadeOrPrimary() ast.Node {
	return p.parsePrimary()
}

// --- primary ---

func (p *parser) parsePrimary() ast.Node {
	start := p.pos
	switch p.peekKind(0) {
	case token.Nat:
		return p.parseLiteralInteger()
	case token.Float:
		return p.parseLiteralFloat()
	case token.Character:
		return p.parseLiteralCharacter()
	case token.String:
		return p.parseLiteralString()
	case token.Symbol:
		return p.parseLiteralSymbol()
	case token.Identifier:
		return p.parseIdentifierPrimary()
	case token.LeftParen:
		p.advance()
		inner := p.parseTopLevel(token.RightParen)
		if p.peekKind(0) == token.RightParen {
			p.advance()
		} else {
			return p.advanceWithExpectedError("Expected ')'.")
		}
		setPos(inner, p.spanFrom(start))
		return inner
	case token.LeftBracket:
		return p.parseBlock()
	case token.LeftCurly:
		return p.parseLexicalBlock()
	case token.LeftArray:
		return p.parseArray()
	case token.LeftByteArray:
		return p.parseByteArray()
	case token.Error:
		tok := p.next()
		return ast.NewSyntaxError(tok.Position, tok.ErrorMessage)
	default:
		return p.advanceWithExpectedError("Expected an expression.")
	}
}

func (p *parser) parseIdentifierPrimary() ast.Node {
	tok := p.next()
	name := tok.Text()
	switch name {
	case "quote", "quasiquote", "unquote", "splice":
		if p.peekKind(0) == token.LeftParen {
			return p.parseQuotingForm(name, tok)
		}
	}
	ref := &ast.IdentifierReference{Name: name}
	setPos(ref, tok.Position)
	return ref
}

func (p *parser) parseQuotingForm(kind string, start token.Token) ast.Node {
	p.advance() // '('
	inner := p.parseTopLevel(token.RightParen)
	if p.peekKind(0) == token.RightParen {
		p.advance()
	}
	pos := start.Position.To(p.previousPosition())
	switch kind {
	case "quote":
		n := &ast.Quote{Expression: inner}
		setPos(n, pos)
		return n
	case "quasiquote":
		n := &ast.QuasiQuote{Expression: inner}
		setPos(n, pos)
		return n
	case "unquote":
		n := &ast.QuasiUnquote{Expression: inner}
		setPos(n, pos)
		return n
	default:
		n := &ast.Splice{Expression: inner}
		setPos(n, pos)
		return n
	}
}

func (p *parser) parseLiteralInteger() ast.Node {
	tok := p.next()
	text := tok.Text()
	radix := 10
	digits := text
	for i := 0; i < len(text); i++ {
		if text[i] == 'r' || text[i] == 'R' {
			if n, err := strconv.Atoi(text[:i]); err == nil {
				radix = n
			}
			digits = text[i+1:]
			break
		}
	}
	lit := ast.NewLiteralInteger(tok.Position, radix, digits)
	return lit
}

func (p *parser) parseLiteralFloat() ast.Node {
	tok := p.next()
	value, _ := strconv.ParseFloat(tok.Text(), 64)
	lit := &ast.LiteralFloat{Value: value}
	setPos(lit, tok.Position)
	return lit
}

func unescapeCLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (p *parser) parseLiteralCharacter() ast.Node {
	tok := p.next()
	text := tok.Text()
	inner := text[1 : len(text)-1]
	unescaped := unescapeCLike(inner)
	var r rune
	if len(unescaped) > 0 {
		r = rune(unescaped[0])
	}
	lit := &ast.LiteralCharacter{Value: r}
	setPos(lit, tok.Position)
	return lit
}

func (p *parser) parseLiteralString() ast.Node {
	tok := p.next()
	text := tok.Text()
	inner := text[1 : len(text)-1]
	lit := &ast.LiteralString{Value: unescapeCLike(inner)}
	setPos(lit, tok.Position)
	return lit
}

func (p *parser) parseLiteralSymbol() ast.Node {
	tok := p.next()
	text := tok.Text()[1:] // drop leading '#'
	var value string
	if len(text) > 0 && text[0] == '"' {
		value = unescapeCLike(text[1 : len(text)-1])
	} else {
		value = text
	}
	lit := &ast.LiteralSymbol{Value: value}
	setPos(lit, tok.Position)
	return lit
}

// --- blocks ---

func (p *parser) parseBlock() ast.Node {
	start := p.pos
	p.advance() // '['
	var args []*ast.BindableName
	for p.peekKind(0) == token.Colon {
		p.advance()
		if p.peekKind(0) != token.Identifier {
			break
		}
		nameTok := p.next()
		ref := &ast.IdentifierReference{Name: nameTok.Text()}
		setPos(ref, nameTok.Position)
		bn := &ast.BindableName{NameExpression: ref}
		setPos(bn, nameTok.Position)
		args = append(args, bn)
	}
	if len(args) > 0 && p.peekKind(0) == token.Bar {
		p.advance()
	}
	body := p.parseTopLevel(token.RightBracket)
	if p.peekKind(0) == token.RightBracket {
		p.advance()
	} else {
		body = p.advanceWithExpectedError("Expected ']'.")
	}
	blk := &ast.Block{Arguments: args, Body: body}
	setPos(blk, p.spanFrom(start))
	return blk
}

func (p *parser) parseLexicalBlock() ast.Node {
	start := p.pos
	p.advance() // '{'
	body := p.parseTopLevel(token.RightCurly)
	if p.peekKind(0) == token.RightCurly {
		p.advance()
	} else {
		body = p.advanceWithExpectedError("Expected '}'.")
	}
	lb := &ast.LexicalBlock{Body: body}
	setPos(lb, p.spanFrom(start))
	return lb
}

func (p *parser) parseArray() ast.Node {
	start := p.pos
	p.advance() // '#('
	var elements []ast.Node
	for !p.atEnd() && p.peekKind(0) != token.RightParen {
		elements = append(elements, p.parsePrimary())
	}
	if p.peekKind(0) == token.RightParen {
		p.advance()
	}
	arr := &ast.Array{Elements: elements}
	setPos(arr, p.spanFrom(start))
	return arr
}

func (p *parser) parseByteArray() ast.Node {
	start := p.pos
	p.advance() // '#['
	var elements []ast.Node
	for !p.atEnd() && p.peekKind(0) != token.RightBracket {
		elements = append(elements, p.parsePrimary())
	}
	if p.peekKind(0) == token.RightBracket {
		p.advance()
	}
	ba := &ast.ByteArray{Elements: elements}
	setPos(ba, p.spanFrom(start))
	return ba
}

// setPos back-patches a node's position after construction. Every CST
// struct embeds ast.base's exported Pos field at offset 0, so a tiny
// reflection-free trick isn't available across types; instead each
// constructor call site sets Pos directly where practical, and this helper
// covers the remaining handful of node kinds built with struct literals
// that skip straight to field assignment.
func setPos(n ast.Node, pos source.Position) {
	switch v := n.(type) {
	case *ast.IdentifierReference:
		v.Pos = pos
	case *ast.MessageSend:
		v.Pos = pos
	case *ast.MessageCascade:
		v.Pos = pos
	case *ast.BinaryExpressionSequence:
		v.Pos = pos
	case *ast.Block:
		v.Pos = pos
	case *ast.BindableName:
		v.Pos = pos
	case *ast.LexicalBlock:
		v.Pos = pos
	case *ast.Array:
		v.Pos = pos
	case *ast.ByteArray:
		v.Pos = pos
	case *ast.LiteralFloat:
		v.Pos = pos
	case *ast.LiteralCharacter:
		v.Pos = pos
	case *ast.LiteralString:
		v.Pos = pos
	case *ast.LiteralSymbol:
		v.Pos = pos
	case *ast.Quote:
		v.Pos = pos
	case *ast.QuasiQuote:
		v.Pos = pos
	case *ast.QuasiUnquote:
		v.Pos = pos
	case *ast.Splice:
		v.Pos = pos
	}
}
