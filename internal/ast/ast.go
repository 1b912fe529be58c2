// Package ast defines the concrete syntax tree the parser produces: one
// struct per syntactic shape, each carrying its source position. Walk
// provides the single children-traversal every node needs for collecting
// syntax errors (mirroring go/ast's Inspect rather than a per-type visitor
// interface, since every traversal this package needs is "do X at every
// node", not "dispatch by static node identity").
package ast

import "github.com/sysmel/bootstrap/internal/source"

// Node is satisfied by every CST shape.
type Node interface {
	Position() source.Position
	children() []Node
}

type base struct {
	Pos source.Position
}

func (b base) Position() source.Position { return b.Pos }

// --- literals ---

type LiteralInteger struct {
	base
	Text  string // raw digits, radix prefix included; parsed by the analyzer/runtime boundary
	Radix int
	Value string // normalized digits in Radix, without the "NNNr" prefix
}

func (n *LiteralInteger) children() []Node { return nil }

type LiteralFloat struct {
	base
	Value float64
}

func (n *LiteralFloat) children() []Node { return nil }

type LiteralCharacter struct {
	base
	Value rune
}

func (n *LiteralCharacter) children() []Node { return nil }

type LiteralString struct {
	base
	Value string
}

func (n *LiteralString) children() []Node { return nil }

type LiteralSymbol struct {
	base
	Value string
}

func (n *LiteralSymbol) children() []Node { return nil }

// --- identifiers and sequences ---

type IdentifierReference struct {
	base
	Name string
}

func (n *IdentifierReference) children() []Node { return nil }

type ValueSequence struct {
	base
	Elements []Node
}

func (n *ValueSequence) children() []Node { return n.Elements }

type Tuple struct {
	base
	Elements []Node
}

func (n *Tuple) children() []Node { return n.Elements }

type Array struct {
	base
	Elements []Node
}

func (n *Array) children() []Node { return n.Elements }

type ByteArray struct {
	base
	Elements []Node
}

func (n *ByteArray) children() []Node { return n.Elements }

type Association struct {
	base
	Key   Node
	Value Node
}

func (n *Association) children() []Node { return []Node{n.Key, n.Value} }

type Dictionary struct {
	base
	Elements []*Association
}

func (n *Dictionary) children() []Node {
	out := make([]Node, len(n.Elements))
	for i, e := range n.Elements {
		out[i] = e
	}
	return out
}

// --- binding shapes ---

// BindableName is a (possibly typed, possibly implicit/variadic) name
// pattern: the left-hand side of an argument binding, or the target of a
// pattern assignment. TypeExpression is nil when no type annotation was
// written.
type BindableName struct {
	base
	NameExpression        Node
	TypeExpression        Node
	IsImplicit            bool
	IsExistential         bool
	IsVariadic            bool
	IsMutable             bool
	HasPostTypeExpression bool
	PostTypeExpression    Node
}

func (n *BindableName) children() []Node {
	out := []Node{n.NameExpression}
	if n.TypeExpression != nil {
		out = append(out, n.TypeExpression)
	}
	if n.PostTypeExpression != nil {
		out = append(out, n.PostTypeExpression)
	}
	return out
}

// FunctionalDependentType is the Π-type syntax `argumentPattern :: resultType`.
type FunctionalDependentType struct {
	base
	ArgumentPattern Node
	ResultType      Node
}

func (n *FunctionalDependentType) children() []Node {
	return []Node{n.ArgumentPattern, n.ResultType}
}

// Block is `[ :arg1 :arg2 | body ]`; FunctionType is non-nil when the block
// carries an explicit Π-type signature instead of a bare argument list.
type Block struct {
	base
	FunctionType Node
	Arguments    []*BindableName
	Body         Node
}

func (n *Block) children() []Node {
	out := []Node{}
	if n.FunctionType != nil {
		out = append(out, n.FunctionType)
	}
	for _, a := range n.Arguments {
		out = append(out, a)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

// LexicalBlock is `{ body }`, a nested scope with no arguments.
type LexicalBlock struct {
	base
	Body Node
}

func (n *LexicalBlock) children() []Node { return []Node{n.Body} }

type Assignment struct {
	base
	Store Node
	Value Node
}

func (n *Assignment) children() []Node { return []Node{n.Store, n.Value} }

// BindPattern is the analyzer-synthesized rewrite of a plain-name
// assignment (see Assignment analysis, §4.3); it also appears directly as
// a CST shape for destructuring patterns.
type BindPattern struct {
	base
	Pattern      Node
	InitialValue Node
}

func (n *BindPattern) children() []Node { return []Node{n.Pattern, n.InitialValue} }

// --- applications and messages ---

type ApplicationKind int

const (
	ApplicationParens ApplicationKind = iota
	ApplicationBrackets
)

type Application struct {
	base
	Functional Node
	Arguments  []Node
	Kind       ApplicationKind
}

func (n *Application) children() []Node {
	out := []Node{n.Functional}
	return append(out, n.Arguments...)
}

// MessageSend is `receiver selector arg1 arg2...`; Receiver is nil for a
// top-level call (selector used as a free identifier).
type MessageSend struct {
	base
	Receiver  Node
	Selector  Node
	Arguments []Node
}

func (n *MessageSend) children() []Node {
	out := []Node{}
	if n.Receiver != nil {
		out = append(out, n.Receiver)
	}
	out = append(out, n.Selector)
	return append(out, n.Arguments...)
}

// AsCascade rewrites a single message send into a one-message cascade
// sharing its receiver, so a cascade and a lone send share one node shape
// at the semantic layer (§4.2).
func (n *MessageSend) AsCascade() *MessageCascade {
	return &MessageCascade{
		base:     base{Pos: n.Pos},
		Receiver: n.Receiver,
		Messages: []*CascadeMessage{{
			base:      base{Pos: n.Pos},
			Selector:  n.Selector,
			Arguments: n.Arguments,
		}},
	}
}

type CascadeMessage struct {
	base
	Selector  Node
	Arguments []Node
}

func (n *CascadeMessage) children() []Node {
	out := []Node{n.Selector}
	return append(out, n.Arguments...)
}

// MessageCascade shares one receiver across every message in Messages.
type MessageCascade struct {
	base
	Receiver Node
	Messages []*CascadeMessage
}

func (n *MessageCascade) children() []Node {
	out := []Node{}
	if n.Receiver != nil {
		out = append(out, n.Receiver)
	}
	for _, m := range n.Messages {
		out = append(out, m)
	}
	return out
}

type BinaryOperation struct {
	Operator Node
	Operand  Node
}

// BinaryExpressionSequence is a flat left-to-right chain with no
// precedence; the analyzer folds it into nested MessageSends (§4.3).
type BinaryExpressionSequence struct {
	base
	First      Node
	Operations []BinaryOperation
}

func (n *BinaryExpressionSequence) children() []Node {
	out := []Node{n.First}
	for _, op := range n.Operations {
		out = append(out, op.Operator, op.Operand)
	}
	return out
}

// --- quoting forms (§3.1) ---

type Quote struct {
	base
	Expression Node
}

func (n *Quote) children() []Node { return []Node{n.Expression} }

type QuasiQuote struct {
	base
	Expression Node
}

func (n *QuasiQuote) children() []Node { return []Node{n.Expression} }

type QuasiUnquote struct {
	base
	Expression Node
}

func (n *QuasiUnquote) children() []Node { return []Node{n.Expression} }

type Splice struct {
	base
	Expression Node
}

func (n *Splice) children() []Node { return []Node{n.Expression} }

// --- errors ---

// SyntaxError is reified, never thrown: the parser emits one of these in
// place of whatever it could not parse and keeps going.
type SyntaxError struct {
	base
	ErrorMessage string
	InnerNode    Node
}

func (n *SyntaxError) children() []Node {
	if n.InnerNode != nil {
		return []Node{n.InnerNode}
	}
	return nil
}

// New constructs positioned nodes; helpers keep parser call sites short.
func newBase(pos source.Position) base { return base{Pos: pos} }

func NewLiteralInteger(pos source.Position, radix int, value string) *LiteralInteger {
	return &LiteralInteger{base: newBase(pos), Radix: radix, Value: value}
}

func NewSyntaxError(pos source.Position, message string) *SyntaxError {
	return &SyntaxError{base: newBase(pos), ErrorMessage: message}
}

// Walk calls fn at every node reachable from root (root included),
// depth-first, pre-order. fn returning false still lets Walk continue to
// root's siblings at the caller level but stops descent into that node's
// own children.
func Walk(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.children() {
		Walk(child, fn)
	}
}

// CollectSyntaxErrors walks root and returns every SyntaxError node found,
// in traversal order.
func CollectSyntaxErrors(root Node) []*SyntaxError {
	var errs []*SyntaxError
	Walk(root, func(n Node) bool {
		if se, ok := n.(*SyntaxError); ok {
			errs = append(errs, se)
		}
		return true
	})
	return errs
}
