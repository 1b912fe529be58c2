// Package analyzer lowers a parsed CST (internal/ast) into the semantic
// tree (internal/semantics) the evaluator walks: it resolves identifiers
// against the active environment, folds BinaryExpressionSequence chains
// into nested message sends, rewrites cascades into repeated sends
// against a cached receiver, expands the handful of macros the bootstrap
// treats specially (if:then:[else:], while:do:[continueWith:], quote:,
// quasiquote:/unquote:/splice:), and turns plain-name assignment into an
// alloca+store pair the first time a name is assigned, matching how the
// reference bootstrap's Semantics layer treats `x := v` as sugar rather
// than its own primitive.
package analyzer

import (
	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/object"
	"github.com/sysmel/bootstrap/internal/semantics"
)

// Analyzer lowers ast.Node trees against a given environment. It carries
// no state of its own between calls beyond the environment passed in;
// callers create one Analyzer per compilation unit (or reuse one across
// a REPL session, threading the environment forward as bindings
// accumulate).
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

// Analyze lowers one top-level ast.Node (typically an ast.ValueSequence
// from parser.Parse) against env, resolving every nested expression.
func (a *Analyzer) Analyze(node ast.Node, env *environment.Environment) semantics.Node {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *ast.LiteralInteger:
		return a.analyzeLiteralInteger(n)
	case *ast.LiteralFloat:
		return semantics.NewLiteralValue(n.Position(), nil, object.NewFloat(n.Value))
	case *ast.LiteralCharacter:
		return semantics.NewLiteralValue(n.Position(), nil, object.NewCharacter(n.Value))
	case *ast.LiteralString:
		return semantics.NewLiteralValue(n.Position(), nil, object.NewString(n.Value))
	case *ast.LiteralSymbol:
		return semantics.NewLiteralValue(n.Position(), nil, object.InternString(n.Value))
	case *ast.IdentifierReference:
		return a.analyzeIdentifier(n, env)
	case *ast.ValueSequence:
		return a.analyzeSequence(n, env)
	case *ast.Tuple:
		return a.analyzeTuple(n, env)
	case *ast.Array:
		return a.analyzeArray(n, env)
	case *ast.ByteArray:
		return a.analyzeByteArray(n)
	case *ast.Assignment:
		return a.analyzeAssignment(n, env)
	case *ast.BindPattern:
		return a.analyzeBindPattern(n, env)
	case *ast.BinaryExpressionSequence:
		return a.Analyze(foldBinarySequence(n), env)
	case *ast.MessageSend:
		return a.analyzeMessageSend(n, env)
	case *ast.MessageCascade:
		return a.analyzeCascade(n, env)
	case *ast.Application:
		return a.analyzeApplication(n, env)
	case *ast.Block:
		return a.analyzeBlock(n, env)
	case *ast.LexicalBlock:
		child := environment.NewChild(env, environment.KindLexical, "")
		return a.Analyze(n.Body, child)
	case *ast.Quote:
		return semantics.NewLiteralValue(n.Position(), nil, quoteValue(n.Expression))
	case *ast.QuasiQuote, *ast.QuasiUnquote, *ast.Splice:
		// Full quasiquotation expansion needs macro-expansion-time
		// splicing support the bootstrap does not yet drive through any
		// concrete surface program; treat the inner expression as an
		// ordinary quote for now rather than silently dropping it.
		return semantics.NewLiteralValue(node.Position(), nil, quoteValue(node))
	case *ast.SyntaxError:
		return semantics.NewSemanticError(n.Position(), n.ErrorMessage)
	default:
		return semantics.NewSemanticError(node.Position(), "Unsupported syntax node in analysis")
	}
}

func (a *Analyzer) analyzeLiteralInteger(n *ast.LiteralInteger) semantics.Node {
	v, err := parseRadixInteger(n.Radix, n.Value)
	if err != nil {
		return semantics.NewSemanticError(n.Position(), err.Error())
	}
	return semantics.NewLiteralValue(n.Position(), nil, object.NewInteger(v))
}

func (a *Analyzer) analyzeIdentifier(n *ast.IdentifierReference, env *environment.Environment) semantics.Node {
	sym := object.InternString(n.Name)
	if _, ok := env.Lookup(sym); !ok {
		return semantics.NewSemanticError(n.Position(), "Undeclared identifier: "+n.Name)
	}
	return semantics.NewIdentifierReference(n.Position(), nil, sym)
}

func (a *Analyzer) analyzeSequence(n *ast.ValueSequence, env *environment.Environment) semantics.Node {
	elements := make([]semantics.Node, len(n.Elements))
	for i, e := range n.Elements {
		elements[i] = a.Analyze(e, env)
	}
	return semantics.NewValueSequence(n.Position(), nil, elements)
}

func (a *Analyzer) analyzeTuple(n *ast.Tuple, env *environment.Environment) semantics.Node {
	elements := make([]semantics.Node, len(n.Elements))
	for i, e := range n.Elements {
		elements[i] = a.Analyze(e, env)
	}
	return &semantics.SemanticTuple{Elements: elements}
}

func (a *Analyzer) analyzeArray(n *ast.Array, env *environment.Environment) semantics.Node {
	elements := make([]semantics.Node, len(n.Elements))
	for i, e := range n.Elements {
		elements[i] = a.Analyze(e, env)
	}
	return &semantics.SemanticArray{Elements: elements}
}

func (a *Analyzer) analyzeByteArray(n *ast.ByteArray) semantics.Node {
	bytes := make([]byte, 0, len(n.Elements))
	for _, e := range n.Elements {
		lit, ok := e.(*ast.LiteralInteger)
		if !ok {
			return semantics.NewSemanticError(n.Position(), "Byte array elements must be integer literals")
		}
		v, err := parseRadixInteger(lit.Radix, lit.Value)
		if err != nil || !v.IsInt64() || v.Int64() < 0 || v.Int64() > 255 {
			return semantics.NewSemanticError(lit.Position(), "Byte array element out of range 0-255")
		}
		bytes = append(bytes, byte(v.Int64()))
	}
	return &semantics.SemanticByteArray{Bytes: bytes}
}

// analyzeAssignment implements the assignment-polymorphism rewrite: a
// plain identifier target that is not yet bound in env becomes an
// alloca-and-store pair (first assignment declares a mutable local); a
// plain identifier already bound to a MutableBinding becomes a store
// against the existing cell; any other target shape (the target pattern
// cannot be assigned to) produces a SemanticError rather than aborting
// analysis, per the fix applied here over the reference implementation's
// unconditional abort on this path.
func (a *Analyzer) analyzeAssignment(n *ast.Assignment, env *environment.Environment) semantics.Node {
	ident, ok := n.Store.(*ast.IdentifierReference)
	if !ok {
		return semantics.NewSemanticError(n.Position(), "Left-hand side of assignment is not an assignable pattern")
	}
	sym := object.InternString(ident.Name)
	value := a.Analyze(n.Value, env)
	if binding, ok := env.Lookup(sym); ok {
		if _, isMutable := binding.(*environment.MutableBinding); !isMutable {
			return semantics.NewSemanticError(n.Position(), "Cannot assign to immutable binding: "+ident.Name)
		}
		return &semantics.SemanticStoreValue{Symbol: sym, Value: value}
	}
	env.Define(sym, &environment.MutableBinding{})
	return &semantics.SemanticAlloca{Symbol: sym, InitialValue: value}
}

func (a *Analyzer) analyzeBindPattern(n *ast.BindPattern, env *environment.Environment) semantics.Node {
	ident, ok := n.Pattern.(*ast.IdentifierReference)
	if !ok {
		return semantics.NewSemanticError(n.Position(), "Unsupported bind pattern")
	}
	sym := object.InternString(ident.Name)
	value := a.Analyze(n.InitialValue, env)
	env.Define(sym, &environment.ValueBinding{})
	return &semantics.SemanticAlloca{Symbol: sym, InitialValue: value}
}

// foldBinarySequence folds a flat, precedence-free operator chain into
// left-associative nested MessageSends, e.g. `a + b - c` becomes
// `(a + b) - c`.
func foldBinarySequence(n *ast.BinaryExpressionSequence) ast.Node {
	result := n.First
	for _, op := range n.Operations {
		result = &ast.MessageSend{Receiver: result, Selector: op.Operator, Arguments: []ast.Node{op.Operand}}
	}
	return result
}

func (a *Analyzer) analyzeMessageSend(n *ast.MessageSend, env *environment.Environment) semantics.Node {
	selectorName, ok := selectorText(n.Selector)
	if !ok {
		return semantics.NewSemanticError(n.Position(), "Malformed message selector")
	}
	if result := a.tryExpandMacro(selectorName, n, env); result != nil {
		return result
	}
	selector := object.InternString(selectorName)
	arguments := make([]semantics.Node, len(n.Arguments))
	for i, arg := range n.Arguments {
		arguments[i] = a.Analyze(arg, env)
	}
	var receiver semantics.Node
	if n.Receiver != nil {
		receiver = a.Analyze(n.Receiver, env)
	}
	return semantics.NewMessageSend(n.Position(), nil, receiver, selector, arguments)
}

func (a *Analyzer) analyzeCascade(n *ast.MessageCascade, env *environment.Environment) semantics.Node {
	receiver := a.Analyze(n.Receiver, env)
	elements := make([]semantics.Node, 0, len(n.Messages))
	for _, msg := range n.Messages {
		selectorName, ok := selectorText(msg.Selector)
		if !ok {
			elements = append(elements, semantics.NewSemanticError(msg.Position(), "Malformed cascade selector"))
			continue
		}
		selector := object.InternString(selectorName)
		arguments := make([]semantics.Node, len(msg.Arguments))
		for i, arg := range msg.Arguments {
			arguments[i] = a.Analyze(arg, env)
		}
		elements = append(elements, semantics.NewMessageSend(msg.Position(), nil, receiver, selector, arguments))
	}
	return semantics.NewValueSequence(n.Position(), nil, elements)
}

func (a *Analyzer) analyzeApplication(n *ast.Application, env *environment.Environment) semantics.Node {
	functional := a.Analyze(n.Functional, env)
	arguments := make([]semantics.Node, len(n.Arguments))
	for i, arg := range n.Arguments {
		arguments[i] = a.Analyze(arg, env)
	}
	return semantics.NewApplication(n.Position(), nil, functional, arguments)
}

func (a *Analyzer) analyzeBlock(n *ast.Block, env *environment.Environment) semantics.Node {
	child := environment.NewChild(env, environment.KindLexical, "")
	arguments := make([]*semantics.SemanticArgumentNode, len(n.Arguments))
	for i, bn := range n.Arguments {
		name, _ := identifierName(bn.NameExpression)
		sym := object.InternString(name)
		child.Define(sym, &environment.ArgumentBinding{})
		arguments[i] = &semantics.SemanticArgumentNode{Symbol: sym, IsVariadic: bn.IsVariadic}
	}
	body := a.Analyze(n.Body, child)
	return &semantics.SemanticFunctionalValue{Arguments: arguments, Body: body}
}

func identifierName(n ast.Node) (string, bool) {
	id, ok := n.(*ast.IdentifierReference)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func selectorText(n ast.Node) (string, bool) {
	switch s := n.(type) {
	case *ast.IdentifierReference:
		return s.Name, true
	case *ast.LiteralSymbol:
		return s.Value, true
	default:
		return "", false
	}
}

// quoteValue reifies a CST fragment as an opaque carried value: the
// evaluator's `quote` intrinsic family reads it back via
// object.MacroContext.CallSiteNode, keeping internal/ast free of any
// dependency on internal/object (see object.MacroContext's doc comment).
func quoteValue(n ast.Node) object.Value {
	return &quotedNode{node: n}
}

type quotedNode struct {
	class *object.Class
	node  ast.Node
}

func (q *quotedNode) GetType() object.Value { return nil }
func (q *quotedNode) GetClass() object.Value {
	if q.class == nil {
		return nil
	}
	return q.class
}
func (q *quotedNode) SetClass(c *object.Class) { q.class = c }
func (q *quotedNode) IsMacro() bool            { return false }
func (q *quotedNode) PrintString() string      { return "a QuotedNode" }

// Node returns the wrapped CST fragment, for intrinsics that need to
// re-analyze or re-print a quoted expression.
func (q *quotedNode) Node() ast.Node { return q.node }
