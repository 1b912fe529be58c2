// Package semantics defines the tree the analyzer lowers a parsed CST
// into: every node here is already name-resolved and (where the
// language's gradual typing applies) type-elaborated, so the evaluator
// never has to re-discover identifier bindings or re-run macro
// expansion. The shape closely tracks internal/ast's CST, node for node,
// but trades ast.Node's raw identifiers/keyword-send shapes for resolved
// bindings, folded binary chains, and explicit control-flow nodes
// (SemanticIf/SemanticWhile) in place of the macro calls that produced
// them.
package semantics

import (
	"github.com/sysmel/bootstrap/internal/object"
	"github.com/sysmel/bootstrap/internal/source"
)

// Node is satisfied by every semantic-tree shape.
type Node interface {
	Position() source.Position
	// Type is the static type this node was elaborated against, or nil
	// if type elaboration does not apply (e.g. a bare identifier
	// reference defers to its binding's type).
	Type() object.Value
}

type base struct {
	Pos source.Position
	Typ object.Value
}

func (b base) Position() source.Position { return b.Pos }
func (b base) Type() object.Value        { return b.Typ }

// SemanticLiteralValue wraps an already-constructed runtime value
// produced directly from a CST literal (integers, floats, characters,
// strings, symbols); evaluating it is just returning Value.
type SemanticLiteralValue struct {
	base
	Value object.Value
}

// SemanticValue is the general case of SemanticLiteralValue: any node
// the analyzer has fully reduced to a constant at analysis time
// (e.g. a type expression that referred only to globals).
type SemanticValue struct {
	base
	Value object.Value
}

// SemanticValueSequence evaluates each element for effect, answering the
// last one (or Unit, if empty).
type SemanticValueSequence struct {
	base
	Elements []Node
}

// SemanticIdentifierReference resolves a name against the environment
// active at evaluation time; BindingName is kept only for diagnostics,
// since the actual lookup key is Symbol.
type SemanticIdentifierReference struct {
	base
	Symbol *object.Symbol
}

// SemanticArgumentNode names one parameter of a lambda/Π-type, together
// with its elaborated type.
type SemanticArgumentNode struct {
	base
	Symbol     *object.Symbol
	IsVariadic bool
}

// SemanticSimpleFunctionType is the elaborated, non-dependent function
// signature `(T1, T2) -> R`.
type SemanticSimpleFunctionType struct {
	base
	Arguments  []*SemanticArgumentNode
	ResultType Node
}

// SemanticPi is the elaborated dependent function type
// `argument :: resultType`.
type SemanticPi struct {
	base
	Argument   *SemanticArgumentNode
	ResultType Node
}

// SemanticSigma is the elaborated dependent pair/product type former,
// the type-level counterpart of SemanticTuple.
type SemanticSigma struct {
	base
	Elements []Node
}

// SemanticFunctionalValue is a lambda literal: its FunctionType may be a
// SemanticSimpleFunctionType or SemanticPi (nil if untyped/gradual).
type SemanticFunctionalValue struct {
	base
	Name         string
	FunctionType Node
	Arguments    []*SemanticArgumentNode
	Body         Node
}

// SemanticLambda is an alias shape kept distinct from
// SemanticFunctionalValue for λ-literals introduced via quoting/macro
// expansion rather than surface Block syntax; the evaluator treats both
// identically.
type SemanticLambda struct {
	base
	Name         string
	FunctionType Node
	Arguments    []*SemanticArgumentNode
	Body         Node
}

// SemanticApplication is `functional(args...)` once functional has been
// resolved to something Applyable (as opposed to SemanticMessageSend,
// which still requires dispatch).
type SemanticApplication struct {
	base
	Functional Node
	Arguments  []Node
}

// SemanticMessageSend is `receiver selector arguments...`; Receiver is
// nil for a receiverless call resolved directly against an environment
// binding (handled by the analyzer rewriting it to SemanticApplication
// when the binding is already known, so a surviving nil-receiver
// SemanticMessageSend means dispatch must still happen at eval time,
// e.g. inside a generic function body where the receiver's class is not
// statically known).
type SemanticMessageSend struct {
	base
	Receiver  Node
	Selector  *object.Symbol
	Arguments []Node
}

// SemanticArray / SemanticTuple / SemanticByteArray mirror their CST
// counterparts once every element has been analyzed.
type SemanticArray struct {
	base
	Elements []Node
}

type SemanticTuple struct {
	base
	Elements []Node
}

type SemanticByteArray struct {
	base
	Bytes []byte
}

// MutableValueBox is the semantic-tree marker for a name introduced as
// mutable (`BindableName.IsMutable`); SemanticAlloca allocates the cell,
// SemanticLoadValue/SemanticStoreValue read and write it.
type MutableValueBox struct {
	base
	Symbol *object.Symbol
}

type SemanticAlloca struct {
	base
	Symbol       *object.Symbol
	InitialValue Node
}

type SemanticLoadValue struct {
	base
	Symbol *object.Symbol
}

type SemanticStoreValue struct {
	base
	Symbol *object.Symbol
	Value  Node
}

// SemanticIf is the analyzed form of the if:then:[else:] macro; Else is
// nil for a then-only conditional, in which case a false condition
// evaluates to Unit.
type SemanticIf struct {
	base
	Condition Node
	Then      Node
	Else      Node
}

// SemanticWhile is the analyzed form of while:do:[continueWith:].
// ContinueWith, when present, is evaluated once after the loop exits
// normally (condition became false) and becomes the expression's value;
// otherwise the expression's value is Unit.
type SemanticWhile struct {
	base
	Condition    Node
	Body         Node
	ContinueWith Node
}

// SemanticError is the analyzer's equivalent of ast.SyntaxError: reified
// in the tree rather than thrown, so one malformed expression does not
// abort analysis of everything around it. This is also the fix point
// for the REDESIGN over an unassignable assignment target (see
// analyzer.analyzeAssignment): the original aborted the process outright
// on that path; here it produces one of these instead.
type SemanticError struct {
	base
	Message string
}

func NewSemanticError(pos source.Position, message string) *SemanticError {
	return &SemanticError{base: base{Pos: pos}, Message: message}
}

// Constructors. Each takes the position and (where applicable) the
// elaborated type so call sites in the analyzer stay short.

func NewLiteralValue(pos source.Position, typ object.Value, v object.Value) *SemanticLiteralValue {
	return &SemanticLiteralValue{base: base{Pos: pos, Typ: typ}, Value: v}
}

func NewValueSequence(pos source.Position, typ object.Value, elements []Node) *SemanticValueSequence {
	return &SemanticValueSequence{base: base{Pos: pos, Typ: typ}, Elements: elements}
}

func NewIdentifierReference(pos source.Position, typ object.Value, symbol *object.Symbol) *SemanticIdentifierReference {
	return &SemanticIdentifierReference{base: base{Pos: pos, Typ: typ}, Symbol: symbol}
}

func NewMessageSend(pos source.Position, typ object.Value, receiver Node, selector *object.Symbol, arguments []Node) *SemanticMessageSend {
	return &SemanticMessageSend{base: base{Pos: pos, Typ: typ}, Receiver: receiver, Selector: selector, Arguments: arguments}
}

func NewApplication(pos source.Position, typ object.Value, functional Node, arguments []Node) *SemanticApplication {
	return &SemanticApplication{base: base{Pos: pos, Typ: typ}, Functional: functional, Arguments: arguments}
}

func NewIf(pos source.Position, typ object.Value, condition, then, els Node) *SemanticIf {
	return &SemanticIf{base: base{Pos: pos, Typ: typ}, Condition: condition, Then: then, Else: els}
}

func NewWhile(pos source.Position, typ object.Value, condition, body, continueWith Node) *SemanticWhile {
	return &SemanticWhile{base: base{Pos: pos, Typ: typ}, Condition: condition, Body: body, ContinueWith: continueWith}
}
