// Package evaluator walks a semantics.Node tree and produces an
// object.Value, threading an environment.Environment for variable
// lookup and delegating every message send to object.PerformWithArguments
// so dispatch stays table-driven in one place (see that function's doc
// comment).
package evaluator

import (
	"github.com/sysmel/bootstrap/internal/diagnostics"
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/object"
	"github.com/sysmel/bootstrap/internal/semantics"
)

// Evaluator holds no state of its own; it exists so call sites read
// `eval.Eval(node, env)` rather than a bare package function, matching
// the teacher's convention of a small stateless driver type per pipeline
// stage.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Eval evaluates node against env, returning the resulting Value or the
// first error encountered. Errors from message dispatch and primitive
// failures are wrapped into a diagnostics.PositionedError carrying
// node's position, so a failure deep inside a call still reports a
// source location meaningful to the caller.
func (e *Evaluator) Eval(node semantics.Node, env *environment.Environment) (object.Value, error) {
	switch n := node.(type) {
	case nil:
		return object.Nil, nil
	case *semantics.SemanticLiteralValue:
		return n.Value, nil
	case *semantics.SemanticValue:
		return n.Value, nil
	case *semantics.SemanticError:
		return nil, diagnostics.New(diagnostics.KindSemantic, n.Position(), n.Message)
	case *semantics.SemanticValueSequence:
		return e.evalSequence(n, env)
	case *semantics.SemanticIdentifierReference:
		return e.evalIdentifier(n, env)
	case *semantics.SemanticMessageSend:
		return e.evalMessageSend(n, env)
	case *semantics.SemanticApplication:
		return e.evalApplication(n, env)
	case *semantics.SemanticIf:
		return e.evalIf(n, env)
	case *semantics.SemanticWhile:
		return e.evalWhile(n, env)
	case *semantics.SemanticAlloca:
		return e.evalAlloca(n, env)
	case *semantics.SemanticLoadValue:
		return e.evalLoad(n, env)
	case *semantics.SemanticStoreValue:
		return e.evalStore(n, env)
	case *semantics.SemanticArray:
		return e.evalArray(n, env)
	case *semantics.SemanticTuple:
		return e.evalTuple(n, env)
	case *semantics.SemanticByteArray:
		return object.NewByteArray(n.Bytes), nil
	case *semantics.SemanticFunctionalValue:
		return e.evalFunctional(n, env)
	case *semantics.SemanticLambda:
		return e.evalLambda(n, env)
	default:
		return nil, diagnostics.New(diagnostics.KindSemantic, node.Position(), "Unsupported semantic node in evaluation")
	}
}

func (e *Evaluator) evalSequence(n *semantics.SemanticValueSequence, env *environment.Environment) (object.Value, error) {
	var result object.Value = object.Nil
	for _, el := range n.Elements {
		v, err := e.Eval(el, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalIdentifier(n *semantics.SemanticIdentifierReference, env *environment.Environment) (object.Value, error) {
	binding, ok := env.Lookup(n.Symbol)
	if !ok {
		return nil, diagnostics.New(diagnostics.KindSemantic, n.Position(), "Undeclared identifier: "+n.Symbol.Name)
	}
	return binding.Value(), nil
}

func (e *Evaluator) evalMessageSend(n *semantics.SemanticMessageSend, env *environment.Environment) (object.Value, error) {
	arguments := make([]object.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := e.Eval(a, env)
		if err != nil {
			return nil, err
		}
		arguments[i] = v
	}
	if n.Receiver == nil {
		// A receiverless keyword/unary send resolves directly against an
		// environment binding for the selector (a free function bound in
		// the intrinsics or a lexical scope), rather than through class
		// dispatch, since there is no receiver object to dispatch on.
		binding, ok := env.Lookup(n.Selector)
		if !ok {
			return nil, diagnostics.New(diagnostics.KindDispatch, n.Position(), "Undeclared identifier: "+n.Selector.Name)
		}
		applyable, ok := binding.Value().(object.Applyable)
		if !ok {
			return nil, diagnostics.New(diagnostics.KindDispatch, n.Position(), "Value is not applicable: "+n.Selector.Name)
		}
		v, err := applyable.ApplyWithArguments(arguments)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.KindDispatch, n.Position(), err, err.Error())
		}
		return v, nil
	}
	receiver, err := e.Eval(n.Receiver, env)
	if err != nil {
		return nil, err
	}
	v, err := object.PerformWithArguments(n.Selector, receiver, arguments)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.KindDispatch, n.Position(), err, err.Error())
	}
	return v, nil
}

func (e *Evaluator) evalApplication(n *semantics.SemanticApplication, env *environment.Environment) (object.Value, error) {
	functional, err := e.Eval(n.Functional, env)
	if err != nil {
		return nil, err
	}
	applyable, ok := functional.(object.Applyable)
	if !ok {
		return nil, diagnostics.New(diagnostics.KindDispatch, n.Position(), "Value is not applicable: "+functional.PrintString())
	}
	arguments := make([]object.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := e.Eval(a, env)
		if err != nil {
			return nil, err
		}
		arguments[i] = v
	}
	v, err := applyable.ApplyWithArguments(arguments)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.KindDispatch, n.Position(), err, err.Error())
	}
	return v, nil
}

// isTrue reports whether the evaluated condition is the true singleton;
// anything else (including false) takes the not-true branch, matching
// this dialect's strict two-valued Boolean protocol.
func isTrue(v object.Value) bool {
	b, ok := v.(*object.Boolean)
	return ok && b.Value
}

func (e *Evaluator) evalIf(n *semantics.SemanticIf, env *environment.Environment) (object.Value, error) {
	cond, err := e.Eval(n.Condition, env)
	if err != nil {
		return nil, err
	}
	if isTrue(cond) {
		return e.Eval(n.Then, env)
	}
	if n.Else != nil {
		return e.Eval(n.Else, env)
	}
	return object.Nil, nil
}

func (e *Evaluator) evalWhile(n *semantics.SemanticWhile, env *environment.Environment) (object.Value, error) {
	for {
		cond, err := e.Eval(n.Condition, env)
		if err != nil {
			return nil, err
		}
		if !isTrue(cond) {
			break
		}
		if _, err := e.Eval(n.Body, env); err != nil {
			return nil, err
		}
	}
	if n.ContinueWith != nil {
		return e.Eval(n.ContinueWith, env)
	}
	return object.Nil, nil
}

func (e *Evaluator) evalAlloca(n *semantics.SemanticAlloca, env *environment.Environment) (object.Value, error) {
	v, err := e.Eval(n.InitialValue, env)
	if err != nil {
		return nil, err
	}
	env.Define(n.Symbol, &environment.MutableBinding{Val: v})
	return v, nil
}

func (e *Evaluator) evalLoad(n *semantics.SemanticLoadValue, env *environment.Environment) (object.Value, error) {
	binding, ok := env.Lookup(n.Symbol)
	if !ok {
		return nil, diagnostics.New(diagnostics.KindSemantic, n.Position(), "Undeclared identifier: "+n.Symbol.Name)
	}
	return binding.Value(), nil
}

func (e *Evaluator) evalStore(n *semantics.SemanticStoreValue, env *environment.Environment) (object.Value, error) {
	binding, ok := env.Lookup(n.Symbol)
	if !ok {
		return nil, diagnostics.New(diagnostics.KindSemantic, n.Position(), "Undeclared identifier: "+n.Symbol.Name)
	}
	mutable, ok := binding.(*environment.MutableBinding)
	if !ok {
		return nil, diagnostics.New(diagnostics.KindSemantic, n.Position(), "Cannot assign to immutable binding: "+n.Symbol.Name)
	}
	v, err := e.Eval(n.Value, env)
	if err != nil {
		return nil, err
	}
	mutable.Set(v)
	return v, nil
}

func (e *Evaluator) evalArray(n *semantics.SemanticArray, env *environment.Environment) (object.Value, error) {
	elements := make([]object.Value, len(n.Elements))
	for i, el := range n.Elements {
		v, err := e.Eval(el, env)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	return object.NewArray(elements), nil
}

func (e *Evaluator) evalTuple(n *semantics.SemanticTuple, env *environment.Environment) (object.Value, error) {
	elements := make([]object.Value, len(n.Elements))
	for i, el := range n.Elements {
		v, err := e.Eval(el, env)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	return object.NewTuple(elements), nil
}

func (e *Evaluator) evalFunctional(n *semantics.SemanticFunctionalValue, env *environment.Environment) (object.Value, error) {
	return e.makeClosure(n.Name, n.Arguments, n.Body, env), nil
}

func (e *Evaluator) evalLambda(n *semantics.SemanticLambda, env *environment.Environment) (object.Value, error) {
	return e.makeClosure(n.Name, n.Arguments, n.Body, env), nil
}

// makeClosure builds an object.LambdaValue whose Invoke closure binds
// arguments into a fresh child environment (one SymbolArgumentBinding
// per parameter) and evaluates body against it, giving every activation
// its own frame so recursion and re-entrancy do not alias argument
// cells across calls.
func (e *Evaluator) makeClosure(name string, arguments []*semantics.SemanticArgumentNode, body semantics.Node, env *environment.Environment) *object.LambdaValue {
	return object.NewLambdaValue(name, nil, env, body, func(args []object.Value) (object.Value, error) {
		child := environment.NewChild(env, environment.KindLexical, name)
		for i, argNode := range arguments {
			var v object.Value = object.Nil
			if i < len(args) {
				v = args[i]
			}
			child.Define(argNode.Symbol, &environment.ArgumentBinding{Val: v})
		}
		return e.Eval(body, child)
	})
}
