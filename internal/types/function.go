package types

import (
	"strings"

	"github.com/sysmel/bootstrap/internal/object"
)

// PiType is a dependent function type `argumentPattern :: resultType`,
// where resultType may mention the argument's bound name. Reduce
// performs the one substitution step the analyzer/evaluator need: given
// the concrete argument value a call site supplies, produce the
// resulting type for that call. Non-dependent signatures simply ignore
// Reduce's argument, which is why ResultTypeFn is optional.
type PiType struct {
	class        *object.Class
	ArgumentName string
	ArgumentType object.Value
	ResultType   object.Value
	ResultTypeFn func(argument object.Value) object.Value
}

func NewPiType(argumentName string, argumentType, resultType object.Value, resultTypeFn func(object.Value) object.Value) *PiType {
	return &PiType{ArgumentName: argumentName, ArgumentType: argumentType, ResultType: resultType, ResultTypeFn: resultTypeFn}
}

func (p *PiType) GetType() object.Value  { return nil }
func (p *PiType) GetClass() object.Value {
	if p.class == nil {
		return nil
	}
	return p.class
}
func (p *PiType) SetClass(c *object.Class) { p.class = c }
func (p *PiType) IsMacro() bool            { return false }
func (p *PiType) PrintString() string {
	name := p.ArgumentName
	if name == "" {
		name = "_"
	}
	return "(" + name + ": " + p.ArgumentType.PrintString() + ") :: " + p.ResultType.PrintString()
}

// Reduce returns the type this Π-type's body has once argument is bound
// to the given value; for a non-dependent signature this is always
// ResultType.
func (p *PiType) Reduce(argument object.Value) object.Value {
	if p.ResultTypeFn != nil {
		return p.ResultTypeFn(argument)
	}
	return p.ResultType
}

// SimpleFunctionType is a non-dependent function signature: a fixed
// vector of argument types (ArgumentNames is the parallel vector of
// binder names used only for error messages and introspection) plus one
// result type.
type SimpleFunctionType struct {
	class         *object.Class
	ArgumentTypes []object.Value
	ArgumentNames []string
	ResultType    object.Value
}

func NewSimpleFunctionType(argumentTypes []object.Value, argumentNames []string, resultType object.Value) *SimpleFunctionType {
	return &SimpleFunctionType{ArgumentTypes: argumentTypes, ArgumentNames: argumentNames, ResultType: resultType}
}

func (f *SimpleFunctionType) GetType() object.Value  { return nil }
func (f *SimpleFunctionType) GetClass() object.Value {
	if f.class == nil {
		return nil
	}
	return f.class
}
func (f *SimpleFunctionType) SetClass(c *object.Class) { f.class = c }
func (f *SimpleFunctionType) IsMacro() bool            { return false }
func (f *SimpleFunctionType) PrintString() string {
	parts := make([]string, len(f.ArgumentTypes))
	for i, t := range f.ArgumentTypes {
		parts[i] = t.PrintString()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + f.ResultType.PrintString()
}
