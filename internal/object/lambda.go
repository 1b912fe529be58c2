package object

// LambdaValue is a closure produced by evaluating a Block or a λ literal.
// Its body and captured environment are owned by internal/evaluator and
// internal/semantics, which both depend on this package; to avoid the
// reverse dependency they would otherwise need, LambdaValue stores them
// as opaque `any` and delegates ApplyWithArguments to Invoke, a closure
// supplied by the evaluator at construction time. This mirrors
// MacroContext's boxing of ast.Node for the same reason (see value.go).
type LambdaValue struct {
	Name        string
	Type        Value // the Π-type this lambda was elaborated against, if any
	Environment any
	Body        any
	Invoke      func(arguments []Value) (Value, error)
}

func NewLambdaValue(name string, typ Value, environment, body any, invoke func([]Value) (Value, error)) *LambdaValue {
	return &LambdaValue{Name: name, Type: typ, Environment: environment, Body: body, Invoke: invoke}
}

func (l *LambdaValue) GetType() Value  { return l.Type }
func (l *LambdaValue) GetClass() Value { return nil }
func (l *LambdaValue) IsMacro() bool   { return false }
func (l *LambdaValue) PrintString() string {
	if l.Name != "" {
		return "a Lambda(" + l.Name + ")"
	}
	return "a Lambda"
}

func (l *LambdaValue) ApplyWithArguments(arguments []Value) (Value, error) {
	return l.Invoke(arguments)
}

// PrimitiveMacro is the Macro-implementing counterpart to a Method's
// Primitive field: a Go closure registered directly against a selector,
// used by the intrinsics bootstrap for if:/while:/quote: and friends,
// which must run at analysis time against unevaluated argument nodes.
type PrimitiveMacro struct {
	Name    string
	Expand  func(ctx *MacroContext, arguments []Value) (Value, error)
}

func NewPrimitiveMacro(name string, expand func(*MacroContext, []Value) (Value, error)) *PrimitiveMacro {
	return &PrimitiveMacro{Name: name, Expand: expand}
}

func (m *PrimitiveMacro) GetType() Value      { return nil }
func (m *PrimitiveMacro) GetClass() Value     { return nil }
func (m *PrimitiveMacro) IsMacro() bool       { return true }
func (m *PrimitiveMacro) PrintString() string { return "a Macro(" + m.Name + ")" }

func (m *PrimitiveMacro) ApplyWithArguments(arguments []Value) (Value, error) {
	return m.Expand(nil, arguments)
}

func (m *PrimitiveMacro) ApplyMacroWithContextAndArguments(ctx *MacroContext, arguments []Value) (Value, error) {
	return m.Expand(ctx, arguments)
}
