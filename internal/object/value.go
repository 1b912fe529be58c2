// Package object implements the value universe: the polymorphic Value
// root, the class/metaclass lattice, interned symbols, and the primitive
// object kinds (integers, floats, characters, strings, arrays, byte
// arrays, booleans). Message dispatch lives in dispatch.go as a free
// function rather than a Value method, per the table-driven-not-virtual
// design this dialect calls for: a Value only needs to answer what its
// type and class are, not how to dispatch through them.
package object

// Value is the universal root every expression evaluates to.
type Value interface {
	// GetType returns the type that should be consulted first for method
	// dispatch, or nil if this value has no type (ordinary objects rely
	// on their class instead).
	GetType() Value

	// GetClass returns the class used for dispatch when GetType is nil,
	// or when type-directed dispatch misses.
	GetClass() Value

	// PrintString renders this value the way the language's printString
	// message would.
	PrintString() string

	// IsMacro reports whether applying this value should happen at
	// analysis time rather than evaluation time.
	IsMacro() bool
}

// GetClassOrType prefers the class, falling back to the type; the inverse
// of the dispatch order, used by reflective primitives like `class`.
func GetClassOrType(v Value) Value {
	if c := v.GetClass(); c != nil {
		return c
	}
	return v.GetType()
}

// GetTypeOrClass prefers the type, falling back to the class.
func GetTypeOrClass(v Value) Value {
	if t := v.GetType(); t != nil {
		return t
	}
	return v.GetClass()
}

// Applyable is implemented by values that can appear as the functional of
// an Application node: lambdas, primitive methods, and macros.
type Applyable interface {
	Value
	ApplyWithArguments(args []Value) (Value, error)
}

// Macro is implemented by Applyable values whose IsMacro is true; the
// analyzer is the only caller allowed to invoke ApplyMacro.
type Macro interface {
	Value
	ApplyMacroWithContextAndArguments(ctx *MacroContext, args []Value) (Value, error)
}

// MacroContext carries the call site information a macro needs to build
// positioned CST fragments; Node is an ast.Node boxed as `any` to avoid an
// import cycle between object and ast (ast never needs to know about
// Value).
type MacroContext struct {
	CallSiteNode any
}
