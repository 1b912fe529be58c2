// Package environment implements the lexical scope chain: a linked list
// of frames, each holding a set of name bindings, searched from the
// innermost frame outward. Binding lookup is local-then-parent at every
// frame, matching this dialect's documented scoping contract (a name
// resolves to the nearest enclosing binding, full stop); this supersedes
// an apparent local-only lookup shortcut in the earliest revision of the
// reference interpreter.
package environment

import "github.com/sysmel/bootstrap/internal/object"

// Binding is anything an identifier can resolve to.
type Binding interface {
	// Value returns the bound value. For a mutable variable binding this
	// dereferences the current cell contents.
	Value() object.Value
}

// ValueBinding is an immutable let-bound name.
type ValueBinding struct {
	Val object.Value
}

func (b *ValueBinding) Value() object.Value { return b.Val }

// ArgumentBinding is a function/block parameter bound for one activation.
type ArgumentBinding struct {
	Val object.Value
}

func (b *ArgumentBinding) Value() object.Value { return b.Val }

// MutableBinding is a `:=`-assignable variable cell (the target of
// SemanticStoreValue); Set rebinds the cell in place.
type MutableBinding struct {
	Val object.Value
}

func (b *MutableBinding) Value() object.Value { return b.Val }
func (b *MutableBinding) Set(v object.Value)  { b.Val = v }

// FixpointBinding is the self-referential binding a recursive function's
// own name resolves to while its body is being elaborated/evaluated,
// letting a lambda close over its own not-yet-fully-constructed value.
type FixpointBinding struct {
	Val object.Value
}

func (b *FixpointBinding) Value() object.Value { return b.Val }
func (b *FixpointBinding) Resolve(v object.Value) { b.Val = v }

// Kind distinguishes the frame roles the language's module system cares
// about (namespace lookup rules differ slightly from lexical lookup, see
// §4.4), even though Lookup itself treats every frame identically.
type Kind int

const (
	KindEmpty Kind = iota
	KindIntrinsics
	KindModule
	KindNamespace
	KindLexical
)

// Environment is one frame of the scope chain.
type Environment struct {
	Kind     Kind
	Name     string
	Parent   *Environment
	Bindings map[*object.Symbol]Binding
}

// NewEmpty returns the root frame with no parent and no bindings; every
// chain bottoms out here.
func NewEmpty() *Environment {
	return &Environment{Kind: KindEmpty, Bindings: make(map[*object.Symbol]Binding)}
}

// NewChild returns a new frame of the given kind, linked to parent.
func NewChild(parent *Environment, kind Kind, name string) *Environment {
	return &Environment{Kind: kind, Name: name, Parent: parent, Bindings: make(map[*object.Symbol]Binding)}
}

// Define binds symbol to binding in this frame, shadowing any outer
// binding of the same name and overwriting a same-frame redefinition.
func (e *Environment) Define(symbol *object.Symbol, binding Binding) {
	e.Bindings[symbol] = binding
}

// Lookup searches this frame, then its parent chain, for symbol.
func (e *Environment) Lookup(symbol *object.Symbol) (Binding, bool) {
	for env := e; env != nil; env = env.Parent {
		if b, ok := env.Bindings[symbol]; ok {
			return b, true
		}
	}
	return nil, false
}

// LookupLocal searches only this frame, without consulting the parent
// chain; used by namespace-qualified lookups (`Namespace :: name`) that
// must not leak into an enclosing lexical scope.
func (e *Environment) LookupLocal(symbol *object.Symbol) (Binding, bool) {
	b, ok := e.Bindings[symbol]
	return b, ok
}
