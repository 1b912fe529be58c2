package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Float is a 64-bit float value; Float32/Float64 fixed-width classes
// (distinguished the same way FixedWidthInteger distinguishes its kinds)
// are layered on top by the intrinsics bootstrap where the language
// exposes both widths, but the interpreter core only ever produces this
// native-width representation internally.
type Float struct {
	class *Class
	Value float64
}

func NewFloat(v float64) *Float { return &Float{Value: v, class: defaultFloatClass} }

func (f *Float) GetType() Value  { return nil }
func (f *Float) GetClass() Value {
	if f.class == nil {
		return nil
	}
	return f.class
}
func (f *Float) SetClass(c *Class)  { f.class = c }
func (f *Float) IsMacro() bool      { return false }
func (f *Float) PrintString() string {
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// Character is a single Unicode code point.
type Character struct {
	class *Class
	Value rune
}

func NewCharacter(r rune) *Character { return &Character{Value: r, class: defaultCharacterClass} }

func (c *Character) GetType() Value  { return nil }
func (c *Character) GetClass() Value {
	if c.class == nil {
		return nil
	}
	return c.class
}
func (c *Character) SetClass(cl *Class) { c.class = cl }
func (c *Character) IsMacro() bool      { return false }
func (c *Character) PrintString() string {
	return "$" + string(c.Value)
}

// String is a mutable sequence of characters, following the reference
// language's value semantics of strings-as-byte-buffers rather than Go's
// immutable string type, since `at:put:` mutation is part of the surface
// protocol (see the String class intrinsics).
type String struct {
	class *Class
	Runes []rune
}

func NewString(s string) *String { return &String{Runes: []rune(s), class: defaultStringClass} }

func (s *String) GetType() Value  { return nil }
func (s *String) GetClass() Value {
	if s.class == nil {
		return nil
	}
	return s.class
}
func (s *String) SetClass(c *Class) { s.class = c }
func (s *String) IsMacro() bool     { return false }
func (s *String) Text() string      { return string(s.Runes) }
func (s *String) PrintString() string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s.Runes {
		if r == '\'' {
			b.WriteString("''")
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Array is a fixed-length sequence of arbitrary Values.
type Array struct {
	class    *Class
	Elements []Value
}

func NewArray(elements []Value) *Array { return &Array{Elements: elements, class: defaultArrayClass} }

func (a *Array) GetType() Value  { return nil }
func (a *Array) GetClass() Value {
	if a.class == nil {
		return nil
	}
	return a.class
}
func (a *Array) SetClass(c *Class) { a.class = c }
func (a *Array) IsMacro() bool     { return false }
func (a *Array) PrintString() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.PrintString()
	}
	return "(" + strings.Join(parts, " ") + " )"
}

// ByteArray is a fixed-length sequence of bytes (0-255).
type ByteArray struct {
	class *Class
	Bytes []byte
}

func NewByteArray(bytes []byte) *ByteArray { return &ByteArray{Bytes: bytes, class: defaultByteArrayClass} }

func (b *ByteArray) GetType() Value  { return nil }
func (b *ByteArray) GetClass() Value {
	if b.class == nil {
		return nil
	}
	return b.class
}
func (b *ByteArray) SetClass(c *Class) { b.class = c }
func (b *ByteArray) IsMacro() bool     { return false }
func (b *ByteArray) PrintString() string {
	parts := make([]string, len(b.Bytes))
	for i, e := range b.Bytes {
		parts[i] = strconv.Itoa(int(e))
	}
	return "#[" + strings.Join(parts, " ") + "]"
}

// Boolean is the pair of singletons true/false; there is no bool field
// because identity IS the value (see TrueValue/FalseValue below).
type Boolean struct {
	class *Class
	Value bool
}

var (
	TrueValue  = &Boolean{Value: true}
	FalseValue = &Boolean{Value: false}
)

func BooleanFor(b bool) *Boolean {
	if b {
		return TrueValue
	}
	return FalseValue
}

func (b *Boolean) GetType() Value  { return nil }
func (b *Boolean) GetClass() Value {
	if b.class == nil {
		return nil
	}
	return b.class
}
func (b *Boolean) SetClass(c *Class) { b.class = c }
func (b *Boolean) IsMacro() bool     { return false }
func (b *Boolean) PrintString() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// UndefinedObject is the single nil-value singleton.
type UndefinedObject struct {
	class *Class
}

var Nil = &UndefinedObject{}

func (u *UndefinedObject) GetType() Value  { return nil }
func (u *UndefinedObject) GetClass() Value {
	if u.class == nil {
		return nil
	}
	return u.class
}
func (u *UndefinedObject) SetClass(c *Class)  { u.class = c }
func (u *UndefinedObject) IsMacro() bool      { return false }
func (u *UndefinedObject) PrintString() string { return "nil" }

// Tuple is a runtime-only fixed-length grouping of values with no
// statically tracked ProductType, produced by evaluating a CST Tuple
// literal; typed tuples (types.ProductTypeValue) are layered on top by
// the analyzer when a Π/Σ-type elaboration applies.
type Tuple struct {
	class    *Class
	Elements []Value
}

func NewTuple(elements []Value) *Tuple { return &Tuple{Elements: elements, class: defaultTupleClass} }

func (t *Tuple) GetType() Value  { return nil }
func (t *Tuple) GetClass() Value {
	if t.class == nil {
		return nil
	}
	return t.class
}
func (t *Tuple) SetClass(c *Class) { t.class = c }
func (t *Tuple) IsMacro() bool     { return false }
func (t *Tuple) PrintString() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.PrintString()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Association and Dictionary runtime values (distinct from the
// ast.Association/ast.Dictionary CST shapes they are evaluated from).
type Association struct {
	class *Class
	Key   Value
	Val   Value
}

func NewAssociation(key, val Value) *Association { return &Association{Key: key, Val: val, class: defaultAssociationClass} }

func (a *Association) GetType() Value  { return nil }
func (a *Association) GetClass() Value {
	if a.class == nil {
		return nil
	}
	return a.class
}
func (a *Association) SetClass(c *Class) { a.class = c }
func (a *Association) IsMacro() bool     { return false }
func (a *Association) PrintString() string {
	return fmt.Sprintf("%s->%s", a.Key.PrintString(), a.Val.PrintString())
}
