// Package types implements the dependently-typed layer above
// internal/object's plain value universe: gradual/unit/bottom/void
// singletons, hash-consed product and sum types, and the Π (dependent
// function) and simple function type formers. Every exported type here
// also satisfies object.Value, since types are themselves first-class
// values that flow through the same evaluator and dispatch path as any
// other object.
package types

import (
	"strings"
	"sync"

	"github.com/sysmel/bootstrap/internal/object"
)

// GradualType is the "?" type: it is compatible with everything and
// carries no constraint, used wherever no annotation was written.
type GradualType struct{ class *object.Class }

var Gradual = &GradualType{}

func (g *GradualType) GetType() object.Value      { return nil }
func (g *GradualType) GetClass() object.Value {
	if g.class == nil {
		return nil
	}
	return g.class
}
func (g *GradualType) SetClass(c *object.Class) { g.class = c }
func (g *GradualType) IsMacro() bool            { return false }
func (g *GradualType) PrintString() string      { return "?" }

// UnitType has exactly one inhabitant, UnitValue; it is the type of `()`.
type UnitType struct{ class *object.Class }

var Unit = &UnitType{}

func (u *UnitType) GetType() object.Value  { return nil }
func (u *UnitType) GetClass() object.Value {
	if u.class == nil {
		return nil
	}
	return u.class
}
func (u *UnitType) SetClass(c *object.Class) { u.class = c }
func (u *UnitType) IsMacro() bool            { return false }
func (u *UnitType) PrintString() string      { return "Unit" }

// BottomType has no inhabitants; it types expressions that never return
// (an unconditional error raise, an infinite loop used as a value).
type BottomType struct{ class *object.Class }

var Bottom = &BottomType{}

func (b *BottomType) GetType() object.Value  { return nil }
func (b *BottomType) GetClass() object.Value {
	if b.class == nil {
		return nil
	}
	return b.class
}
func (b *BottomType) SetClass(c *object.Class) { b.class = c }
func (b *BottomType) IsMacro() bool            { return false }
func (b *BottomType) PrintString() string      { return "Bottom" }

// VoidType is the type of statements evaluated only for effect.
type VoidType struct{ class *object.Class }

var Void = &VoidType{}

func (v *VoidType) GetType() object.Value  { return nil }
func (v *VoidType) GetClass() object.Value {
	if v.class == nil {
		return nil
	}
	return v.class
}
func (v *VoidType) SetClass(c *object.Class) { v.class = c }
func (v *VoidType) IsMacro() bool            { return false }
func (v *VoidType) PrintString() string      { return "Void" }

// ProductType is a tuple type (T1 * T2 * ... * Tn). Product and sum types
// are hash-consed: two structurally identical element lists answer the
// same *ProductType instance, so reference equality on the type value
// implies structural equality without a deep comparison at every use
// site (the check itself still walks the element list once, at intern
// time).
type ProductType struct {
	class    *object.Class
	Elements []object.Value
	key      string
}

func (p *ProductType) GetType() object.Value  { return nil }
func (p *ProductType) GetClass() object.Value {
	if p.class == nil {
		return nil
	}
	return p.class
}
func (p *ProductType) SetClass(c *object.Class) { p.class = c }
func (p *ProductType) IsMacro() bool            { return false }
func (p *ProductType) PrintString() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.PrintString()
	}
	return strings.Join(parts, " * ")
}

// SumType is a tagged union type (T1 | T2 | ... | Tn), likewise
// hash-consed.
type SumType struct {
	class    *object.Class
	Elements []object.Value
	key      string
}

func (s *SumType) GetType() object.Value  { return nil }
func (s *SumType) GetClass() object.Value {
	if s.class == nil {
		return nil
	}
	return s.class
}
func (s *SumType) SetClass(c *object.Class) { s.class = c }
func (s *SumType) IsMacro() bool            { return false }
func (s *SumType) PrintString() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.PrintString()
	}
	return strings.Join(parts, " | ")
}

// ProductTypeValue and SumTypeValue are the corresponding value-level
// tuples/tagged-unions: a ProductTypeValue carries one Value per element
// of its ProductType, a SumTypeValue carries the active Tag index plus
// that one alternative's Value.
type ProductTypeValue struct {
	Type     *ProductType
	Elements []object.Value
}

func (p *ProductTypeValue) GetType() object.Value  { return p.Type }
func (p *ProductTypeValue) GetClass() object.Value { return nil }
func (p *ProductTypeValue) IsMacro() bool          { return false }
func (p *ProductTypeValue) PrintString() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.PrintString()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type SumTypeValue struct {
	Type  *SumType
	Tag   int
	Value object.Value
}

func (s *SumTypeValue) GetType() object.Value  { return s.Type }
func (s *SumTypeValue) GetClass() object.Value { return nil }
func (s *SumTypeValue) IsMacro() bool          { return false }
func (s *SumTypeValue) PrintString() string    { return s.Value.PrintString() }

var consTable = struct {
	sync.Mutex
	products map[string]*ProductType
	sums     map[string]*SumType
}{products: make(map[string]*ProductType), sums: make(map[string]*SumType)}

func elementKey(elements []object.Value) string {
	var b strings.Builder
	for _, e := range elements {
		b.WriteString(e.PrintString())
		b.WriteByte(0)
	}
	return b.String()
}

// InternProductType returns the unique ProductType for this element
// sequence, constructing it on first use.
func InternProductType(elements []object.Value) *ProductType {
	key := elementKey(elements)
	consTable.Lock()
	defer consTable.Unlock()
	if p, ok := consTable.products[key]; ok {
		return p
	}
	p := &ProductType{Elements: elements, key: key}
	consTable.products[key] = p
	return p
}

// InternSumType returns the unique SumType for this alternative sequence.
func InternSumType(elements []object.Value) *SumType {
	key := elementKey(elements)
	consTable.Lock()
	defer consTable.Unlock()
	if s, ok := consTable.sums[key]; ok {
		return s
	}
	s := &SumType{Elements: elements, key: key}
	consTable.sums[key] = s
	return s
}
