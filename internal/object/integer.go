package object

import "math/big"

// Integer is an arbitrary-precision integer value. Fixed-width integer
// and character kinds below wrap a Go native type instead, since their
// overflow/wraparound behavior differs from the arbitrary-precision case
// and should not be expressed by truncating a big.Int on every operation.
type Integer struct {
	class *Class
	Value *big.Int
}

func NewInteger(v *big.Int) *Integer { return &Integer{Value: v, class: defaultIntegerClass} }

func NewIntegerFromInt64(v int64) *Integer {
	return &Integer{Value: big.NewInt(v), class: defaultIntegerClass}
}

func (i *Integer) GetType() Value  { return nil }
func (i *Integer) GetClass() Value {
	if i.class == nil {
		return nil
	}
	return i.class
}
func (i *Integer) SetClass(c *Class)  { i.class = c }
func (i *Integer) PrintString() string { return i.Value.String() }
func (i *Integer) IsMacro() bool       { return false }

// FixedWidthKind names the primitive fixed-width integer and character
// kinds the bootstrap registers as distinct classes (UInt8, Int32, Char16,
// ...): one Go struct covers all of them, varying only by class and the
// bit width used when wrapping arithmetic results.
type FixedWidthKind int

const (
	KindUInt8 FixedWidthKind = iota
	KindUInt16
	KindUInt32
	KindUInt64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindChar8
	KindChar16
	KindChar32
)

// FixedWidthInteger is a fixed-width integer or character value, stored
// widened into an int64/uint64 pair and reduced to its declared width by
// arithmetic primitives (see intrinsics' numeric coercion table).
type FixedWidthInteger struct {
	class *Class
	Kind  FixedWidthKind
	Bits  uint64
}

func NewFixedWidthInteger(c *Class, kind FixedWidthKind, bits uint64) *FixedWidthInteger {
	return &FixedWidthInteger{class: c, Kind: kind, Bits: bits}
}

func (f *FixedWidthInteger) GetType() Value  { return nil }
func (f *FixedWidthInteger) GetClass() Value {
	if f.class == nil {
		return nil
	}
	return f.class
}
func (f *FixedWidthInteger) IsMacro() bool { return false }

func (f *FixedWidthInteger) PrintString() string {
	return bigFromKind(f.Kind, f.Bits).String()
}

// Width returns the bit width of kind, used by arithmetic primitives to
// mask results back into range after a wider Go operation.
func (k FixedWidthKind) Width() uint {
	switch k {
	case KindUInt8, KindInt8, KindChar8:
		return 8
	case KindUInt16, KindInt16, KindChar16:
		return 16
	case KindUInt32, KindInt32, KindChar32:
		return 32
	default:
		return 64
	}
}

func (k FixedWidthKind) Signed() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

func bigFromKind(kind FixedWidthKind, bits uint64) *big.Int {
	if !kind.Signed() {
		return new(big.Int).SetUint64(bits)
	}
	width := kind.Width()
	signBit := uint64(1) << (width - 1)
	if width == 64 {
		return big.NewInt(int64(bits))
	}
	if bits&signBit != 0 {
		return big.NewInt(int64(bits) - int64(1<<width))
	}
	return new(big.Int).SetUint64(bits)
}

// MaskTo truncates raw to kind's declared bit width.
func MaskTo(kind FixedWidthKind, raw uint64) uint64 {
	width := kind.Width()
	if width >= 64 {
		return raw
	}
	mask := (uint64(1) << width) - 1
	return raw & mask
}
