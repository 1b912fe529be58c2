package intrinsics

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sysmel/bootstrap/internal/object"
)

// def registers a primitive Method under selector on home's method
// dictionary (home is either a *object.Class, for instance-side
// methods, or its .Meta, for class-side methods).
func def(home *object.Behavior, selector string, fn func(args []object.Value) (object.Value, error)) {
	sym := object.InternString(selector)
	home.AddMethod(sym, &object.Method{Selector: sym, Primitive: fn})
}

func registerPrimitives(reg *Registry) {
	registerProtoObject(reg)
	registerBehaviorAndClass(reg)
	registerObject(reg)
	registerCollection(reg)
	registerInteger(reg)
	registerFixedWidth(reg)
	registerFloat(reg)
	registerStdio(reg)
}

func registerProtoObject(reg *Registry) {
	c := reg.Classes["ProtoObject"]
	def(&c.Behavior, "initialize", func(args []object.Value) (object.Value, error) {
		return args[0], nil
	})
	def(&c.Behavior, "class", func(args []object.Value) (object.Value, error) {
		if cls := object.GetClassOrType(args[0]); cls != nil {
			return cls, nil
		}
		return object.Nil, nil
	})
	def(&c.Behavior, "identityHash", func(args []object.Value) (object.Value, error) {
		addr, err := strconv.ParseInt(strings.TrimPrefix(fmt.Sprintf("%p", args[0]), "0x"), 16, 64)
		if err != nil {
			return object.NewIntegerFromInt64(0), nil
		}
		return object.NewIntegerFromInt64(addr), nil
	})
}

// registerBehaviorAndClass wires Behavior's withSelector:addMethod:,
// basicNew, new, superclass, and Class's subclasses.
//
// withSelector:addMethod: takes arguments [receiver, selector, method]:
// this stores arguments[2] (the method) in the dictionary. The
// reference bootstrap stores arguments[0] instead — an apparent
// off-by-one that would bind the receiving class itself as its own
// method body — corrected here per the REDESIGN.
func registerBehaviorAndClass(reg *Registry) {
	behavior := reg.Classes["Behavior"]
	def(&behavior.Behavior, "withSelector:addMethod:", func(args []object.Value) (object.Value, error) {
		receiver, ok := args[0].(*object.Class)
		if !ok {
			return nil, fmt.Errorf("withSelector:addMethod: sent to a non-Behavior receiver")
		}
		selSym, ok := args[1].(*object.Symbol)
		if !ok {
			return nil, fmt.Errorf("withSelector:addMethod: selector argument is not a Symbol")
		}
		method, ok := args[2].(*object.Method)
		if !ok {
			return nil, fmt.Errorf("withSelector:addMethod: method argument is not a CompiledMethod")
		}
		receiver.AddMethod(selSym, method)
		return receiver, nil
	})
	def(&behavior.Behavior, "basicNew", func(args []object.Value) (object.Value, error) {
		receiver, ok := args[0].(*object.Class)
		if !ok {
			return nil, fmt.Errorf("basicNew sent to a non-Behavior receiver")
		}
		if receiver.BasicNew != nil {
			return receiver.BasicNew(receiver), nil
		}
		return object.NewInstance(receiver), nil
	})
	def(&behavior.Behavior, "new", func(args []object.Value) (object.Value, error) {
		receiver, ok := args[0].(*object.Class)
		if !ok {
			return nil, fmt.Errorf("new sent to a non-Behavior receiver")
		}
		instance, err := receiver.LookupSelector(object.InternString("basicNew")).ApplyWithArguments(args)
		if err != nil {
			return nil, err
		}
		init := receiver.LookupSelector(object.InternString("initialize"))
		if init != nil {
			return init.ApplyWithArguments([]object.Value{instance})
		}
		return instance, nil
	})
	def(&behavior.Behavior, "superclass", func(args []object.Value) (object.Value, error) {
		receiver, ok := args[0].(*object.Class)
		if !ok || receiver.Superclass == nil {
			return object.Nil, nil
		}
		return receiver.Superclass, nil
	})

	class := reg.Classes["Class"]
	def(&class.Behavior, "subclasses", func(args []object.Value) (object.Value, error) {
		receiver, ok := args[0].(*object.Class)
		if !ok {
			return object.NewArray(nil), nil
		}
		elements := make([]object.Value, len(receiver.Subclasses))
		for i, sc := range receiver.Subclasses {
			elements[i] = sc
		}
		return object.NewArray(elements), nil
	})
}

func registerObject(reg *Registry) {
	c := reg.Classes["Object"]
	def(&c.Behavior, "printString", func(args []object.Value) (object.Value, error) {
		return object.NewString(args[0].PrintString()), nil
	})
	def(&c.Behavior, "yourself", func(args []object.Value) (object.Value, error) {
		return args[0], nil
	})
	def(&c.Behavior, "at:", func(args []object.Value) (object.Value, error) {
		return indexInto(args[0], args[1])
	})
	def(&c.Behavior, "at:put:", func(args []object.Value) (object.Value, error) {
		return indexStoreInto(args[0], args[1], args[2])
	})
}

func indexInto(receiver, indexValue object.Value) (object.Value, error) {
	idx, err := requireIndex(indexValue)
	if err != nil {
		return nil, err
	}
	switch r := receiver.(type) {
	case *object.Array:
		if idx < 1 || idx > len(r.Elements) {
			return nil, fmt.Errorf("Index %d out of bounds", idx)
		}
		return r.Elements[idx-1], nil
	case *object.ByteArray:
		if idx < 1 || idx > len(r.Bytes) {
			return nil, fmt.Errorf("Index %d out of bounds", idx)
		}
		return object.NewIntegerFromInt64(int64(r.Bytes[idx-1])), nil
	case *object.String:
		if idx < 1 || idx > len(r.Runes) {
			return nil, fmt.Errorf("Index %d out of bounds", idx)
		}
		return object.NewCharacter(r.Runes[idx-1]), nil
	case *object.Tuple:
		if idx < 1 || idx > len(r.Elements) {
			return nil, fmt.Errorf("Index %d out of bounds", idx)
		}
		return r.Elements[idx-1], nil
	default:
		return nil, fmt.Errorf("at: not supported on %s", receiver.PrintString())
	}
}

func indexStoreInto(receiver, indexValue, value object.Value) (object.Value, error) {
	idx, err := requireIndex(indexValue)
	if err != nil {
		return nil, err
	}
	switch r := receiver.(type) {
	case *object.Array:
		if idx < 1 || idx > len(r.Elements) {
			return nil, fmt.Errorf("Index %d out of bounds", idx)
		}
		r.Elements[idx-1] = value
		return value, nil
	case *object.ByteArray:
		b, ok := value.(*object.Integer)
		if !ok || idx < 1 || idx > len(r.Bytes) {
			return nil, fmt.Errorf("Index %d out of bounds or value not a byte", idx)
		}
		r.Bytes[idx-1] = byte(b.Value.Int64())
		return value, nil
	case *object.String:
		ch, ok := value.(*object.Character)
		if !ok || idx < 1 || idx > len(r.Runes) {
			return nil, fmt.Errorf("Index %d out of bounds or value not a Character", idx)
		}
		r.Runes[idx-1] = ch.Value
		return value, nil
	default:
		return nil, fmt.Errorf("at:put: not supported on %s", receiver.PrintString())
	}
}

func requireIndex(v object.Value) (int, error) {
	i, ok := v.(*object.Integer)
	if !ok {
		return 0, fmt.Errorf("Index must be an Integer")
	}
	return int(i.Value.Int64()), nil
}

func registerCollection(reg *Registry) {
	c := reg.Classes["Collection"]
	def(&c.Behavior, "size", func(args []object.Value) (object.Value, error) {
		switch r := args[0].(type) {
		case *object.Array:
			return object.NewIntegerFromInt64(int64(len(r.Elements))), nil
		case *object.ByteArray:
			return object.NewIntegerFromInt64(int64(len(r.Bytes))), nil
		case *object.String:
			return object.NewIntegerFromInt64(int64(len(r.Runes))), nil
		default:
			return nil, fmt.Errorf("size not supported on %s", args[0].PrintString())
		}
	})
}

func requireBigInt(v object.Value) (*big.Int, error) {
	i, ok := v.(*object.Integer)
	if !ok {
		return nil, fmt.Errorf("Argument is not an Integer")
	}
	return i.Value, nil
}

func registerInteger(reg *Registry) {
	c := reg.Classes["Integer"]
	bin := func(selector string, fn func(a, b *big.Int) (object.Value, error)) {
		def(&c.Behavior, selector, func(args []object.Value) (object.Value, error) {
			a, err := requireBigInt(args[0])
			if err != nil {
				return nil, err
			}
			b, err := requireBigInt(args[1])
			if err != nil {
				return nil, err
			}
			return fn(a, b)
		})
	}

	def(&c.Behavior, "negated", func(args []object.Value) (object.Value, error) {
		a, err := requireBigInt(args[0])
		if err != nil {
			return nil, err
		}
		return object.NewInteger(new(big.Int).Neg(a)), nil
	})
	bin("+", func(a, b *big.Int) (object.Value, error) { return object.NewInteger(new(big.Int).Add(a, b)), nil })
	bin("-", func(a, b *big.Int) (object.Value, error) { return object.NewInteger(new(big.Int).Sub(a, b)), nil })
	bin("*", func(a, b *big.Int) (object.Value, error) { return object.NewInteger(new(big.Int).Mul(a, b)), nil })
	bin("//", func(a, b *big.Int) (object.Value, error) {
		if b.Sign() == 0 {
			return nil, fmt.Errorf("Division by zero")
		}
		q, _ := floorDivMod(a, b)
		return object.NewInteger(q), nil
	})
	bin("\\\\", func(a, b *big.Int) (object.Value, error) {
		if b.Sign() == 0 {
			return nil, fmt.Errorf("Division by zero")
		}
		_, r := floorDivMod(a, b)
		return object.NewInteger(r), nil
	})
	bin("=", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) == 0), nil })
	bin("~=", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) != 0), nil })
	bin("<", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) < 0), nil })
	bin("<=", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) <= 0), nil })
	bin(">", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) > 0), nil })
	bin(">=", func(a, b *big.Int) (object.Value, error) { return object.BooleanFor(a.Cmp(b) >= 0), nil })

	def(&c.Behavior, "asInteger", func(args []object.Value) (object.Value, error) { return args[0], nil })
	def(&c.Behavior, "asFloat", func(args []object.Value) (object.Value, error) {
		a, err := requireBigInt(args[0])
		if err != nil {
			return nil, err
		}
		f := new(big.Float).SetInt(a)
		v, _ := f.Float64()
		return object.NewFloat(v), nil
	})

	for kindName, kind := range fixedWidthKindsByClassName() {
		kindName, kind := kindName, kind
		def(&c.Behavior, suffixConverterSelector(kindName), func(args []object.Value) (object.Value, error) {
			a, err := requireBigInt(args[0])
			if err != nil {
				return nil, err
			}
			raw := object.MaskTo(kind, a.Uint64())
			return object.NewFixedWidthInteger(reg.Classes[kindName], kind, raw), nil
		})
	}
}

// floorDivMod implements `//` (floor division) and `\\` (floored
// modulo) so that sign(a \\ b) == sign(b) when nonzero and
// (a // b) * b + (a \\ b) == a, matching Smalltalk's // and \\
// (distinct from Go's truncating / and %).
func floorDivMod(a, b *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int), new(big.Int)
	q.DivMod(a, b, r)
	if b.Sign() < 0 && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
		r.Add(r, new(big.Int).Neg(b))
	}
	return q, r
}

func suffixConverterSelector(className string) string {
	switch className {
	case "UInt8":
		return "u8"
	case "UInt16":
		return "u16"
	case "UInt32":
		return "u32"
	case "UInt64":
		return "u64"
	case "Int8":
		return "i8"
	case "Int16":
		return "i16"
	case "Int32":
		return "i32"
	case "Int64":
		return "i64"
	case "Char8":
		return "c8"
	case "Char16":
		return "c16"
	case "Char32":
		return "c32"
	default:
		return className
	}
}

func fixedWidthKindsByClassName() map[string]object.FixedWidthKind {
	return map[string]object.FixedWidthKind{
		"UInt8": object.KindUInt8, "UInt16": object.KindUInt16, "UInt32": object.KindUInt32, "UInt64": object.KindUInt64,
		"Int8": object.KindInt8, "Int16": object.KindInt16, "Int32": object.KindInt32, "Int64": object.KindInt64,
		"Char8": object.KindChar8, "Char16": object.KindChar16, "Char32": object.KindChar32,
	}
}

// registerFixedWidth wires bitInvert, %, |, &, ^, <<, >> on every
// primitive fixed-width integer class. & computes genuine bitwise AND;
// the reference primitive implementation computes OR for this selector,
// an error corrected here per the REDESIGN.
func registerFixedWidth(reg *Registry) {
	for className, kind := range fixedWidthKindsByClassName() {
		cls := reg.Classes[className]
		kind := kind
		def(&cls.Behavior, "bitInvert", func(args []object.Value) (object.Value, error) {
			a := args[0].(*object.FixedWidthInteger)
			return object.NewFixedWidthInteger(cls, kind, object.MaskTo(kind, ^a.Bits)), nil
		})
		fbin := func(selector string, fn func(a, b uint64) uint64) {
			def(&cls.Behavior, selector, func(args []object.Value) (object.Value, error) {
				a, ok1 := args[0].(*object.FixedWidthInteger)
				b, ok2 := args[1].(*object.FixedWidthInteger)
				if !ok1 || !ok2 {
					return nil, fmt.Errorf("%s requires two %s operands", selector, className)
				}
				return object.NewFixedWidthInteger(cls, kind, object.MaskTo(kind, fn(a.Bits, b.Bits))), nil
			})
		}
		fbin("%", func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return a % b
		})
		fbin("|", func(a, b uint64) uint64 { return a | b })
		fbin("&", func(a, b uint64) uint64 { return a & b })
		fbin("^", func(a, b uint64) uint64 { return a ^ b })
		fbin("<<", func(a, b uint64) uint64 { return a << (b % 64) })
		fbin(">>", func(a, b uint64) uint64 { return a >> (b % 64) })
	}
}

func registerFloat(reg *Registry) {
	c := reg.Classes["Float"]
	def(&c.Behavior, "sqrt", func(args []object.Value) (object.Value, error) {
		f, ok := args[0].(*object.Float)
		if !ok {
			return nil, fmt.Errorf("sqrt sent to a non-Float receiver")
		}
		if f.Value < 0 {
			return nil, fmt.Errorf("sqrt of a negative Float")
		}
		return object.NewFloat(sqrtFloat64(f.Value)), nil
	})
}

func sqrtFloat64(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// registerStdio wires the three class-side stream accessors. They
// answer an opaque handle; the core never reads or writes through it
// (see SPEC_FULL.md's Stdio note) — only the CLI driver does, by type
// asserting on *StdioStream.
func registerStdio(reg *Registry) {
	c := reg.Classes["Stdio"]
	meta := &c.Meta.Behavior
	def(meta, "stdin", func(args []object.Value) (object.Value, error) { return &StdioStream{Name: "stdin"}, nil })
	def(meta, "stdout", func(args []object.Value) (object.Value, error) { return &StdioStream{Name: "stdout"}, nil })
	def(meta, "stderr", func(args []object.Value) (object.Value, error) { return &StdioStream{Name: "stderr"}, nil })
}

// StdioStream is the opaque value the core hands back for stdin/stdout/
// stderr without ever reading or writing through it itself.
type StdioStream struct {
	Name string
}

func (s *StdioStream) GetType() object.Value  { return nil }
func (s *StdioStream) GetClass() object.Value { return nil }
func (s *StdioStream) IsMacro() bool           { return false }
func (s *StdioStream) PrintString() string     { return "a StdioStream(" + s.Name + ")" }
