package intrinsics_test

import (
	"testing"

	"github.com/sysmel/bootstrap/internal/intrinsics"
	"github.com/sysmel/bootstrap/internal/object"
)

func TestBootstrapLinksSuperclassChain(t *testing.T) {
	reg := intrinsics.Bootstrap()
	integer := reg.Classes["Integer"]
	if integer.Superclass != reg.Classes["Number"] {
		t.Fatal("expected Integer's superclass to be Number")
	}
	if integer.Superclass.Superclass != reg.Classes["Magnitude"] {
		t.Fatal("expected Number's superclass to be Magnitude")
	}
}

func TestBootstrapShortCircuitsProtoObject(t *testing.T) {
	reg := intrinsics.Bootstrap()
	proto := reg.Classes["ProtoObject"]
	if proto.Superclass != reg.Classes["UndefinedObject"] {
		t.Fatal("expected ProtoObject's superclass to be UndefinedObject")
	}
	if proto.Meta.Superclass != reg.Classes["Class"] {
		t.Fatal("expected Metaclass(ProtoObject)'s superclass to be Class")
	}
}

func TestBootstrapEveryMetaclassPointsAtMetaclassClass(t *testing.T) {
	reg := intrinsics.Bootstrap()
	metaclassClass := reg.Classes["Metaclass"]
	for name, cls := range reg.Classes {
		if cls.Meta.MetaMeta != metaclassClass {
			t.Fatalf("expected %s's metaclass to point at the Metaclass class", name)
		}
	}
}

func TestBootstrapRegistersInSuperclass(t *testing.T) {
	reg := intrinsics.Bootstrap()
	number := reg.Classes["Number"]
	found := false
	for _, sub := range number.Subclasses {
		if sub == reg.Classes["Integer"] {
			found = true
		}
	}
	if !found {
		t.Fatal("expected Integer to be registered as a subclass of Number")
	}
}

func TestBootstrapBindsSingletons(t *testing.T) {
	reg := intrinsics.Bootstrap()
	nilBinding, ok := reg.Env.Lookup(object.InternString("nil"))
	if !ok || nilBinding.Value() != object.Nil {
		t.Fatal("expected nil to be bound to the UndefinedObject singleton")
	}
	trueBinding, ok := reg.Env.Lookup(object.InternString("true"))
	if !ok || trueBinding.Value() != object.TrueValue {
		t.Fatal("expected true to be bound to the Boolean singleton")
	}
}

func TestWithSelectorAddMethodStoresTheMethodArgument(t *testing.T) {
	reg := intrinsics.Bootstrap()
	class := reg.Classes["Object"]
	behaviorClass := reg.Classes["Behavior"]
	selector := object.InternString("withSelector:addMethod:")

	methodSelector := object.InternString("double")
	method := &object.Method{
		Selector: methodSelector,
		Primitive: func(args []object.Value) (object.Value, error) {
			return args[0], nil
		},
	}

	_, err := object.PerformWithArguments(selector, class, []object.Value{methodSelector, method})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	registered := class.LookupLocal(methodSelector)
	if registered == nil {
		t.Fatal("expected double to be registered on Object")
	}
	result, err := registered.ApplyWithArguments([]object.Value{object.NewIntegerFromInt64(7)})
	if err != nil {
		t.Fatalf("unexpected error applying the registered method: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 7 {
		t.Fatal("expected the registered method to be the one passed as the method argument, not the receiver")
	}
	_ = behaviorClass
}

func TestFixedWidthBitwiseAndIsGenuineAnd(t *testing.T) {
	reg := intrinsics.Bootstrap()
	uint8Class := reg.Classes["UInt8"]
	selector := object.InternString("&")

	a := object.NewFixedWidthInteger(uint8Class, object.KindUInt8, 0b1100)
	b := object.NewFixedWidthInteger(uint8Class, object.KindUInt8, 0b1010)

	result, err := object.PerformWithArguments(selector, a, []object.Value{b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := result.(*object.FixedWidthInteger).Bits
	if got != 0b1000 {
		t.Fatalf("0b1100 & 0b1010 = %b, want 0b1000 (AND, not OR)", got)
	}
}
