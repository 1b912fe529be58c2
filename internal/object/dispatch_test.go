package object_test

import (
	"math/big"
	"testing"

	"github.com/sysmel/bootstrap/internal/object"
)

func TestPerformWithArgumentsClassDirected(t *testing.T) {
	selector := object.InternString("answer")
	class := object.NewClass("Widget")
	class.AddMethod(selector, &object.Method{
		Selector: selector,
		Primitive: func(args []object.Value) (object.Value, error) {
			return object.NewIntegerFromInt64(42), nil
		},
	})
	instance := object.NewInstance(class)

	result, err := object.PerformWithArguments(selector, instance, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	integer, ok := result.(*object.Integer)
	if !ok || integer.Value.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestPerformWithArgumentsWalksSuperclass(t *testing.T) {
	selector := object.InternString("greet")
	base := object.NewClass("Base")
	base.AddMethod(selector, &object.Method{
		Selector: selector,
		Primitive: func(args []object.Value) (object.Value, error) {
			return object.NewString("hi"), nil
		},
	})
	derived := object.NewClass("Derived")
	derived.Superclass = base
	instance := object.NewInstance(derived)

	result, err := object.PerformWithArguments(selector, instance, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := result.(*object.String); !ok || string(s.Runes) != "hi" {
		t.Fatalf("expected \"hi\", got %v", result)
	}
}

func TestPerformWithArgumentsMissingSelector(t *testing.T) {
	class := object.NewClass("Empty")
	instance := object.NewInstance(class)

	_, err := object.PerformWithArguments(object.InternString("nope"), instance, nil)
	if err == nil {
		t.Fatal("expected an error for a missing selector")
	}
	want := "Failed to find method `nope` in `Empty`"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestSymbolInterningIsStable(t *testing.T) {
	a := object.InternString("foo")
	b := object.InternString("foo")
	if a != b {
		t.Fatal("expected InternString to return the same pointer for equal strings")
	}
	if object.InternString("bar") == a {
		t.Fatal("expected distinct strings to intern to distinct symbols")
	}
}
