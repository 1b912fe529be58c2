package environment_test

import (
	"testing"

	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/object"
)

func TestLookupWalksParentChain(t *testing.T) {
	root := environment.NewEmpty()
	sym := object.InternString("x")
	root.Define(sym, &environment.ValueBinding{Val: object.NewIntegerFromInt64(1)})

	child := environment.NewChild(root, environment.KindLexical, "child")
	grandchild := environment.NewChild(child, environment.KindLexical, "grandchild")

	binding, ok := grandchild.Lookup(sym)
	if !ok {
		t.Fatal("expected Lookup to find a binding defined on a distant ancestor")
	}
	if got := binding.Value().(*object.Integer).Value.Int64(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestLookupLocalDoesNotSeeParent(t *testing.T) {
	root := environment.NewEmpty()
	sym := object.InternString("x")
	root.Define(sym, &environment.ValueBinding{Val: object.NewIntegerFromInt64(1)})
	child := environment.NewChild(root, environment.KindLexical, "child")

	if _, ok := child.LookupLocal(sym); ok {
		t.Fatal("expected LookupLocal to ignore the parent chain")
	}
}

func TestShadowingPrefersNearestBinding(t *testing.T) {
	root := environment.NewEmpty()
	sym := object.InternString("x")
	root.Define(sym, &environment.ValueBinding{Val: object.NewIntegerFromInt64(1)})
	child := environment.NewChild(root, environment.KindLexical, "child")
	child.Define(sym, &environment.ValueBinding{Val: object.NewIntegerFromInt64(2)})

	binding, ok := child.Lookup(sym)
	if !ok {
		t.Fatal("expected a binding")
	}
	if got := binding.Value().(*object.Integer).Value.Int64(); got != 2 {
		t.Fatalf("got %d, want the shadowing value 2", got)
	}
}

func TestMutableBindingSet(t *testing.T) {
	binding := &environment.MutableBinding{Val: object.NewIntegerFromInt64(1)}
	binding.Set(object.NewIntegerFromInt64(5))
	if got := binding.Value().(*object.Integer).Value.Int64(); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}
