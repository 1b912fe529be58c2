package evaluator_test

import (
	"testing"

	"github.com/sysmel/bootstrap/internal/analyzer"
	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/evaluator"
	"github.com/sysmel/bootstrap/internal/intrinsics"
	"github.com/sysmel/bootstrap/internal/object"
	"github.com/sysmel/bootstrap/internal/parser"
	"github.com/sysmel/bootstrap/internal/scanner"
	"github.com/sysmel/bootstrap/internal/source"
)

func run(t *testing.T, text string) (object.Value, error) {
	t.Helper()
	buf := source.NewBuffer("", "test", "sysmel", text)
	tokens := scanner.Scan(buf)
	tree := parser.Parse(buf, tokens)
	if errs := ast.CollectSyntaxErrors(tree); len(errs) > 0 {
		t.Fatalf("unexpected syntax error: %s", errs[0].ErrorMessage)
	}
	reg := intrinsics.Bootstrap()
	env := environment.NewChild(reg.Env, environment.KindModule, "test")
	semantic := analyzer.New().Analyze(tree, env)
	return evaluator.New().Eval(semantic, env)
}

func TestEvalIntegerArithmetic(t *testing.T) {
	result, err := run(t, "3 + 4 * 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	integer, ok := result.(*object.Integer)
	if !ok {
		t.Fatalf("expected an Integer, got %T", result)
	}
	if integer.Value.Int64() != 14 {
		t.Fatalf("got %d, want 14 (left-fold: (3 + 4) * 2)", integer.Value.Int64())
	}
}

func TestEvalAssignmentToFreshIdentifierAllocates(t *testing.T) {
	result, err := run(t, "x := 10. x + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 11 {
		t.Fatalf("got %v, want 11", result)
	}
}

func TestEvalReassignmentStores(t *testing.T) {
	result, err := run(t, "x := 1. x := x + 1. x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 2 {
		t.Fatalf("got %v, want 2", result)
	}
}

func TestEvalIfThenElse(t *testing.T) {
	result, err := run(t, "if: true then: [1] else: [2]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 1 {
		t.Fatalf("got %v, want 1 (the then-branch)", result)
	}

	result, err = run(t, "if: false then: [1] else: [2]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 2 {
		t.Fatalf("got %v, want 2 (the else-branch)", result)
	}
}

func TestEvalWhileDoCounts(t *testing.T) {
	result, err := run(t, "n := 0. while: [n < 5] do: [n := n + 1]. n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 5 {
		t.Fatalf("got %v, want 5", result)
	}
}

func TestEvalFloorDivisionAndModulo(t *testing.T) {
	result, err := run(t, "-7 // 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != -4 {
		t.Fatalf("got %v, want -4 (floored, not truncated)", result)
	}

	result, err = run(t, "-7 \\\\ 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*object.Integer).Value.Int64() != 1 {
		t.Fatalf("got %v, want 1 (sign follows the divisor)", result)
	}
}

func TestEvalUndeclaredIdentifierIsAnError(t *testing.T) {
	_, err := run(t, "thisNameIsNotBoundAnywhere")
	if err == nil {
		t.Fatal("expected an error for an undeclared identifier")
	}
}
