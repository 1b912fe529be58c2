package diagnostics_test

import (
	"errors"
	"testing"

	"github.com/sysmel/bootstrap/internal/diagnostics"
	"github.com/sysmel/bootstrap/internal/source"
)

func position() source.Position {
	buf := source.NewBuffer("src/", "foo.sysmel", "sysmel", "abc")
	return source.Position{Buffer: buf, StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 4}
}

func TestLineFormatHasNoSeparatorBetweenDirAndName(t *testing.T) {
	err := diagnostics.New(diagnostics.KindSemantic, position(), "boom")
	want := "src/foo.sysmel:1.1-1.4: boom"
	if got := err.Line(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := diagnostics.Wrap(diagnostics.KindDispatch, position(), cause, "dispatch failed")
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestFaultRaiseRecovers(t *testing.T) {
	defer func() {
		r := recover()
		fault, ok := r.(diagnostics.Fault)
		if !ok {
			t.Fatalf("expected a recovered diagnostics.Fault, got %T", r)
		}
		if fault.String() != "bootstrap table corrupt: Widget" {
			t.Fatalf("got %q", fault.String())
		}
	}()
	diagnostics.Raise("bootstrap table corrupt: %s", "Widget")
}
