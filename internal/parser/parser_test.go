package parser_test

import (
	"testing"

	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/parser"
	"github.com/sysmel/bootstrap/internal/scanner"
	"github.com/sysmel/bootstrap/internal/source"
)

func parse(t *testing.T, text string) ast.Node {
	t.Helper()
	buf := source.NewBuffer("", "t", "sysmel", text)
	tokens := scanner.Scan(buf)
	return parser.Parse(buf, tokens)
}

func TestParseKeywordMessageSend(t *testing.T) {
	tree := parse(t, "dict at: 1 put: 2")
	send, ok := tree.(*ast.MessageSend)
	if !ok {
		t.Fatalf("expected a MessageSend, got %T", tree)
	}
	if len(send.Arguments) != 2 {
		t.Fatalf("expected 2 keyword arguments, got %d", len(send.Arguments))
	}
}

func TestParseBinaryExpressionSequenceIsFlat(t *testing.T) {
	tree := parse(t, "1 + 2 + 3")
	seq, ok := tree.(*ast.BinaryExpressionSequence)
	if !ok {
		t.Fatalf("expected a flat BinaryExpressionSequence before folding, got %T", tree)
	}
	if len(seq.Operations) != 2 {
		t.Fatalf("expected 2 binary operations, got %d", len(seq.Operations))
	}
}

func TestParseTupleLiteral(t *testing.T) {
	tree := parse(t, "(1, 2, 3)")
	tuple, ok := tree.(*ast.Tuple)
	if !ok {
		t.Fatalf("expected a Tuple, got %T", tree)
	}
	if len(tuple.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(tuple.Elements))
	}
}

func TestParseUnterminatedBlockProducesSyntaxError(t *testing.T) {
	tree := parse(t, "[1 + 2")
	errs := ast.CollectSyntaxErrors(tree)
	if len(errs) == 0 {
		t.Fatal("expected at least one SyntaxError for an unterminated block")
	}
	if errs[0].Position().EndIndex != len("[1 + 2") {
		t.Fatalf("expected the syntax error span to reach end of source, got end index %d", errs[0].Position().EndIndex)
	}
}
