package scanner_test

import (
	"testing"

	"github.com/sysmel/bootstrap/internal/scanner"
	"github.com/sysmel/bootstrap/internal/source"
	"github.com/sysmel/bootstrap/internal/token"
)

func TestScanIntegerAndOperator(t *testing.T) {
	buf := source.NewBuffer("", "t", "sysmel", "3 + 4")
	tokens := scanner.Scan(buf)
	for _, tok := range tokens {
		if tok.Kind == token.Error {
			t.Fatalf("unexpected error token: %s", tok.ErrorMessage)
		}
	}
	if tokens[0].Kind != token.Nat {
		t.Fatalf("expected the first token to be Nat, got %s", tokens[0].Kind)
	}
}

func TestScanUnterminatedBlockCommentSpansToEOF(t *testing.T) {
	text := "1 + 2 #* comment never closes"
	buf := source.NewBuffer("", "t", "sysmel", text)
	tokens := scanner.Scan(buf)

	var errTok *token.Token
	for i := range tokens {
		if tokens[i].Kind == token.Error {
			errTok = &tokens[i]
		}
	}
	if errTok == nil {
		t.Fatal("expected an Error token for the unterminated comment")
	}
	if errTok.Position.EndIndex != len(text) {
		t.Fatalf("expected the error span to reach end of source, got end index %d of %d", errTok.Position.EndIndex, len(text))
	}
}

func TestScanLineCommentIsIgnored(t *testing.T) {
	buf := source.NewBuffer("", "t", "sysmel", "## a whole line comment\n42")
	tokens := scanner.Scan(buf)
	for _, tok := range tokens {
		if tok.Kind == token.Error {
			t.Fatalf("unexpected error token: %s", tok.ErrorMessage)
		}
	}
	if tokens[0].Kind != token.Nat || tokens[0].Text() != "42" {
		t.Fatalf("expected the comment to be skipped and 42 to be the first token, got %v", tokens[0])
	}
}

func TestScanRadixPrefixedInteger(t *testing.T) {
	buf := source.NewBuffer("", "t", "sysmel", "16rFF")
	tokens := scanner.Scan(buf)
	found := false
	for _, tok := range tokens {
		if tok.Kind == token.Nat {
			found = true
		}
		if tok.Kind == token.Error {
			t.Fatalf("unexpected error token scanning a radix-prefixed integer: %s", tok.ErrorMessage)
		}
	}
	if !found {
		t.Fatal("expected a Nat token")
	}
}

func TestScanUnterminatedStringLiteral(t *testing.T) {
	buf := source.NewBuffer("", "t", "sysmel", `"never closed`)
	tokens := scanner.Scan(buf)
	if tokens[0].Kind != token.Error {
		t.Fatalf("expected an Error token for the unterminated string, got %s", tokens[0].Kind)
	}
}
