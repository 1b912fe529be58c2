package analyzer

import (
	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/semantics"
)

// tryExpandMacro recognizes the handful of keyword selectors this
// dialect treats as compile-time macros rather than ordinary messages:
// if:then:, if:then:else:, while:do:, while:do:continueWith:. These must
// be analysis-time because their arguments are block bodies evaluated
// conditionally, not eagerly like an ordinary message send's arguments.
// Returns nil when selector does not name a recognized macro, signalling
// the caller to fall through to ordinary message-send analysis.
func (a *Analyzer) tryExpandMacro(selector string, n *ast.MessageSend, env *environment.Environment) semantics.Node {
	switch selector {
	case "if:then:":
		if n.Receiver != nil || len(n.Arguments) != 2 {
			return nil
		}
		cond := a.Analyze(n.Arguments[0], env)
		then := a.analyzeMacroBody(n.Arguments[1], env)
		return semantics.NewIf(n.Position(), nil, cond, then, nil)
	case "if:then:else:":
		if n.Receiver != nil || len(n.Arguments) != 3 {
			return nil
		}
		cond := a.Analyze(n.Arguments[0], env)
		then := a.analyzeMacroBody(n.Arguments[1], env)
		els := a.analyzeMacroBody(n.Arguments[2], env)
		return semantics.NewIf(n.Position(), nil, cond, then, els)
	case "while:do:":
		if n.Receiver != nil || len(n.Arguments) != 2 {
			return nil
		}
		cond := a.analyzeMacroBody(n.Arguments[0], env)
		body := a.analyzeMacroBody(n.Arguments[1], env)
		return semantics.NewWhile(n.Position(), nil, cond, body, nil)
	case "while:do:continueWith:":
		if n.Receiver != nil || len(n.Arguments) != 3 {
			return nil
		}
		cond := a.analyzeMacroBody(n.Arguments[0], env)
		body := a.analyzeMacroBody(n.Arguments[1], env)
		cont := a.analyzeMacroBody(n.Arguments[2], env)
		return semantics.NewWhile(n.Position(), nil, cond, body, cont)
	case "quote:":
		if n.Receiver != nil || len(n.Arguments) != 1 {
			return nil
		}
		return semantics.NewLiteralValue(n.Position(), nil, quoteValue(n.Arguments[0]))
	default:
		return nil
	}
}

// analyzeMacroBody analyzes a macro argument that was written as a
// zero-argument Block (the `[ ... ]` body of an if:/while: branch),
// unwrapping the block so the branch is analyzed as a plain expression
// rather than producing a nested closure value; a non-Block argument is
// analyzed as-is, letting a bare expression serve as a one-line branch.
func (a *Analyzer) analyzeMacroBody(n ast.Node, env *environment.Environment) semantics.Node {
	if block, ok := n.(*ast.Block); ok && len(block.Arguments) == 0 {
		child := environment.NewChild(env, environment.KindLexical, "")
		return a.Analyze(block.Body, child)
	}
	return a.Analyze(n, env)
}
