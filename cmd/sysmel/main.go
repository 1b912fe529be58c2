// Command sysmel is the CLI driver (component K): flag handling, REPL
// loop, and file evaluation all live here, thin wrappers around the
// scan -> parse -> analyze -> evaluate pipeline in internal/{scanner,
// parser,analyzer,evaluator}. The interpreter core itself never touches
// a filesystem or a terminal; this package is the one place that does.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/sysmel/bootstrap/internal/analyzer"
	"github.com/sysmel/bootstrap/internal/ast"
	"github.com/sysmel/bootstrap/internal/config"
	"github.com/sysmel/bootstrap/internal/diagnostics"
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/evaluator"
	"github.com/sysmel/bootstrap/internal/intrinsics"
	"github.com/sysmel/bootstrap/internal/object"
	"github.com/sysmel/bootstrap/internal/parser"
	"github.com/sysmel/bootstrap/internal/scanner"
	"github.com/sysmel/bootstrap/internal/source"
)

const version = "0.1.0"

var log = logrus.New()

func main() {
	// Mirrors the teacher's top-level recover(): an internal invariant
	// violation (diagnostics.Fault) is fatal but should still print a
	// one-line diagnostic instead of a raw Go panic trace, unless DEBUG=1
	// asks for the trace.
	defer func() {
		if r := recover(); r != nil {
			if fault, ok := r.(diagnostics.Fault); ok {
				fmt.Fprintf(os.Stderr, "Internal error: %s\n", fault.String())
				os.Exit(1)
			}
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	configureLogging(args)

	switch {
	case containsFlag(args, "-h") || containsFlag(args, "--help"):
		printHelp()
	case containsFlag(args, "-v") || containsFlag(args, "--version"):
		fmt.Println("sysmel " + version)
	case containsFlag(args, "-ep"):
		os.Exit(runInline(inlineArgAfter(args, "-ep")))
	default:
		files := positionalArgs(args)
		if len(files) > 0 {
			os.Exit(runFiles(files))
		}
		os.Exit(runRepl())
	}
}

func configureLogging(args []string) {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if containsFlag(args, "-debug") || os.Getenv("SYSMEL_LOG") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func inlineArgAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func positionalArgs(args []string) []string {
	var out []string
	skipNext := false
	for _, a := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if a == "-ep" {
			skipNext = true
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func printHelp() {
	fmt.Println(`sysmel - a bootstrap interpreter for a Smalltalk-flavoured, dependently-typed expression language

Usage:
  sysmel [-h | --help]       print this help and exit
  sysmel [-v | --version]    print the version and exit
  sysmel -ep <text>          evaluate text as a one-line program
  sysmel <file> [file...]    evaluate one or more source files
  sysmel                     start an interactive REPL`)
}

// runInline evaluates text as a single buffer named "cli", matching the
// one-line `-ep` scenarios in the spec's end-to-end table.
func runInline(text string) int {
	correlation := uuid.New()
	buf := source.NewBuffer("", "cli", "sysmel", text)
	reg := intrinsics.Bootstrap()
	env := environment.NewChild(reg.Env, environment.KindModule, "cli")
	log.WithField("invocation", correlation.String()).Debug("evaluating -ep buffer")

	result, err := evalBuffer(buf, env)
	if err != nil {
		reportError(err)
		return 1
	}
	fmt.Println(result.PrintString())
	return 0
}

func runFiles(paths []string) int {
	reg := intrinsics.Bootstrap()
	env := environment.NewChild(reg.Env, environment.KindModule, "main")
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			return 1
		}
		buf := source.NewBuffer("", path, "sysmel", string(text))
		result, err := evalBuffer(buf, env)
		if err != nil {
			reportError(err)
			return 1
		}
		fmt.Println(result.PrintString())
	}
	return 0
}

// runRepl reads one line at a time from stdin against one persistent
// module environment, printing either the result or the diagnostic for
// that line, until EOF.
func runRepl() int {
	sessionCfg, err := config.LoadSessionConfig(config.SessionConfigFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		sessionCfg = config.DefaultSessionConfig()
	}

	reg := intrinsics.Bootstrap()
	env := environment.NewChild(reg.Env, environment.KindModule, "repl")
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	scannerReader := bufio.NewScanner(os.Stdin)
	lineNumber := 0
	for {
		if interactive {
			fmt.Print(sessionCfg.Prompt)
		}
		if !scannerReader.Scan() {
			break
		}
		lineNumber++
		line := scannerReader.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf := source.NewBuffer("", fmt.Sprintf("repl:%d", lineNumber), "sysmel", line)
		result, err := evalBuffer(buf, env)
		if err != nil {
			reportError(err)
			continue
		}
		fmt.Println(result.PrintString())
	}
	return 0
}

// evalBuffer drives the full pipeline: scan, parse, analyze, evaluate.
// A scanner/parser failure is reported as the first collected
// ast.SyntaxError rather than a generic message, so the
// unterminated-block-comment scenario still reports a span covering
// from the comment opener to end of source.
func evalBuffer(buf *source.Buffer, env *environment.Environment) (object.Value, error) {
	tokens := scanner.Scan(buf)
	tree := parser.Parse(buf, tokens)
	if syntaxErrors := ast.CollectSyntaxErrors(tree); len(syntaxErrors) > 0 {
		first := syntaxErrors[0]
		return nil, diagnostics.New(diagnostics.KindSemantic, first.Position(), first.ErrorMessage)
	}
	semantic := analyzer.New().Analyze(tree, env)
	return evaluator.New().Eval(semantic, env)
}

func reportError(err error) {
	if pe, ok := err.(*diagnostics.PositionedError); ok {
		fmt.Fprintln(os.Stderr, pe.Line())
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}
