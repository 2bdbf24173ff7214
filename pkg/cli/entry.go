// Package cli implements the monkey command: REPL, script runner,
// one-shot evaluation and disassembler.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/funvibe/monkey/internal/ast"
	"github.com/funvibe/monkey/internal/backend"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/diagnostics"
	"github.com/funvibe/monkey/internal/lexer"
	"github.com/funvibe/monkey/internal/object"
	"github.com/funvibe/monkey/internal/parser"
	"github.com/funvibe/monkey/internal/pipeline"
	"github.com/funvibe/monkey/internal/prettyprinter"
)

var log = commonlog.GetLogger("monkey.cli")

const usage = `Usage:
  monkey [flags]                 start the REPL
  monkey [flags] run FILE        run a source file
  monkey [flags] FILE.mk         same as run
  monkey [flags] -e EXPR         evaluate EXPR and print the result
  monkey [flags] disasm FILE     print the bytecode for FILE
  monkey fmt FILE                print FILE in canonical form
  monkey help                    show this message
  monkey version                 print the version

Flags:
  --config PATH   settings file (default: nearest monkey.yaml, monkey.yml or monkey.toml)
  -v              more log output; repeat for debug (-vv)

REPL commands:
  :history [N]    show the last N inputs
  :quit           leave the REPL
`

// Run is the entry point used by cmd/monkey.
func Run() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	verbosity  int
	expr       string
	hasExpr    bool
	args       []string
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			opts.args = append(opts.args, args[i+1:]...)
			return opts, nil
		case arg == "--config" || arg == "-config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			opts.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "-e":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-e requires an expression")
			}
			i++
			opts.expr = args[i]
			opts.hasExpr = true
		case isVerboseFlag(arg):
			opts.verbosity += len(arg) - 1
		case arg == "-h" || arg == "-help" || arg == "--help":
			opts.args = append(opts.args, "help")
		case arg == "-version" || arg == "--version":
			opts.args = append(opts.args, "version")
		case strings.HasPrefix(arg, "-") && arg != "-":
			return nil, fmt.Errorf("unknown flag %s", arg)
		default:
			opts.args = append(opts.args, arg)
		}
	}
	return opts, nil
}

// isVerboseFlag matches -v, -vv, -vvv...
func isVerboseFlag(arg string) bool {
	return len(arg) >= 2 && arg[0] == '-' && strings.Trim(arg[1:], "v") == ""
}

// Main runs the command with explicit streams and returns the exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n\n%s", err, usage)
		return 2
	}

	settings, err := loadSettings(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	settings.Verbosity += opts.verbosity
	configureLogging(settings.Verbosity)
	if settings.Path != "" {
		log.Debugf("loaded settings from %s", settings.Path)
	}

	color := colorEnabled(settings, stderr)

	if opts.hasExpr {
		return runEval(opts.expr, settings, stdout, stderr, color)
	}

	if len(opts.args) == 0 {
		return runREPL(settings, stdin, stdout, stderr)
	}

	cmd, rest := opts.args[0], opts.args[1:]
	switch cmd {
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "version":
		fmt.Fprintln(stdout, "monkey "+config.Version)
		return 0
	case "run":
		if len(rest) != 1 {
			fmt.Fprintf(stderr, "Error: run takes one file\n\n%s", usage)
			return 2
		}
		return runFile(rest[0], settings, stdout, stderr, color)
	case "disasm":
		if len(rest) != 1 {
			fmt.Fprintf(stderr, "Error: disasm takes one file\n\n%s", usage)
			return 2
		}
		return disasmFile(rest[0], settings, stdout, stderr, color)
	case "fmt":
		if len(rest) != 1 {
			fmt.Fprintf(stderr, "Error: fmt takes one file\n\n%s", usage)
			return 2
		}
		return formatFile(rest[0], stdout, stderr, color)
	}

	if isSourceFile(cmd) && len(rest) == 0 {
		return runFile(cmd, settings, stdout, stderr, color)
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s", cmd, usage)
	return 2
}

// loadSettings reads the explicit settings file, or the nearest one above
// the working directory, or falls back to defaults.
func loadSettings(path string) (*config.Settings, error) {
	if path != "" {
		return config.LoadSettings(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultSettings(), nil
	}
	found, err := config.FindSettings(wd)
	if err != nil || found == "" {
		return config.DefaultSettings(), nil
	}
	return config.LoadSettings(found)
}

// configureLogging maps verbosity 0 to errors only, 1 to info and 2 or
// more to debug.
func configureLogging(verbosity int) {
	level := -2
	switch {
	case verbosity >= 2:
		level = 2
	case verbosity == 1:
		level = 1
	}
	commonlog.Configure(level, nil)
}

// isSourceFile checks if a file has a recognized source extension
func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorEnabled(settings *config.Settings, w io.Writer) bool {
	switch settings.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return isTerminal(w) && os.Getenv("NO_COLOR") == ""
}

func execute(session *backend.Session, source, filePath string) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = filePath
	return pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		backend.NewExecutionProcessor(session),
	).Run(ctx)
}

func printErrors(w io.Writer, errs []*diagnostics.DiagnosticError, color bool) {
	for _, err := range errs {
		msg := err.Error()
		if color {
			msg = "\x1b[31m" + msg + "\x1b[0m"
		}
		fmt.Fprintln(w, msg)
	}
}

func runFile(path string, settings *config.Settings, stdout, stderr io.Writer, color bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}

	session := backend.NewSession(settings)
	session.SetOutput(stdout)
	log.Debug("running file", "path", path, "session", session.ID())

	ctx := execute(session, string(source), path)
	if ctx.Failed() {
		printErrors(stderr, ctx.Errors, color)
		return 1
	}
	return 0
}

func runEval(expr string, settings *config.Settings, stdout, stderr io.Writer, color bool) int {
	session := backend.NewSession(settings)
	session.SetOutput(stdout)

	ctx := execute(session, expr, "")
	if ctx.Failed() {
		printErrors(stderr, ctx.Errors, color)
		return 1
	}
	if result, ok := ctx.Result.(object.Object); ok && result != object.NULL {
		fmt.Fprintln(stdout, result.Inspect())
	}
	return 0
}

// parseFile lexes and parses path, printing diagnostics on failure.
func parseFile(path string, stderr io.Writer, color bool) (*ast.Program, bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return nil, false
	}

	ctx := pipeline.NewPipelineContext(string(source))
	ctx.FilePath = path
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if ctx.Failed() {
		printErrors(stderr, ctx.Errors, color)
		return nil, false
	}
	return ctx.AstRoot.(*ast.Program), true
}

func formatFile(path string, stdout, stderr io.Writer, color bool) int {
	program, ok := parseFile(path, stderr, color)
	if !ok {
		return 1
	}
	fmt.Fprint(stdout, prettyprinter.Format(program))
	return 0
}

func disasmFile(path string, settings *config.Settings, stdout, stderr io.Writer, color bool) int {
	program, ok := parseFile(path, stderr, color)
	if !ok {
		return 1
	}

	listing, err := backend.NewSession(settings).Disassemble(program)
	if err != nil {
		diag := backend.ToDiagnostic(err)
		diag.File = path
		printErrors(stderr, []*diagnostics.DiagnosticError{diag}, color)
		return 1
	}
	fmt.Fprint(stdout, listing)
	return 0
}
