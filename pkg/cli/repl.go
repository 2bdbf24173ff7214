package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/funvibe/monkey/internal/backend"
	"github.com/funvibe/monkey/internal/config"
	"github.com/funvibe/monkey/internal/history"
	"github.com/funvibe/monkey/internal/object"
)

const defaultHistoryShown = 20

type repl struct {
	settings *config.Settings
	session  *backend.Session
	history  *history.Store
	out      io.Writer
	errOut   io.Writer
	color    bool
}

// runREPL reads one input per line until EOF or :quit. The prompt is
// only printed when both ends are terminals.
func runREPL(settings *config.Settings, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx := context.Background()
	interactive := isTerminal(stdin) && isTerminal(stdout)

	r := &repl{
		settings: settings,
		session:  backend.NewSession(settings),
		out:      stdout,
		errOut:   stderr,
		color:    colorEnabled(settings, stderr),
	}
	r.session.SetOutput(stdout)

	if path := settings.ResolveHistoryPath(); path != "" {
		store, err := history.Open(ctx, path)
		if err != nil {
			log.Warningf("history disabled: %s", err)
		} else {
			r.history = store
			defer r.closeHistory(ctx)
		}
	}
	log.Info("repl started", "session", r.session.ID(), "interactive", interactive)

	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			fmt.Fprint(stdout, settings.Prompt)
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if r.command(ctx, line) {
				break
			}
			continue
		}
		r.eval(ctx, line)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (r *repl) eval(ctx context.Context, line string) {
	result := execute(r.session, line, "")

	outcome := history.OutcomeOK
	if result.Failed() {
		outcome = history.OutcomeError
		printErrors(r.errOut, result.Errors, r.color)
	} else if obj, ok := result.Result.(object.Object); ok {
		fmt.Fprintln(r.out, obj.Inspect())
	}

	if r.history != nil {
		if err := r.history.Append(ctx, r.session.ID(), line, outcome); err != nil {
			log.Warningf("%s", err)
		}
	}
}

// command handles a REPL command and reports whether the REPL should exit.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true
	case ":history":
		n := defaultHistoryShown
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(r.errOut, "Error: bad count %q\n", fields[1])
				return false
			}
			n = v
		}
		r.showHistory(ctx, n)
	case ":help":
		fmt.Fprint(r.out, usage)
	default:
		fmt.Fprintf(r.errOut, "Error: unknown command %s\n", fields[0])
	}
	return false
}

func (r *repl) showHistory(ctx context.Context, n int) {
	if r.history == nil {
		fmt.Fprintln(r.errOut, "history is disabled")
		return
	}
	entries, err := r.history.Recent(ctx, n)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %s\n", err)
		return
	}
	for _, e := range entries {
		mark := " "
		if e.Outcome == history.OutcomeError {
			mark = "!"
		}
		fmt.Fprintf(r.out, "%5d %s %s\n", e.ID, mark, e.Input)
	}
}

func (r *repl) closeHistory(ctx context.Context) {
	if _, err := r.history.Trim(ctx, r.settings.HistoryLimit); err != nil {
		log.Warningf("%s", err)
	}
	if err := r.history.Close(); err != nil {
		log.Warningf("%s", err)
	}
}
