package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeSettings writes a settings file that disables history and colour so
// runs do not touch the user's home directory.
func writeSettings(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "monkey.yaml")
	content := "history_path: \"-\"\ncolor: never\n" + extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runMain(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	cfg := writeSettings(t, t.TempDir(), "")
	var stdout, stderr bytes.Buffer
	code := Main(append([]string{"--config", cfg}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEvalFlag(t *testing.T) {
	tests := []struct {
		expr   string
		stdout string
	}{
		{"1 + 2", "3\n"},
		{`"mon" + "key"`, "monkey\n"},
		{"[1, 2][1]", "2\n"},
		{`puts("hi")`, "hi\n"},
		{"if (false) { 1 }", ""},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			code, stdout, stderr := runMain(t, "", "-e", tt.expr)
			if code != 0 {
				t.Fatalf("exit %d, stderr: %s", code, stderr)
			}
			if stdout != tt.stdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.stdout)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 +", "error [P002]"},
		{"nope", "error [C001]: undefined variable nope"},
		{"1 / 0", "error [R001]: arithmetic error"},
		{`"a" @ 1`, "error [L001]"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			code, _, stderr := runMain(t, "", "-e", tt.expr)
			if code != 1 {
				t.Errorf("exit %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q should contain %q", stderr, tt.want)
			}
			if strings.Contains(stderr, "\x1b[") {
				t.Errorf("colour codes with color: never: %q", stderr)
			}
		})
	}
}

func TestRunFile(t *testing.T) {
	path := writeSource(t, "fib.mk", `
let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } };
puts(fib(10));
`)

	for _, args := range [][]string{{"run", path}, {path}} {
		code, stdout, stderr := runMain(t, "", args...)
		if code != 0 {
			t.Fatalf("%v: exit %d, stderr: %s", args, code, stderr)
		}
		if stdout != "55\n" {
			t.Errorf("%v: stdout = %q", args, stdout)
		}
	}
}

func TestRunFileErrorHasPosition(t *testing.T) {
	path := writeSource(t, "bad.mk", "let a = 1;\nlet b = c;\n")

	code, _, stderr := runMain(t, "", "run", path)
	if code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr, path+":2:9: error [C001]") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunMissingFile(t *testing.T) {
	code, _, stderr := runMain(t, "", "run", filepath.Join(t.TempDir(), "none.mk"))
	if code != 1 || !strings.Contains(stderr, "Error:") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestDisasm(t *testing.T) {
	path := writeSource(t, "prog.mk", "1 + 2")

	code, stdout, stderr := runMain(t, "", "disasm", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	want := "== main ==\n0000 CONST 0\n0003 CONST 1\n0006 ADD\n0007 POP\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestDisasmCompileError(t *testing.T) {
	path := writeSource(t, "prog.mk", "x")

	code, _, stderr := runMain(t, "", "disasm", path)
	if code != 1 || !strings.Contains(stderr, "error [C001]") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"unknown_flag", []string{"--bogus"}, 2, "unknown flag --bogus"},
		{"missing_expr", []string{"-e"}, 2, "-e requires an expression"},
		{"run_no_file", []string{"run"}, 2, "run takes one file"},
		{"disasm_two_files", []string{"disasm", "a", "b"}, 2, "disasm takes one file"},
		{"unknown_command", []string{"frobnicate"}, 2, `unknown command "frobnicate"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runMain(t, "", tt.args...)
			if code != tt.code {
				t.Errorf("exit %d, want %d", code, tt.code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q should contain %q", stderr, tt.want)
			}
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	for _, arg := range []string{"help", "-h", "--help"} {
		code, stdout, _ := runMain(t, "", arg)
		if code != 0 || !strings.Contains(stdout, "Usage:") {
			t.Errorf("%s: exit %d, stdout %q", arg, code, stdout)
		}
	}

	code, stdout, _ := runMain(t, "", "version")
	if code != 0 || !strings.HasPrefix(stdout, "monkey ") {
		t.Errorf("version: exit %d, stdout %q", code, stdout)
	}
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monkey.yaml")
	if err := os.WriteFile(path, []byte("stack_size: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	code := Main([]string{"--config=" + path, "-e", "1"}, strings.NewReader(""), &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "stack_size") {
		t.Errorf("exit %d, stderr %q", code, stderr.String())
	}
}

func TestSettingsLimitsApply(t *testing.T) {
	cfg := writeSettings(t, t.TempDir(), "max_frames: 4\n")
	var stdout, stderr bytes.Buffer
	code := Main([]string{"--config", cfg, "-e", "let f = fn(n) { if (n == 0) { 0 } else { f(n - 1) } }; f(10)"},
		strings.NewReader(""), &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "frame overflow") {
		t.Errorf("exit %d, stderr %q", code, stderr.String())
	}
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-vv", "--config", "x.toml", "-v", "run", "--", "-weird.mk"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.verbosity != 3 {
		t.Errorf("verbosity = %d, want 3", opts.verbosity)
	}
	if opts.configPath != "x.toml" {
		t.Errorf("config = %q", opts.configPath)
	}
	if len(opts.args) != 2 || opts.args[0] != "run" || opts.args[1] != "-weird.mk" {
		t.Errorf("args = %v", opts.args)
	}
}

func TestFmt(t *testing.T) {
	path := writeSource(t, "messy.mk", "let f=fn(x){x*2};puts(f(1))")

	code, stdout, stderr := runMain(t, "", "fmt", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	want := "let f = fn(x) {\n    x * 2\n};\n\nputs(f(1));\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}

	bad := writeSource(t, "bad.mk", "let = 1;")
	if code, _, stderr := runMain(t, "", "fmt", bad); code != 1 || !strings.Contains(stderr, "error [P001]") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}
