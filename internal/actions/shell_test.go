package actions

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// MockRunner is a mock implementation of the sandbox.Runner interface.
type MockRunner struct {
	RunCmdFunc func(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error)
}

func (m *MockRunner) RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
	if m.RunCmdFunc != nil {
		return m.RunCmdFunc(ctx, workDir, name, args, timeout)
	}
	return sandbox.Result{}, nil
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "ls -la", []string{"ls", "-la"}},
		{"double quotes", `grep "hello world" file.txt`, []string{"grep", "hello world", "file.txt"}},
		{"single quotes", `echo 'a b c'`, []string{"echo", "a b c"}},
		{"nested quotes", `echo "it's fine"`, []string{"echo", "it's fine"}},
		{"extra spaces", "ls    -la", []string{"ls", "-la"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCommand(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitCommand(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitCommand(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRunShellCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := &MockRunner{RunCmdFunc: func(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
		gotName, gotArgs = name, args
		return sandbox.Result{Stdout: "file1\nfile2\n"}, nil
	}}
	rec := newRunShellCommand(runner, "/work")

	out, err := rec.Handler(context.Background(), map[string]any{"command": `ls -la "my dir"`})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if gotName != "ls" || len(gotArgs) != 2 || gotArgs[1] != "my dir" {
		t.Errorf("ran %s %v", gotName, gotArgs)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if result["stdout"] != "file1\nfile2\n" {
		t.Errorf("stdout = %v", result["stdout"])
	}
}

func TestRunShellCommandFailure(t *testing.T) {
	runner := &MockRunner{RunCmdFunc: func(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
		return sandbox.Result{Code: 127, Stderr: "command not found"}, nil
	}}
	rec := newRunShellCommand(runner, "/work")

	_, err := rec.Handler(context.Background(), map[string]any{"command": "nope"})
	if err == nil || !strings.Contains(err.Error(), "command not found") {
		t.Errorf("err = %v, want stderr detail", err)
	}
}

func TestRunShellCommandTimeout(t *testing.T) {
	runner := &MockRunner{RunCmdFunc: func(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
		return sandbox.Result{TimedOut: true}, nil
	}}
	rec := newRunShellCommand(runner, "/work")

	_, err := rec.Handler(context.Background(), map[string]any{"command": "sleep 100"})
	if err == nil || err.Error() != "timeout" {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestExecuteScriptRejectsUnknownLanguage(t *testing.T) {
	rec := newExecuteScript(&MockRunner{}, t.TempDir())
	_, err := rec.Handler(context.Background(), map[string]any{"language": "cobol", "code": "DISPLAY 'HI'"})
	if err == nil || !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("err = %v, want unsupported language", err)
	}
}

func TestExecuteScriptRunsInterpreter(t *testing.T) {
	var gotName string
	runner := &MockRunner{RunCmdFunc: func(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
		gotName = name
		return sandbox.Result{Stdout: "42\n"}, nil
	}}
	rec := newExecuteScript(runner, t.TempDir())

	_, err := rec.Handler(context.Background(), map[string]any{"language": "python", "code": "print(42)"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if gotName != "python3" {
		t.Errorf("interpreter = %q, want python3", gotName)
	}
}
