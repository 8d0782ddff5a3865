package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/otto/internal/capability"
	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

const shellTimeout = 60 * time.Second

func newRunShellCommand(runner sandbox.Runner, workDir string) capability.Record {
	return builtin(
		"run_shell_command",
		"Runs a shell command in the working directory and returns its output.",
		`{"type":"object","properties":{"command":{"type":"string","description":"The command line to run, e.g. \"ls -la\""}},"required":["command"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			command, ok := args["command"].(string)
			if !ok || strings.TrimSpace(command) == "" {
				return "", fmt.Errorf("command must be a non-empty string")
			}

			parts := splitCommand(command)
			if len(parts) == 0 {
				return "", fmt.Errorf("command must be a non-empty string")
			}

			result, err := runner.RunCmd(ctx, workDir, parts[0], parts[1:], shellTimeout)
			if err != nil {
				return "", err
			}
			return renderResult(command, result)
		},
	)
}

func newExecuteScript(runner sandbox.Runner, workDir string) capability.Record {
	return builtin(
		"execute_script",
		"Writes a script to a temporary file and executes it in the sandbox.",
		`{"type":"object","properties":{"language":{"type":"string","enum":["python","bash"],"description":"Script language"},"code":{"type":"string","description":"The script source"}},"required":["language","code"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			language, ok := args["language"].(string)
			if !ok {
				return "", fmt.Errorf("language must be a string")
			}
			code, ok := args["code"].(string)
			if !ok || code == "" {
				return "", fmt.Errorf("code must be a non-empty string")
			}

			var interpreter, ext string
			switch language {
			case "python":
				interpreter, ext = "python3", ".py"
			case "bash":
				interpreter, ext = "bash", ".sh"
			default:
				return "", fmt.Errorf("unsupported language: %s", language)
			}

			scriptPath := filepath.Join(workDir, ".otto-scratch-"+uuid.NewString()[:8]+ext)
			if err := os.WriteFile(scriptPath, []byte(code), 0755); err != nil {
				return "", fmt.Errorf("failed to write script: %w", err)
			}
			defer os.Remove(scriptPath)

			result, err := runner.RunCmd(ctx, workDir, interpreter, []string{scriptPath}, shellTimeout)
			if err != nil {
				return "", err
			}
			return renderResult(language+" script", result)
		},
	)
}

func renderResult(cmd string, result sandbox.Result) (string, error) {
	if result.TimedOut {
		return "", fmt.Errorf("timeout")
	}
	if result.Code != 0 {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(result.Stdout)
		}
		return "", fmt.Errorf("%s exited with code %d: %s", cmd, result.Code, detail)
	}

	out, _ := json.Marshal(map[string]any{
		"stdout": truncate(result.Stdout, 4000),
		"stderr": truncate(result.Stderr, 1000),
	})
	return string(out), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}

// splitCommand splits a command line into fields, honoring single and
// double quotes.
func splitCommand(command string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(command); i++ {
		char := command[i]

		if char == '"' || char == '\'' {
			if !inQuotes {
				inQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else {
				current.WriteByte(char)
			}
		} else if char == ' ' && !inQuotes {
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		} else {
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}
