package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

// resolveInWorkDir joins path under workDir and rejects escapes.
func resolveInWorkDir(workDir, path string) (string, error) {
	full := filepath.Clean(filepath.Join(workDir, path))
	root := filepath.Clean(workDir)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the working directory", path)
	}
	return full, nil
}

func newWriteFile(workDir string) capability.Record {
	return builtin(
		"write_file",
		"Writes content to a file. Creates the file if it doesn't exist, overwrites if it does.",
		`{"type":"object","properties":{"path":{"type":"string","description":"Path to the file relative to the working directory"},"content":{"type":"string","description":"Content to write to the file"}},"required":["path","content"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}
			content, ok := args["content"].(string)
			if !ok {
				return "", fmt.Errorf("content must be a string")
			}

			full, err := resolveInWorkDir(workDir, path)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
				return "", fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}

			result, _ := json.Marshal(map[string]any{"path": path, "bytes": len(content)})
			return string(result), nil
		},
	)
}

const maxReadFileBytes = 64 * 1024

func newReadFile(workDir string) capability.Record {
	return builtin(
		"read_file",
		"Reads a text file from the working directory.",
		`{"type":"object","properties":{"path":{"type":"string","description":"Path to the file relative to the working directory"}},"required":["path"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			path, ok := args["path"].(string)
			if !ok {
				return "", fmt.Errorf("path must be a string")
			}

			full, err := resolveInWorkDir(workDir, path)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			if len(data) > maxReadFileBytes {
				data = data[:maxReadFileBytes]
			}
			return string(data), nil
		},
	)
}
