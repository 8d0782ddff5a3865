package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndReadFile(t *testing.T) {
	workDir := t.TempDir()
	write := newWriteFile(workDir)
	read := newReadFile(workDir)
	ctx := context.Background()

	if _, err := write.Handler(ctx, map[string]any{"path": "out/report.md", "content": "# Report\n"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(workDir, "out", "report.md"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "# Report\n" {
		t.Errorf("content = %q", data)
	}

	out, err := read.Handler(ctx, map[string]any{"path": "out/report.md"})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "# Report\n" {
		t.Errorf("read back %q", out)
	}
}

func TestFileToolsRejectEscapes(t *testing.T) {
	workDir := t.TempDir()
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "a/../../outside.txt"} {
		if _, err := newWriteFile(workDir).Handler(ctx, map[string]any{"path": path, "content": "x"}); err == nil {
			t.Errorf("write accepted escaping path %q", path)
		}
		if _, err := newReadFile(workDir).Handler(ctx, map[string]any{"path": path}); err == nil {
			t.Errorf("read accepted escaping path %q", path)
		}
	}
}

func TestResolveInWorkDir(t *testing.T) {
	workDir := t.TempDir()

	got, err := resolveInWorkDir(workDir, "sub/file.txt")
	if err != nil {
		t.Fatalf("resolveInWorkDir failed: %v", err)
	}
	if !strings.HasPrefix(got, workDir) {
		t.Errorf("resolved path %q escapes %q", got, workDir)
	}

	// "." resolves to the workdir itself.
	got, err = resolveInWorkDir(workDir, ".")
	if err != nil {
		t.Fatalf("resolveInWorkDir(.) failed: %v", err)
	}
	if got != filepath.Clean(workDir) {
		t.Errorf("resolved %q, want workdir root", got)
	}
}
