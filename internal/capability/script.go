package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// Generated capabilities are scripts on disk. The handler shells out through
// the sandbox runner, passing the arguments as one JSON argv and returning
// stdout.

const defaultScriptTimeout = 2 * time.Minute

func interpreterFor(language string) string {
	switch strings.ToLower(language) {
	case "python", "python3", "":
		return "python3"
	case "bash", "sh", "shell":
		return "bash"
	case "node", "javascript":
		return "node"
	default:
		return language
	}
}

// NewScriptHandler builds the executable handle for a stored script.
func NewScriptHandler(runner sandbox.Runner, workDir, language, sourcePath string) HandlerFunc {
	interpreter := interpreterFor(language)
	return func(ctx context.Context, args map[string]any) (string, error) {
		argJSON, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("failed to encode arguments: %w", err)
		}

		res, err := runner.RunCmd(ctx, workDir, interpreter, []string{sourcePath, string(argJSON)}, defaultScriptTimeout)
		if err != nil && res.Stderr == "" && res.Stdout == "" {
			return "", fmt.Errorf("script execution failed: %w", err)
		}
		if res.TimedOut {
			return "", fmt.Errorf("timeout")
		}
		if res.Code != 0 {
			return "", fmt.Errorf("script exited with code %d: %s", res.Code, strings.TrimSpace(res.Stderr))
		}
		return res.Stdout, nil
	}
}

// LoadStored rebuilds registry records for every persisted capability.
// Called once at startup; the watcher handles records added afterwards.
func LoadStored(ctx context.Context, store *Store, reg *Registry, runner sandbox.Runner, workDir string) (int, error) {
	records, err := store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, sr := range records {
		reg.Register(Record{
			Name:        sr.Name,
			Description: sr.Description,
			SchemaJSON:  sr.SchemaJSON,
			Handler:     NewScriptHandler(runner, workDir, sr.Language, sr.SourcePath),
			Origin:      OriginGenerated,
			Provenance: Provenance{
				Version:    sr.Version,
				CreatedAt:  sr.CreatedAt,
				CreatedBy:  sr.CreatedBy,
				SourcePath: sr.SourcePath,
			},
		})
	}
	return len(records), nil
}
