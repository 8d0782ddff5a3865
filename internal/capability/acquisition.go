package capability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// SynthesisRequest describes the capability the run is missing.
type SynthesisRequest struct {
	Name      string // capability name the classifier flagged as missing
	Reason    string // raw failure detail that triggered acquisition
	Discovery string // output of the discovery step
}

// Synthesis is a generated capability draft produced by the reasoning
// gateway.
type Synthesis struct {
	Name        string
	Description string
	SchemaJSON  string
	Language    string
	Code        string
}

// Synthesizer generates a capability draft from a synthesis request.
// Implemented by the oracle clients.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (Synthesis, error)
}

// Flow drives the acquisition sub-sequence: discover an implementation
// strategy, synthesize a capability, persist it, register it. Any step
// failing aborts with an AcquisitionError.
type Flow struct {
	registry   *Registry
	store      *Store
	synth      Synthesizer
	discover   HandlerFunc // discovery capability, e.g. a search handler
	runner     sandbox.Runner
	scriptsDir string
	workDir    string
	runID      string
}

// NewFlow wires an acquisition flow. discover may be nil when no discovery
// capability is available; synthesis then proceeds without a strategy hint.
func NewFlow(reg *Registry, store *Store, synth Synthesizer, discover HandlerFunc, runner sandbox.Runner, scriptsDir, workDir, runID string) *Flow {
	return &Flow{
		registry:   reg,
		store:      store,
		synth:      synth,
		discover:   discover,
		runner:     runner,
		scriptsDir: scriptsDir,
		workDir:    workDir,
		runID:      runID,
	}
}

// Acquire extends the registry with a freshly synthesized capability.
// Implements agent.Acquirer.
func (f *Flow) Acquire(ctx context.Context, name, reason string) error {
	// (a) discovery: find an implementation strategy
	var discovery string
	if f.discover != nil {
		out, err := f.discover(ctx, map[string]any{
			"query": fmt.Sprintf("how to implement a %q capability: %s", name, reason),
		})
		if err != nil {
			return &AcquisitionError{Capability: name, Step: "discover", Err: err}
		}
		discovery = out
	}

	// (b) synthesize via the reasoning gateway
	syn, err := f.synth.Synthesize(ctx, SynthesisRequest{Name: name, Reason: reason, Discovery: discovery})
	if err != nil {
		return &AcquisitionError{Capability: name, Step: "synthesize", Err: err}
	}
	if syn.Code == "" {
		return &AcquisitionError{Capability: name, Step: "synthesize", Err: fmt.Errorf("empty capability body")}
	}
	if syn.Name == "" {
		syn.Name = name
	}

	// (c) persist to durable storage
	sourcePath, err := f.writeScript(syn)
	if err != nil {
		return &AcquisitionError{Capability: name, Step: "persist", Err: err}
	}
	stored := StoredRecord{
		Name:        syn.Name,
		Description: syn.Description,
		SchemaJSON:  syn.SchemaJSON,
		Language:    syn.Language,
		SourcePath:  sourcePath,
		CreatedAt:   time.Now(),
		CreatedBy:   f.runID,
	}
	if err := f.store.Persist(ctx, stored); err != nil {
		return &AcquisitionError{Capability: name, Step: "persist", Err: err}
	}

	// (d) register: available to every subsequent planning phase
	f.registry.Register(Record{
		Name:        syn.Name,
		Description: syn.Description,
		SchemaJSON:  syn.SchemaJSON,
		Handler:     NewScriptHandler(f.runner, f.workDir, syn.Language, sourcePath),
		Origin:      OriginGenerated,
		Provenance: Provenance{
			CreatedAt:  stored.CreatedAt,
			CreatedBy:  f.runID,
			SourcePath: sourcePath,
		},
	})
	return nil
}

func (f *Flow) writeScript(syn Synthesis) (string, error) {
	if err := os.MkdirAll(f.scriptsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scripts directory: %w", err)
	}
	path := filepath.Join(f.scriptsDir, sanitizeName(syn.Name)+scriptExt(syn.Language))
	if err := os.WriteFile(path, []byte(syn.Code), 0644); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	return path, nil
}

func scriptExt(language string) string {
	switch strings.ToLower(language) {
	case "bash", "sh", "shell":
		return ".sh"
	case "node", "javascript":
		return ".js"
	default:
		return ".py"
	}
}

// sanitizeName maps a capability name onto a safe file stem.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "capability"
	}
	return b.String()
}
