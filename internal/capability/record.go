// Package capability holds the action registry: the set of named,
// schema-typed executable units the orchestrator can invoke, both built-in
// and generated at runtime.
package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Origin records how a capability came to exist.
type Origin string

const (
	OriginBuiltin   Origin = "builtin"
	OriginGenerated Origin = "generated"
)

// HandlerFunc is the executable handle of a capability.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Provenance records when and how a capability record was created.
type Provenance struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by,omitempty"`  // run ID for generated capabilities
	SourcePath string    `json:"source_path,omitempty"` // script file for generated capabilities
}

// Record is one registered capability. Immutable once registered; superseded
// by registering a newer record under the same name.
type Record struct {
	Name        string
	Description string
	SchemaJSON  string // JSON schema for the arguments
	Handler     HandlerFunc
	Origin      Origin
	Provenance  Provenance
}

// ValidateArgs validates the provided arguments against the record's JSON
// schema.
func (r Record) ValidateArgs(args map[string]any) error {
	if r.SchemaJSON == "" {
		return nil
	}
	schemaLoader := gojsonschema.NewStringLoader(r.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ValidationError{
			Capability: r.Name,
			Errors:     errorMsgs,
		}
	}

	return nil
}

// Summary is the name+description pair included in oracle views.
type Summary struct {
	Name        string
	Description string
	SchemaJSON  string
}
