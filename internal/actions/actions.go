// Package actions provides the built-in capabilities every run starts with.
package actions

import (
	"net/http"

	"github.com/ChamsBouzaiene/otto/internal/capability"
	"github.com/ChamsBouzaiene/otto/internal/memory"
	"github.com/ChamsBouzaiene/otto/internal/sandbox"
)

// Deps carries the shared infrastructure the built-ins close over.
type Deps struct {
	Memory  *memory.Client
	Runner  sandbox.Runner
	WorkDir string
	HTTP    *http.Client
}

// RegisterBuiltins installs the built-in capabilities into reg.
func RegisterBuiltins(reg *capability.Registry, deps Deps) {
	if deps.HTTP == nil {
		deps.HTTP = http.DefaultClient
	}

	reg.Register(newWriteFile(deps.WorkDir))
	reg.Register(newReadFile(deps.WorkDir))
	reg.Register(newRunShellCommand(deps.Runner, deps.WorkDir))
	reg.Register(newExecuteScript(deps.Runner, deps.WorkDir))
	reg.Register(newSearchWeb(deps.HTTP))
	if deps.Memory != nil {
		reg.Register(newRetrieveFromMemory(deps.Memory))
		reg.Register(newAddToMemory(deps.Memory))
	}
	reg.Register(newRequestHumanAssistance())
}

func builtin(name, description, schema string, h capability.HandlerFunc) capability.Record {
	return capability.Record{
		Name:        name,
		Description: description,
		SchemaJSON:  schema,
		Handler:     h,
		Origin:      capability.OriginBuiltin,
	}
}
