package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

const defaultExecTimeout = 2 * time.Minute

// Executor applies one action to the environment. Faults never cross this
// boundary as errors or panics; every failure mode is folded into the
// Outcome shape so the classifier sees one uniform surface.
type Executor struct {
	registry *capability.Registry
	timeout  time.Duration
}

// NewExecutor creates an executor over the given registry. timeout <= 0 uses
// the default per-invocation bound.
func NewExecutor(reg *capability.Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	return &Executor{registry: reg, timeout: timeout}
}

// Execute resolves and invokes the action's capability with a bounded
// timeout. External side effects belong to the invoked capability; the
// executor only observes and reports the outcome.
func (e *Executor) Execute(ctx context.Context, a Action) Outcome {
	rec, err := e.registry.Resolve(a.Name)
	if err != nil {
		return Outcome{RawError: err.Error()}
	}

	if err := rec.ValidateArgs(a.Args); err != nil {
		return Outcome{RawError: err.Error()}
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		output string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("capability panicked: %v", r)}
			}
		}()
		out, err := rec.Handler(cctx, a.Args)
		ch <- result{output: out, err: err}
	}()

	select {
	case <-cctx.Done():
		return Outcome{RawError: "timeout"}
	case res := <-ch:
		if res.err != nil {
			return Outcome{RawError: res.err.Error()}
		}
		return Outcome{Success: true, Output: res.output}
	}
}
