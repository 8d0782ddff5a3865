package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/agent"
)

// cliApprover prompts on stdin before dangerous capabilities run.
type cliApprover struct{}

func (a *cliApprover) Approve(action agent.Action) (bool, string) {
	args, _ := json.Marshal(action.Args)
	fmt.Printf("\nabout to run %s with %s\napprove? [y/N] ", action.Name, args)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, "approval prompt failed, denying " + action.Name
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return true, ""
	}
	return false, fmt.Sprintf("the operator denied permission to run %s; choose a different approach", action.Name)
}

// cliEscalator suspends the run and asks the operator for guidance.
type cliEscalator struct{}

func (e *cliEscalator) Escalate(ctx context.Context, s agent.EscalationSummary) (agent.Resumption, error) {
	fmt.Printf("\n--- run suspended ---\n%s\nguidance (empty line to abort)> ", s.String())

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return agent.Resumption{Abort: true}, nil
	}
	guidance := strings.TrimSpace(line)
	if guidance == "" || strings.EqualFold(guidance, "abort") {
		return agent.Resumption{Abort: true}, nil
	}
	return agent.Resumption{Guidance: guidance}, nil
}
