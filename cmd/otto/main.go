package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/otto/internal/agent"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("otto", flag.ExitOnError)
	workFlag := fs.String("workdir", "", "Working directory for file and shell actions (default: current directory)")
	goalFlag := fs.String("goal", "", "Run a single goal and exit (default: interactive mode)")
	autoApprove := fs.Bool("yes", false, "Approve dangerous capabilities without prompting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := prepareRuntimeEnv(ctx, *workFlag, *autoApprove)
	if err != nil {
		return err
	}
	defer env.Close()

	if *goalFlag != "" {
		return runGoal(ctx, env, *goalFlag)
	}

	log.Printf("otto ready (workdir: %s, capabilities: %d)", env.WorkDir, env.Registry.Len())
	s := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("goal> ")
		if !s.Scan() {
			break
		}
		line := s.Text()
		if line == "" {
			continue
		}

		if err := runGoal(ctx, env, line); err != nil {
			log.Printf("error: %v", err)
		}
		if ctx.Err() != nil {
			break
		}
		fmt.Println()
	}
	return nil
}

func runGoal(ctx context.Context, env *runtimeEnv, goal string) error {
	st, err := env.Orchestrator.Run(ctx, goal)

	fmt.Println(agent.RenderFinalReport(st))

	var runErr *agent.RunError
	if errors.As(err, &runErr) && runErr.Reason == agent.ReasonCancelled {
		return nil
	}
	if err != nil {
		return err
	}

	// Remember what worked so future runs can recall it.
	if env.Memory != nil && st.Report != nil {
		_ = env.Memory.Add(ctx, fmt.Sprintf("goal %q: %s", goal, st.Report.Message))
	}
	return nil
}
