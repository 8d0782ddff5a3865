package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Mode represents the sandbox execution mode.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto automatically selects Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

const defaultImage = "python:3.12-slim"

// Config holds configuration for sandbox execution.
type Config struct {
	Mode         Mode
	DockerImage  string        // Docker image override
	CPU          string        // CPU limit (e.g., "2")
	Memory       string        // Memory limit (e.g., "1g")
	CmdTimeout   time.Duration // Default command timeout (0 = use default)
	AllowNetwork bool          // Capabilities routinely call external APIs
}

// DefaultConfig returns the default configuration based on environment
// variables.
func DefaultConfig() Config {
	modeStr := strings.ToLower(os.Getenv("OTTO_SANDBOX_MODE"))
	if modeStr == "" {
		modeStr = "auto"
	}

	var mode Mode
	switch modeStr {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto":
		mode = ModeAuto
	default:
		log.Printf("WARNING: Unknown OTTO_SANDBOX_MODE value '%s', defaulting to 'auto'", modeStr)
		mode = ModeAuto
	}

	cmdTimeout := defaultCmdTimeout
	if timeoutStr := os.Getenv("OTTO_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: Invalid OTTO_CMD_TIMEOUT value '%s', using default 2m", timeoutStr)
		}
	}

	return Config{
		Mode:         mode,
		DockerImage:  getEnvOrDefault("OTTO_DOCKER_IMAGE", defaultImage),
		CPU:          getEnvOrDefault("OTTO_DOCKER_CPU", "2"),
		Memory:       getEnvOrDefault("OTTO_DOCKER_MEMORY", "1g"),
		CmdTimeout:   cmdTimeout,
		AllowNetwork: os.Getenv("OTTO_SANDBOX_NO_NETWORK") == "",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// IsDockerAvailable checks if Docker is available and accessible.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// NewDefaultRunner creates a runner based on the configuration and Docker
// availability. It respects the OTTO_SANDBOX_MODE environment variable:
//   - "docker": use Docker (falls back to host with a warning if unavailable)
//   - "host": use the host executor (no isolation)
//   - "auto": use Docker if available, fall back to host
func NewDefaultRunner() Runner {
	config := DefaultConfig()
	ctx := context.Background()

	switch config.Mode {
	case ModeDocker:
		if !IsDockerAvailable(ctx) {
			log.Printf("WARNING: Docker mode requested but Docker is not available. Falling back to host executor.")
			return &HostRunner{config: config}
		}
		dockerRunner, err := NewDockerRunner(config)
		if err != nil {
			log.Printf("WARNING: Failed to create Docker runner: %v. Falling back to host executor.", err)
			return &HostRunner{config: config}
		}
		return dockerRunner

	case ModeHost:
		log.Printf("WARNING: Using host executor (no sandboxing).")
		return &HostRunner{config: config}

	case ModeAuto:
		if IsDockerAvailable(ctx) {
			dockerRunner, err := NewDockerRunner(config)
			if err != nil {
				log.Printf("WARNING: Docker available but failed to create runner: %v. Falling back to host executor.", err)
				return &HostRunner{config: config}
			}
			return dockerRunner
		}
		log.Printf("WARNING: Docker not available. Using host executor (no sandboxing).")
		return &HostRunner{config: config}

	default:
		log.Printf("WARNING: Unknown sandbox mode, defaulting to host executor.")
		return &HostRunner{config: config}
	}
}

// NewRunner creates a specific runner implementation.
func NewRunner(mode Mode, config Config) (Runner, error) {
	switch mode {
	case ModeDocker:
		return NewDockerRunner(config)
	case ModeHost:
		return &HostRunner{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}
