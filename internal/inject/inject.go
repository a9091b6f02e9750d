package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/oshokin/buildstamp/internal/logger"
)

// Injector runs native-module injection for a project.
type Injector interface {
	Inject(ctx context.Context, scriptDir, projectRoot string) error
}

// CommandInjector runs an external command as the injection step.
type CommandInjector struct {
	// command is the executable followed by its leading arguments.
	command []string
	// env is appended to the current process environment.
	env []string
	// stdout and stderr receive the command output.
	stdout io.Writer
	stderr io.Writer
}

// Option configures a CommandInjector.
type Option func(*CommandInjector)

// ErrEmptyCommand is returned when no executable is configured.
var ErrEmptyCommand = errors.New("injection command is empty")

// WithEnv adds "KEY=value" entries to the command environment.
func WithEnv(env ...string) Option {
	return func(c *CommandInjector) {
		c.env = append(c.env, env...)
	}
}

// WithOutput redirects the command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *CommandInjector) {
		if stdout != nil {
			c.stdout = stdout
		}

		if stderr != nil {
			c.stderr = stderr
		}
	}
}

// NewCommandInjector creates an injector that executes command.
func NewCommandInjector(command []string, opts ...Option) (*CommandInjector, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, ErrEmptyCommand
	}

	c := &CommandInjector{
		command: append([]string(nil), command...),
		stdout:  os.Stderr,
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// New returns a CommandInjector for command, or Noop when command is empty.
//
//nolint:ireturn // Callers only need the Injector behaviour.
func New(command []string, opts ...Option) Injector {
	c, err := NewCommandInjector(command, opts...)
	if err != nil {
		return Noop{}
	}

	return c
}

// Inject runs the command with scriptDir and projectRoot appended.
func (c *CommandInjector) Inject(ctx context.Context, scriptDir, projectRoot string) error {
	args := append(append([]string(nil), c.command[1:]...), scriptDir, projectRoot)

	cmd := exec.CommandContext(ctx, c.command[0], args...)
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	logger.DebugKV(ctx, "Running native-module injection", "command", c.command[0], "args", args)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("inject native modules: %w", err)
	}

	return nil
}

// Noop skips injection.
type Noop struct{}

// Inject logs that no injection command is configured.
func (Noop) Inject(ctx context.Context, scriptDir, projectRoot string) error {
	logger.DebugKV(ctx, "No injection command configured, skipping",
		"script_dir", scriptDir, "project_root", projectRoot)

	return nil
}
