package executor

import (
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"

	"github.com/darktohka/knockd/pkg/log"
	"github.com/darktohka/knockd/pkg/metrics"
)

// Executor runs a resolved command line. Implementations must treat the
// string as a complete command; placeholder substitution happens before the
// call.
type Executor interface {
	Execute(command string) error
}

// Func adapts a function to the Executor interface.
type Func func(command string) error

// Execute calls f.
func (f Func) Execute(command string) error {
	return f(command)
}

// Shell executes commands by splitting them into argv words and spawning the
// program directly. No shell is involved, so metacharacters in substituted
// values are inert.
type Shell struct{}

// NewShell creates a shell command executor.
func NewShell() *Shell {
	return &Shell{}
}

// Execute parses and runs the command, waiting for it to exit.
func (s *Shell) Execute(command string) error {
	args, err := shellwords.Parse(command)
	if err != nil {
		return fmt.Errorf("failed to parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}

	timer := metrics.NewTimer()
	cmd := exec.Command(args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	timer.ObserveDuration(metrics.CommandDuration)
	if len(output) > 0 {
		logger := log.WithComponent("executor")
		logger.Debug().
			Str("command", args[0]).
			Bytes("output", output).
			Msg("command output")
	}
	if err != nil {
		return fmt.Errorf("command %q failed: %w", command, err)
	}
	return nil
}
