package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darktohka/knockd/pkg/config"
	"github.com/darktohka/knockd/pkg/executor"
)

func lifecycleConfig() *config.Config {
	return &config.Config{
		Interface: "eth0",
		Timeout:   1000,
		Rules: []config.Rule{
			{
				Name:     "ssh",
				Sequence: []uint16{1, 2, 3},
				Activate: "open %IP%",
				Setup:    "setup-ssh",
				Teardown: "teardown-ssh",
			},
			{
				Name:     "web",
				Sequence: []uint16{4, 5, 6},
				Activate: "open %IP%",
			},
			{
				Name:     "db",
				Sequence: []uint16{7, 8, 9},
				Activate: "open %IP%",
				Setup:    "setup-db",
			},
		},
	}
}

// TestSetup tests that every configured setup command runs
func TestSetup(t *testing.T) {
	var commands []string
	Setup(lifecycleConfig(), executor.Func(func(command string) error {
		commands = append(commands, command)
		return nil
	}))

	assert.Equal(t, []string{"setup-ssh", "setup-db"}, commands)
}

// TestTeardown tests that every configured teardown command runs
func TestTeardown(t *testing.T) {
	var commands []string
	Teardown(lifecycleConfig(), executor.Func(func(command string) error {
		commands = append(commands, command)
		return nil
	}))

	assert.Equal(t, []string{"teardown-ssh"}, commands)
}

// TestSetupContinuesOnFailure tests that one failure does not stop the rest
func TestSetupContinuesOnFailure(t *testing.T) {
	var commands []string
	Setup(lifecycleConfig(), executor.Func(func(command string) error {
		commands = append(commands, command)
		return errors.New("exit status 1")
	}))

	assert.Equal(t, []string{"setup-ssh", "setup-db"}, commands)
}
