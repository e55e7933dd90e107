package cmd

import (
	"testing"

	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/logging"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "concord" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "concord")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"run", "config", "agents"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{"demand", "keywords", "requester", "holdouts", "timeout"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command missing --%s flag", name)
		}
	}
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	err := runConfigSet(configSetCmd, []string{"nonsense.key", "1"})
	if err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestDemoPoolIsWellFormed(t *testing.T) {
	pool := demoPool()
	if pool.Size() == 0 {
		t.Fatal("demo pool is empty")
	}
	for _, p := range pool.All() {
		if p.ID == "" || p.Name == "" {
			t.Errorf("profile %+v missing identity", p)
		}
		if len(p.Keywords) == 0 {
			t.Errorf("profile %s has no keywords for the gate", p.ID)
		}
	}
}

func TestUserError(t *testing.T) {
	log := logging.NopLogger()

	// Validation errors are safe to show and pass through unchanged.
	facing := errors.NewValidationError("demand", "demand text is required")
	if got := userError(log, facing); !errors.Is(got, errors.ErrInvalidInput) {
		t.Errorf("user-facing error rewritten: %v", got)
	}

	// Anything else stays in the log and is replaced with a generic line.
	internal := errors.New("index out of range")
	got := userError(log, internal)
	if errors.Is(got, internal) {
		t.Errorf("internal error leaked to the user: %v", got)
	}
	if got.Error() != "internal error, see the log for details" {
		t.Errorf("replacement message = %q", got.Error())
	}
}
