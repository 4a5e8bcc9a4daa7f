package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	t.Parallel()
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "vpsgate", cmd.Use)
	assert.Equal(t, "Expose a private Kubernetes cluster through a VPS", cmd.Short)
	assert.NotNil(t, cmd.RunE, "root command provisions without a subcommand")
}

func TestRoot_HasSubcommands(t *testing.T) {
	t.Parallel()
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"status", "version", "completion"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), 3)
}

func TestRoot_Flags(t *testing.T) {
	t.Parallel()
	cmd := Root()

	for _, name := range []string{
		"variant", "config", "install-dir", "domain", "token", "ip",
		"peer-public-key", "regenerate-keys", "restart", "free-ports",
		"non-interactive", "yes",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}

	freePorts := cmd.Flags().Lookup("free-ports")
	assert.Equal(t, "false", freePorts.DefValue)
	assert.Equal(t, "y", cmd.Flags().Lookup("yes").Shorthand)
}

func TestRoot_RejectsArguments(t *testing.T) {
	t.Parallel()
	cmd := Root()
	cmd.SetArgs([]string{"unexpected"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()
	cmd := Version()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.Run(cmd, nil)

	assert.Contains(t, out.String(), "vpsgate ")
	assert.Contains(t, out.String(), "commit:")
	assert.Contains(t, out.String(), "built:")
}

func TestCompletion(t *testing.T) {
	t.Parallel()
	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "vpsgate")
}

func TestCompletion_InvalidShell(t *testing.T) {
	t.Parallel()
	root := Root()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "powershell"})

	assert.Error(t, root.Execute())
}
