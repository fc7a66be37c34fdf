package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stacktester"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stacktester version "+stacktester.Version+"\n", out)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	doc := "root: main\nthreads:\n  main:\n    - PUSH: 1\n  other:\n    - PUSH: 5\n    - PUSH: 8\n    - SUB\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := execute(t, "run", path,
		"--config", filepath.Join(dir, "none.yaml"),
		"--prefix", "other",
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Equal(t, "2: 3\n", out)
}

func TestRunCommand_NeedsScript(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestOpsCommand(t *testing.T) {
	out, err := execute(t, "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "# Instruction set")
	assert.Contains(t, out, "`START_THREAD`")
}

func TestMCPCommand_UnknownTransport(t *testing.T) {
	_, err := execute(t, "mcp", "--transport", "bogus", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "unknown transport")
}
