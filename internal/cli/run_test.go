package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stacktester/internal/presentation/tui"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conflictScript = `
threads:
  root:
    - PUSH: k
    - GET
    - POP
    - PUSH: setup
    - USE_TRANSACTION
    - PUSH: x
    - PUSH: flag
    - SET
    - COMMIT
    - WAIT_FUTURE
    - POP
    - PUSH: root
    - USE_TRANSACTION
    - PUSH: writer
    - START_THREAD
    - PUSH: flag
    - WAIT_EMPTY
    - PUSH: mine
    - PUSH: k
    - SET
    - COMMIT
    - WAIT_FUTURE
    - NEW_TRANSACTION
    - PUSH: k
    - GET
  writer:
    - PUSH: theirs
    - PUSH: k
    - SET
    - PUSH: flag
    - CLEAR
    - COMMIT
    - WAIT_FUTURE
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecute_Memory(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "script.yaml", conflictScript)

	var out, logs bytes.Buffer
	err := Execute(context.Background(), RunOptions{
		ConfigPath: filepath.Join(dir, "absent.yaml"),
		ScriptPath: scriptPath,
		LogLevel:   "debug",
		BatchSize:  4,
		Out:        &out,
		Logs:       &logs,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"16: b'WAITED_FOR_EMPTY'\n"+
			"21: b'\\x01ERROR\\x00\\x011020\\x00'\n"+
			"24: b'theirs'\n",
		out.String())
	assert.Contains(t, logs.String(), "session finished")
}

func TestExecute_RedisFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "script.yaml", conflictScript)
	configPath := writeFile(t, dir, "stacktester.yaml", "store: redis\nredis:\n  addr: "+mr.Addr()+"\n  prefix: \"it:\"\nlog_level: warn\n")

	var out bytes.Buffer
	err := Execute(context.Background(), RunOptions{
		ConfigPath: configPath,
		ScriptPath: scriptPath,
		Out:        &out,
		Logs:       &bytes.Buffer{},
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "ERROR")
	assert.Contains(t, out.String(), "b'theirs'")
	assert.True(t, mr.Exists("it:data"))
}

func TestExecute_Errors(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "script.yaml", conflictScript)

	err := Execute(context.Background(), RunOptions{ScriptPath: filepath.Join(dir, "missing.yaml"), Out: &bytes.Buffer{}, Logs: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "failed to read script")

	err = Execute(context.Background(), RunOptions{ScriptPath: scriptPath, Store: "etcd", Out: &bytes.Buffer{}, Logs: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "unknown store")

	err = Execute(context.Background(), RunOptions{ScriptPath: scriptPath, LogLevel: "loud", Out: &bytes.Buffer{}, Logs: &bytes.Buffer{}})
	assert.Error(t, err)

	err = Execute(context.Background(), RunOptions{ScriptPath: scriptPath, Store: "redis", RedisAddr: "127.0.0.1:1", Out: &bytes.Buffer{}, Logs: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, tui.KindSentinel, kindOf(domain.ResultNotPresent))
	assert.Equal(t, tui.KindError, kindOf(domain.NewStoreError(domain.CodeNotCommitted).Bytes()))
	assert.Equal(t, tui.KindValue, kindOf([]byte("ERROR")))
	assert.Equal(t, tui.KindValue, kindOf(int64(1)))
}
