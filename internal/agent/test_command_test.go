package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparcflow/internal/metrics"
)

func TestExpandPlaceholders(t *testing.T) {
	got := Expand(DefaultAgentCommand, map[string]string{
		"file":    "src/logger.py",
		"message": "implement {file} please",
		"model":   "gpt-4o",
	})
	assert.Equal(t, []string{
		"aider", "--yes", "--model", "gpt-4o", "--edit-format", "diff",
		"--message", "implement {file} please", "src/logger.py",
	}, got)
}

func TestCommandRunnerWritesTarget(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	r := &CommandRunner{
		Command: []string{"/bin/sh", "-c", `printf '%s' "$1" > "$2"; echo done`, "sh", "{message}", "{file}"},
		Dir:     dir,
		Metrics: m,
	}
	res, err := r.Run(context.Background(), AgentRequest{TargetPath: "out.txt", Instruction: "hello world", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "done\n", res.Stdout)

	b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProcessDuration, "sparcflow_process_seconds"))
}

func TestCommandRunnerNonZeroExit(t *testing.T) {
	r := &CommandRunner{Command: []string{"/bin/sh", "-c", "echo broken >&2; exit 3"}, Dir: t.TempDir()}
	res, err := r.Run(context.Background(), AgentRequest{TargetPath: "x", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.OK())
	assert.Equal(t, "broken\n", res.Stderr)
}

func TestCommandRunnerTimeout(t *testing.T) {
	r := &CommandRunner{Command: []string{"/bin/sh", "-c", "exec sleep 10"}, Dir: t.TempDir()}
	start := time.Now()
	res, err := r.Run(context.Background(), AgentRequest{TargetPath: "x", Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandRunnerMissingBinary(t *testing.T) {
	r := &CommandRunner{Command: []string{"/definitely/not/here"}, Dir: t.TempDir()}
	res, err := r.Run(context.Background(), AgentRequest{TargetPath: "x", Timeout: time.Second})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, -1, res.ExitCode)
}

func TestCommandVerifier(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pass.sh"), []byte("exit 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fail.sh"), []byte("echo FAILED; exit 1\n"), 0o644))
	v := &CommandVerifier{Command: []string{"/bin/sh", "{file}"}, Dir: dir}

	res, err := v.Verify(context.Background(), VerifyRequest{TestPath: "pass.sh", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = v.Verify(context.Background(), VerifyRequest{TestPath: "fail.sh", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "FAILED\n", res.Stdout)

	_, err = (&CommandVerifier{}).Verify(context.Background(), VerifyRequest{TestPath: "x"})
	assert.Error(t, err)
}

func TestCommandVerifierExpandsStem(t *testing.T) {
	v := &CommandVerifier{Command: []string{"/bin/sh", "-c", "echo \"$0 $1\"", "{stem}", "{file}"}, Dir: t.TempDir()}
	res, err := v.Verify(context.Background(), VerifyRequest{TestPath: "tests/logger_test.rs", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "logger_test tests/logger_test.rs\n", res.Stdout)
}

func TestLimitedWriterTruncates(t *testing.T) {
	r := &CommandRunner{Command: []string{"/bin/sh", "-c", "printf 0123456789"}, Dir: t.TempDir(), MaxOutput: 4}
	res, err := r.Run(context.Background(), AgentRequest{TargetPath: "x", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "0123", res.Stdout)
}
