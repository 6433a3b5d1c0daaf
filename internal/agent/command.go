package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"sparcflow/internal/metrics"
)

const (
	DefaultAgentTimeout  = 5 * time.Minute
	DefaultVerifyTimeout = 60 * time.Second

	defaultMaxOutput = 1 << 20
	waitDelay        = 2 * time.Second
)

// DefaultAgentCommand drives aider in non-interactive diff mode.
var DefaultAgentCommand = []string{"aider", "--yes", "--model", "{model}", "--edit-format", "diff", "--message", "{message}", "{file}"}

// CommandRunner runs an argv template as the coding agent. Placeholders
// {file}, {message}, {model} and {dir} are substituted per argument; no shell
// is involved.
type CommandRunner struct {
	Command   []string
	Model     string
	Dir       string
	MaxOutput int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func (c *CommandRunner) Run(ctx context.Context, req AgentRequest) (Result, error) {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultAgentCommand
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	args := Expand(argv, map[string]string{
		"file":    req.TargetPath,
		"message": req.Instruction,
		"model":   c.Model,
		"dir":     c.Dir,
	})
	p := proc{dir: c.Dir, maxOutput: c.MaxOutput, log: logger(c.Logger), kind: "agent"}
	res, err := p.run(ctx, args, timeout)
	c.Metrics.ObserveProcess("agent", res.Duration)
	return res, err
}

// CommandVerifier runs the test command template; {file} is the test file and
// {stem} its base name without extension.
type CommandVerifier struct {
	Command   []string
	Dir       string
	MaxOutput int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func (c *CommandVerifier) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	if len(c.Command) == 0 {
		return Result{ExitCode: -1}, errors.New("verify: no test command configured")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	base := path.Base(filepath.ToSlash(req.TestPath))
	args := Expand(c.Command, map[string]string{
		"file": req.TestPath,
		"stem": strings.TrimSuffix(base, path.Ext(base)),
		"dir":  c.Dir,
	})
	p := proc{dir: c.Dir, maxOutput: c.MaxOutput, log: logger(c.Logger), kind: "verify"}
	res, err := p.run(ctx, args, timeout)
	c.Metrics.ObserveProcess("verify", res.Duration)
	return res, err
}

// Expand substitutes {key} placeholders inside every argument.
func Expand(argv []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

type proc struct {
	dir       string
	maxOutput int
	log       *slog.Logger
	kind      string
}

func (p proc) run(ctx context.Context, args []string, timeout time.Duration) (Result, error) {
	if len(args) == 0 || args[0] == "" {
		return Result{ExitCode: -1}, errors.New("empty command")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = p.dir
	cmd.WaitDelay = waitDelay

	limit := p.maxOutput
	if limit <= 0 {
		limit = defaultMaxOutput
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: limit}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: limit}

	p.log.Debug("starting process", "kind", p.kind, "command", args[0], "timeout", timeout)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	p.logLines(res.Stdout, slog.LevelDebug)
	p.logLines(res.Stderr, slog.LevelWarn)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		p.log.Warn("process timed out", "kind", p.kind, "timeout", timeout)
		return res, fmt.Errorf("%s %s: %w", p.kind, args[0], ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("%s %s: %w", p.kind, args[0], err)
	}
	return res, nil
}

func (p proc) logLines(s string, level slog.Level) {
	if !p.log.Enabled(context.Background(), level) {
		return
	}
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), " \t"); line != "" {
			p.log.Log(context.Background(), level, p.kind+": "+line)
		}
	}
}

// limitedWriter keeps the first limit bytes and discards the rest.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(b []byte) (int, error) {
	n := len(b)
	if lw.written >= lw.limit {
		return n, nil
	}
	if rem := lw.limit - lw.written; len(b) > rem {
		b = b[:rem]
	}
	w, err := lw.w.Write(b)
	lw.written += w
	if err != nil {
		return w, err
	}
	return n, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
