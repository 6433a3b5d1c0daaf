package agent

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout marks a subprocess that was killed because its deadline passed.
var ErrTimeout = errors.New("external process timed out")

// Result is what the core sees of one external process run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// OK reports a zero exit without timeout.
func (r Result) OK() bool { return r.ExitCode == 0 && !r.TimedOut }

// AgentRequest asks the coding agent to author or edit TargetPath.
type AgentRequest struct {
	TargetPath  string
	Instruction string
	Timeout     time.Duration
}

// VerifyRequest runs the project's test command against TestPath.
type VerifyRequest struct {
	TestPath string
	Timeout  time.Duration
}

// Runner drives the external code-generation process.
type Runner interface {
	Run(ctx context.Context, req AgentRequest) (Result, error)
}

// Verifier runs the test command.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req AgentRequest) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, req AgentRequest) (Result, error) { return f(ctx, req) }

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, req VerifyRequest) (Result, error)

func (f VerifierFunc) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	return f(ctx, req)
}
