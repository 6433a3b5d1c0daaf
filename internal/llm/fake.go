package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PhaseTechStack is the phase name used for stack detection calls.
const PhaseTechStack = "techstack"

// FakeClient returns deterministic payloads per phase for offline runs and tests.
// Responses and Failures are keyed by phase (see WithPhase).
type FakeClient struct {
	Responses map[string]string
	Failures  map[string]error
	Delay     time.Duration

	mu       sync.Mutex
	calls    map[string]int
	requests []Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Responses: map[string]string{},
		Failures:  map[string]error{},
	}
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[phase]++
	f.requests = append(f.requests, req)
	failure := f.Failures[phase]
	resp, ok := f.Responses[phase]
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if failure != nil {
		return "", failure
	}
	if ok {
		return resp, nil
	}
	switch phase {
	case PhaseTechStack:
		return `{"framework": "SPARC", "language": "python", "features": ["cli", "test-driven-development"]}`, nil
	case "Architecture.md":
		return fakeArchitecture, nil
	default:
		return fmt.Sprintf("# %s\n\nGenerated content for %s.\n", phase, phase), nil
	}
}

// Calls returns how many requests reached the client for phase.
func (f *FakeClient) Calls(phase string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[phase]
}

// TotalCalls returns the number of requests across all phases.
func (f *FakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of every request seen so far.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

const fakeArchitecture = `# Architecture

## System Components

## Component: Logger
Writes records at different levels.

## Component: LogFormatter
Formats records for output.
`
