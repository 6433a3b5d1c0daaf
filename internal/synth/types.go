package synth

import (
	"fmt"
	"time"
)

// Phase is one step of the per-component state machine.
type Phase string

const (
	TestGen Phase = "test_gen"
	ImplGen Phase = "impl_gen"
	Verify  Phase = "verify"
)

// Phases is the fixed order; no phase is skipped over or reordered.
var Phases = []Phase{TestGen, ImplGen, Verify}

// Describe returns the human wording used in reports.
func (p Phase) Describe() string {
	switch p {
	case TestGen:
		return "test generation"
	case ImplGen:
		return "implementation generation"
	case Verify:
		return "verification"
	default:
		return string(p)
	}
}

type Status string

const (
	Pending  Status = "pending"
	Success  Status = "success"
	Skipped  Status = "skipped"
	Failed   Status = "failed"
	TimedOut Status = "timed_out"
)

// FailureKind classifies why a component stopped.
type FailureKind string

const (
	NoFailure      FailureKind = ""
	AgentFailed    FailureKind = "agent_failed"
	AgentTimedOut  FailureKind = "agent_timed_out"
	NoOutput       FailureKind = "no_output"
	VerifyFailed   FailureKind = "verify_failed"
	VerifyTimedOut FailureKind = "verify_timed_out"
	// DuplicateName marks a component whose file names collide with an
	// earlier component that differs only in letter case.
	DuplicateName FailureKind = "duplicate_name"
)

// Retryable reports whether re-running the phase sequence can help. Timeouts
// and agent failures are final.
func (k FailureKind) Retryable() bool { return k == VerifyFailed }

func (k FailureKind) status() Status {
	switch k {
	case NoFailure:
		return Success
	case AgentTimedOut, VerifyTimedOut:
		return TimedOut
	default:
		return Failed
	}
}

// Failure is the error value of one phase-sequence attempt.
type Failure struct {
	Phase  Phase
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Phase.Describe(), f.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", f.Phase.Describe(), f.Kind, f.Detail)
}

// PhaseAttempt records one phase of one attempt for one component.
type PhaseAttempt struct {
	Component string        `json:"component"`
	Phase     Phase         `json:"phase"`
	Attempt   int           `json:"attempt"`
	Status    Status        `json:"status"`
	Duration  time.Duration `json:"duration_ns"`
}

// Outcome is the terminal state of one component.
type Outcome struct {
	Component  string         `json:"component"`
	Status     Status         `json:"status"`
	StoppedAt  Phase          `json:"stopped_at,omitempty"`
	Failure    FailureKind    `json:"failure,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Attempts   int            `json:"attempts"`
	SourcePath string         `json:"source_path"`
	TestPath   string         `json:"test_path"`
	Phases     []PhaseAttempt `json:"phases"`
}

// Report is the user-visible result of an implement run.
type Report struct {
	RunID    string    `json:"run_id"`
	Workdir  string    `json:"workdir"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`
}

// Failed returns the outcomes that did not succeed.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status != Success {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded counts components that reached Done.
func (r Report) Succeeded() int { return len(r.Outcomes) - len(r.Failed()) }
