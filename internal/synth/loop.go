package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"sparcflow/internal/agent"
	"sparcflow/internal/extract"
	"sparcflow/internal/guidance"
	"sparcflow/internal/metrics"
	"sparcflow/internal/safeio"
	"sparcflow/internal/techstack"
)

// Loop drives generate-test, generate-implementation and verify for each
// component, one component and one phase at a time.
type Loop struct {
	Agent         agent.Runner
	Verifier      agent.Verifier
	Workdir       string
	SrcDir        string
	TestDir       string
	AgentTimeout  time.Duration
	VerifyTimeout time.Duration
	MaxAttempts   int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Run processes every component. A failing component never stops the batch;
// the error return is reserved for an unusable working directory.
func (l *Loop) Run(ctx context.Context, components extract.Set, doc guidance.Document) (Report, error) {
	root, err := safeio.NewSafeFS(l.Workdir)
	if err != nil {
		return Report{}, fmt.Errorf("workdir %s: %w", l.Workdir, err)
	}
	stack := doc.TechStack()
	prof := techstack.ProfileFor(stack.Lang())
	srcDir := firstNonEmpty(l.SrcDir, doc.Architecture.SrcDir, "src")
	testDir := firstNonEmpty(l.TestDir, doc.Architecture.TestDir, "tests")
	for _, d := range []string{srcDir, testDir} {
		if err := root.MkdirAll(d); err != nil {
			return Report{}, fmt.Errorf("create %s: %w", d, err)
		}
	}

	log := l.logger()
	rep := Report{Workdir: root.Root(), Started: l.now()}
	log.Info("synthesis started", "components", len(components), "language", prof.Language.String(), "max_attempts", l.maxAttempts())

	owners := map[string]string{}
	for _, c := range components.Sorted() {
		if owner, ok := owners[c.Lower()]; ok {
			out := duplicateOutcome(c, owner, path.Join(srcDir, prof.SourceFile(c.Lower())), path.Join(testDir, prof.TestFile(c.Lower())))
			l.Metrics.ObserveComponent(string(out.Status))
			log.Error("component failed", "component", c.Name, "failure", string(out.Failure), "detail", out.Detail)
			rep.Outcomes = append(rep.Outcomes, out)
			continue
		}
		owners[c.Lower()] = c.Name

		j := job{
			loop:    l,
			root:    root,
			log:     log.With("component", c.Name),
			comp:    c,
			stack:   stack,
			prof:    prof,
			section: extract.Section(doc.ArchitectureContent(), c.Name),
			src:     path.Join(srcDir, prof.SourceFile(c.Lower())),
			test:    path.Join(testDir, prof.TestFile(c.Lower())),
		}
		out := j.run(ctx)
		l.Metrics.ObserveComponent(string(out.Status))
		if out.Status == Success {
			j.log.Info("component done", "attempts", out.Attempts)
		} else {
			j.log.Error("component failed", "phase", out.StoppedAt.Describe(), "failure", string(out.Failure), "detail", out.Detail)
		}
		rep.Outcomes = append(rep.Outcomes, out)
	}
	rep.Finished = l.now()
	log.Info("synthesis finished", "succeeded", rep.Succeeded(), "failed", len(rep.Failed()))
	return rep, nil
}

type job struct {
	loop    *Loop
	root    *safeio.SafeFS
	log     *slog.Logger
	comp    extract.Component
	stack   techstack.TechStack
	prof    techstack.Profile
	section string
	src     string
	test    string
}

func (j *job) run(ctx context.Context) Outcome {
	out := Outcome{Component: j.comp.Name, SourcePath: j.src, TestPath: j.test}

	// Only files present before this run count as done; files this run wrote
	// are driven again on a retry.
	testExisted, _ := j.root.Exists(j.test)
	srcExisted, _ := j.root.Exists(j.src)

	attempts, fail := Attempt(ctx, j.loop.maxAttempts(), func(ctx context.Context, attempt int) *Failure {
		if attempt > 1 {
			j.log.Warn("retrying component", "attempt", attempt)
		}
		steps := []struct {
			phase   Phase
			existed bool
			do      func(context.Context) *Failure
		}{
			{TestGen, testExisted, func(ctx context.Context) *Failure {
				return j.generate(ctx, TestGen, j.test, testInstruction(j.comp.Name, j.stack, j.prof, j.section))
			}},
			{ImplGen, srcExisted, func(ctx context.Context) *Failure {
				return j.generate(ctx, ImplGen, j.src, implInstruction(j.comp.Name, j.stack, j.test, j.section))
			}},
			{Verify, false, j.verify},
		}
		for _, s := range steps {
			start := time.Now()
			if s.existed {
				j.log.Info("file exists, skipping phase", "phase", string(s.phase))
				j.record(&out, s.phase, attempt, Skipped, 0)
				continue
			}
			f := s.do(ctx)
			st := Success
			if f != nil {
				st = f.Kind.status()
			}
			j.record(&out, s.phase, attempt, st, time.Since(start))
			if f != nil {
				return f
			}
		}
		return nil
	})

	out.Attempts = attempts
	if fail == nil {
		out.Status = Success
		return out
	}
	out.Status = fail.Kind.status()
	out.StoppedAt = fail.Phase
	out.Failure = fail.Kind
	out.Detail = fail.Detail
	return out
}

func (j *job) generate(ctx context.Context, phase Phase, target, instruction string) *Failure {
	if j.loop.Agent == nil {
		return &Failure{Phase: phase, Kind: AgentFailed, Detail: "no agent configured"}
	}
	j.log.Info("running agent", "phase", string(phase), "file", target)
	res, err := j.loop.Agent.Run(ctx, agent.AgentRequest{
		TargetPath:  target,
		Instruction: instruction,
		Timeout:     j.loop.AgentTimeout,
	})
	switch {
	case res.TimedOut || errors.Is(err, agent.ErrTimeout):
		return &Failure{Phase: phase, Kind: AgentTimedOut, Detail: errDetail(err, res)}
	case err != nil:
		return &Failure{Phase: phase, Kind: AgentFailed, Detail: err.Error()}
	case res.ExitCode != 0:
		return &Failure{Phase: phase, Kind: AgentFailed, Detail: fmt.Sprintf("exit status %d: %s", res.ExitCode, tail(res.Stderr))}
	}
	ok, err := j.root.Exists(target)
	if err != nil {
		return &Failure{Phase: phase, Kind: NoOutput, Detail: err.Error()}
	}
	if !ok {
		return &Failure{Phase: phase, Kind: NoOutput, Detail: target + " was not created"}
	}
	return nil
}

func (j *job) verify(ctx context.Context) *Failure {
	if j.loop.Verifier == nil {
		return &Failure{Phase: Verify, Kind: VerifyFailed, Detail: "no verifier configured"}
	}
	j.log.Info("running tests", "file", j.test)
	res, err := j.loop.Verifier.Verify(ctx, agent.VerifyRequest{TestPath: j.test, Timeout: j.loop.VerifyTimeout})
	switch {
	case res.TimedOut || errors.Is(err, agent.ErrTimeout):
		return &Failure{Phase: Verify, Kind: VerifyTimedOut, Detail: errDetail(err, res)}
	case err != nil:
		return &Failure{Phase: Verify, Kind: VerifyFailed, Detail: err.Error()}
	case res.ExitCode != 0:
		return &Failure{Phase: Verify, Kind: VerifyFailed, Detail: fmt.Sprintf("exit status %d: %s", res.ExitCode, tail(res.Stdout+res.Stderr))}
	}
	return nil
}

func (j *job) record(out *Outcome, phase Phase, attempt int, st Status, d time.Duration) {
	out.Phases = append(out.Phases, PhaseAttempt{
		Component: j.comp.Name,
		Phase:     phase,
		Attempt:   attempt,
		Status:    st,
		Duration:  d,
	})
	j.loop.Metrics.ObservePhase(string(phase), string(st))
}

func duplicateOutcome(c extract.Component, owner, src, test string) Outcome {
	return Outcome{
		Component:  c.Name,
		Status:     DuplicateName.status(),
		StoppedAt:  TestGen,
		Failure:    DuplicateName,
		Detail:     fmt.Sprintf("file names collide with component %s", owner),
		SourcePath: src,
		TestPath:   test,
	}
}

func (l *Loop) maxAttempts() int {
	if l.MaxAttempts > 0 {
		return l.MaxAttempts
	}
	return 1
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func errDetail(err error, res agent.Result) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("timed out after %s", res.Duration.Round(time.Millisecond))
}

// tail keeps the last few lines of process output for the report.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
