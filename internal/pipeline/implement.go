package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sparcflow/internal/agent"
	"sparcflow/internal/extract"
	"sparcflow/internal/guidance"
	"sparcflow/internal/report"
	"sparcflow/internal/synth"
	"sparcflow/internal/techstack"
)

type ImplementRequest struct {
	GuidanceFile string
	// Model overrides the agent model.
	Model string
	// MaxAttempts overrides the guidance and config values when positive.
	MaxAttempts int
	Workdir     string
	// Fresh creates implementation_<ts>_<guidance dir name> under Workdir.
	Fresh bool
}

// Implement turns the guidance document into code, one component at a time.
// Component failures land in the report; only unusable inputs are errors.
func (c *Controller) Implement(ctx context.Context, req ImplementRequest) (synth.Report, error) {
	cfg := c.cfg()
	guidancePath := firstNonEmpty(req.GuidanceFile, cfg.Architect.GuidanceFile, guidance.DefaultFile)
	doc, err := guidance.Load(guidancePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return synth.Report{}, fmt.Errorf("%w: %s: %w", ErrNoGuidance, guidancePath, err)
		}
		return synth.Report{}, err
	}
	content := doc.ArchitectureContent()
	if strings.TrimSpace(content) == "" {
		return synth.Report{}, fmt.Errorf("%w: %s", ErrEmptyArchitecture, guidancePath)
	}
	components, err := extract.Extract(content)
	if err != nil {
		return synth.Report{}, fmt.Errorf("%s: %w", guidancePath, err)
	}

	workdir, err := c.implementDir(req, guidancePath)
	if err != nil {
		return synth.Report{}, err
	}
	runID := c.runID()
	log := c.logger().With("run_id", runID, "workdir", workdir)
	log.Info("implement started", "guidance", guidancePath, "components", components.Names())

	prof := techstack.ProfileFor(doc.TechStack().Lang())
	loop := synth.Loop{
		Agent:         c.runner(req, workdir),
		Verifier:      c.verifier(doc, prof, workdir),
		Workdir:       workdir,
		SrcDir:        cfg.Implement.SrcDir,
		TestDir:       cfg.Implement.TestDir,
		AgentTimeout:  cfg.Implement.AgentTimeout,
		VerifyTimeout: cfg.Implement.VerifyTimeout,
		MaxAttempts:   c.maxAttempts(req, doc),
		Logger:        log,
		Metrics:       c.Metrics,
		Now:           c.Now,
	}
	rep, err := loop.Run(ctx, components, doc)
	if err != nil {
		return synth.Report{}, err
	}
	rep.RunID = runID

	reportPath := filepath.Join(workdir, report.FileName)
	if err := report.Save(reportPath, rep); err != nil {
		log.Error("failed to write report", "path", reportPath, "error", err)
	} else {
		log.Info("report written", "path", reportPath)
	}
	c.mirrorReport(ctx, rep, reportPath)
	return rep, nil
}

func (c *Controller) implementDir(req ImplementRequest, guidancePath string) (string, error) {
	base := firstNonEmpty(req.Workdir, c.cfg().Implement.Workdir, ".")
	if !req.Fresh {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", wrapPath(err, "create workdir", base)
		}
		return base, nil
	}
	abs, err := filepath.Abs(guidancePath)
	if err != nil {
		return "", wrapPath(err, "resolve", guidancePath)
	}
	return freshDir(base, DirName("implementation", c.now(), filepath.Base(filepath.Dir(abs))))
}

func (c *Controller) runner(req ImplementRequest, workdir string) agent.Runner {
	if c.Agent != nil {
		return c.Agent
	}
	cfg := c.cfg()
	return &agent.CommandRunner{
		Command: cfg.Implement.AgentCommand,
		Model:   firstNonEmpty(req.Model, cfg.Implement.AgentModel, cfg.LLM.Model),
		Dir:     workdir,
		Logger:  c.Logger,
		Metrics: c.Metrics,
	}
}

// verifier prefers the configured command, then the guidance test_command,
// then the language profile.
func (c *Controller) verifier(doc guidance.Document, prof techstack.Profile, workdir string) agent.Verifier {
	if c.Verifier != nil {
		return c.Verifier
	}
	cmd := c.cfg().Implement.VerifyCommand
	if len(cmd) == 0 {
		cmd = doc.Testing.TestCommand
	}
	if len(cmd) == 0 {
		cmd = prof.TestCommand
	}
	return &agent.CommandVerifier{Command: cmd, Dir: workdir, Logger: c.Logger, Metrics: c.Metrics}
}

func (c *Controller) maxAttempts(req ImplementRequest, doc guidance.Document) int {
	switch {
	case req.MaxAttempts > 0:
		return req.MaxAttempts
	case doc.Implementation.MaxAttempts > 0:
		return doc.Implementation.MaxAttempts
	default:
		return c.cfg().Implement.MaxAttempts
	}
}

// mirrorReport uploads the report and every generated file that exists.
func (c *Controller) mirrorReport(ctx context.Context, rep synth.Report, reportPath string) {
	if c.Store == nil {
		return
	}
	log := c.logger().With("run_id", rep.RunID)
	upload := func(rel, abs string) {
		b, err := os.ReadFile(abs)
		if err != nil {
			return
		}
		if err := c.Store.Put(ctx, rep.RunID, rel, b); err != nil {
			log.Error("artifact mirror failed", "path", rel, "error", err)
		}
	}
	upload(report.FileName, reportPath)
	for _, o := range rep.Outcomes {
		for _, p := range []string{o.TestPath, o.SourcePath} {
			if p != "" {
				upload(p, filepath.Join(rep.Workdir, filepath.FromSlash(p)))
			}
		}
	}
}
