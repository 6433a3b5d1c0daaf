package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sparcflow/internal/architect"
	"sparcflow/internal/artifact"
	"sparcflow/internal/guidance"
	"sparcflow/internal/safeio"
	"sparcflow/internal/techstack"
)

type ArchitectRequest struct {
	Description string
	// Model overrides the configured completion model.
	Model        string
	GuidanceFile string
	// OutDir resumes into an existing directory; empty creates a fresh one
	// under BaseDir.
	OutDir     string
	BaseDir    string
	ImportDocs string
	Force      bool
}

type ArchitectResult struct {
	RunID        string
	Description  string
	OutDir       string
	GuidancePath string
	Stack        techstack.TechStack
	Stage        techstack.Stage
	Written      []artifact.Name
	Skipped      []artifact.Name
	Reused       []artifact.Name
	Imported     []string
	Mirrored     []string
}

// Architect generates the design documents and the guidance document for a
// project description. A generation failure leaves no new document behind.
func (c *Controller) Architect(ctx context.Context, req ArchitectRequest) (ArchitectResult, error) {
	cfg := c.cfg()
	res := ArchitectResult{RunID: c.runID()}
	log := c.logger().With("run_id", res.RunID)
	description := strings.TrimSpace(req.Description)
	if description == "" {
		if req.ImportDocs == "" {
			return ArchitectResult{}, ErrNoDescription
		}
		description = describeImported(req)
		log.Info("using project description from imported documents", "description", description)
	}
	res.Description = description

	outDir, fresh, err := c.architectDir(req, description)
	if err != nil {
		return ArchitectResult{}, err
	}
	res.OutDir = outDir
	root, err := safeio.NewSafeFS(outDir)
	if err != nil {
		return ArchitectResult{}, fmt.Errorf("output dir %s: %w", outDir, err)
	}
	log = log.With("out_dir", root.Root())
	log.Info("architect started", "fresh", fresh)

	if req.ImportDocs != "" {
		imp, err := artifact.Import(req.ImportDocs, root, req.Force, log)
		if err != nil {
			return ArchitectResult{}, err
		}
		res.Imported = imp.Imported
	}
	imported, err := artifact.ImportedContext(root)
	if err != nil {
		return ArchitectResult{}, fmt.Errorf("read imported docs: %w", err)
	}
	existing, err := artifact.LoadExisting(root)
	if err != nil {
		return ArchitectResult{}, err
	}

	model := firstNonEmpty(req.Model, cfg.LLM.Model)
	detectInput := description
	if imported != "" {
		detectInput += "\n\nImported Content:" + imported
	}
	det := techstack.Detector{LLM: c.LLM, Model: model, Logger: log}
	res.Stack, res.Stage = det.DetectWithStage(ctx, detectInput)

	gen := architect.Generator{
		LLM:         c.LLM,
		Model:       model,
		Concurrency: cfg.Architect.Concurrency,
		Temperature: cfg.Architect.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      log,
		Metrics:     c.Metrics,
	}
	out, err := gen.Generate(ctx, description, res.Stack, architect.Options{Existing: existing, Imported: imported})
	if err != nil {
		if fresh && req.ImportDocs == "" {
			// only removes the directory when it is still empty
			_ = os.Remove(outDir)
		}
		return ArchitectResult{}, err
	}
	res.Reused = out.Reused

	guidanceName := filepath.Base(firstNonEmpty(req.GuidanceFile, cfg.Architect.GuidanceFile, guidance.DefaultFile))
	set := renameGuidance(out.Set, artifact.Name(guidanceName))
	persisted, err := artifact.Persist(root, set, log)
	if err != nil {
		return res, err
	}
	res.Written, res.Skipped = persisted.Written, persisted.Skipped
	res.GuidancePath = filepath.Join(outDir, guidanceName)

	res.Mirrored = c.mirror(ctx, res.RunID, outDir)
	log.Info("architect finished", "written", len(res.Written), "skipped", len(res.Skipped), "guidance", res.GuidancePath)
	return res, nil
}

func (c *Controller) architectDir(req ArchitectRequest, description string) (string, bool, error) {
	if req.OutDir != "" {
		if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
			return "", false, fmt.Errorf("create %s: %w", req.OutDir, err)
		}
		return req.OutDir, false, nil
	}
	base := firstNonEmpty(req.BaseDir, c.cfg().Architect.BaseDir, ".")
	dir, err := freshDir(base, DirName("architecture", c.now(), Slug(description)))
	return dir, true, err
}

// describeImported derives the description from the imported specification,
// falling back to one already in OutDir when resuming.
func describeImported(req ArchitectRequest) string {
	for _, dir := range []string{req.ImportDocs, req.OutDir} {
		if dir == "" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, string(artifact.Specification)))
		if err == nil {
			return artifact.DescriptionFrom(string(b))
		}
	}
	return artifact.FallbackDescription
}

func renameGuidance(set *artifact.Set, name artifact.Name) *artifact.Set {
	if name == artifact.Guidance {
		return set
	}
	out := artifact.NewSet()
	for _, n := range set.Names() {
		content, _ := set.Get(n)
		if n == artifact.Guidance {
			n = name
		}
		out.Put(n, content)
	}
	return out
}
