package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sparcflow/internal/agent"
	"sparcflow/internal/artifactstore"
	"sparcflow/internal/config"
	"sparcflow/internal/llm"
	"sparcflow/internal/metrics"
)

var (
	// ErrNoGuidance wraps fs.ErrNotExist when the guidance document is missing.
	ErrNoGuidance = errors.New("guidance document not found")
	// ErrEmptyArchitecture is returned when the guidance carries no architecture content.
	ErrEmptyArchitecture = errors.New("no architecture content found in guidance document")
	ErrNoDescription     = errors.New("project description is empty")
)

// Controller sequences both commands. Agent, Verifier and Store are optional;
// when nil the agent and verifier are built from Config and mirroring is off.
type Controller struct {
	Config   *config.Config
	LLM      llm.Client
	Agent    agent.Runner
	Verifier agent.Verifier
	Store    artifactstore.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	NewRunID func() string
}

func (c *Controller) cfg() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Controller) runID() string {
	if c.NewRunID != nil {
		return c.NewRunID()
	}
	return uuid.NewString()
}

// mirror uploads dir under runID. Failures only cost the copy, never the run.
func (c *Controller) mirror(ctx context.Context, runID, dir string) []string {
	if c.Store == nil {
		return nil
	}
	paths, err := artifactstore.MirrorDir(ctx, c.Store, runID, dir)
	if err != nil {
		c.logger().Error("artifact mirror failed", "run_id", runID, "dir", dir, "error", err)
		return paths
	}
	c.logger().Info("artifacts mirrored", "run_id", runID, "objects", len(paths))
	return paths
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func wrapPath(err error, what, path string) error {
	return fmt.Errorf("%s %s: %w", what, path, err)
}
