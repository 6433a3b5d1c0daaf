package architect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sparcflow/internal/artifact"
	"sparcflow/internal/guidance"
	"sparcflow/internal/llm"
	"sparcflow/internal/metrics"
	"sparcflow/internal/techstack"
)

const (
	DefaultConcurrency = 5
	DefaultTemperature = 0.7
)

// GenerationError names the document whose completion call failed.
type GenerationError struct {
	Document artifact.Name
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate %s: %v", e.Document, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces the five design documents and the guidance document.
type Generator struct {
	LLM         llm.Client
	Model       string
	Concurrency int
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Options carries per-run inputs that are not part of the generator setup.
type Options struct {
	// Existing documents are reused as-is instead of being regenerated.
	Existing map[artifact.Name]string
	// Imported is extra project context for the system prompt.
	Imported string
}

// Result is the generated set plus the accumulator that fed the guidance.
type Result struct {
	Set                 *artifact.Set
	ArchitectureContent string
	Guidance            guidance.Document
	Reused              []artifact.Name
}

// Generate runs one completion per missing document on a bounded pool. Any
// failure aborts the whole run and no set is returned.
func (g *Generator) Generate(ctx context.Context, description string, stack techstack.TechStack, opts Options) (Result, error) {
	log := g.logger()
	stack = stack.Normalize()
	system := artifact.SystemPrompt(description, stack, opts.Imported)
	prompts := artifact.Prompts(description)

	contents := make([]string, len(artifact.Documents))
	var reused []artifact.Name

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency())
	for i, name := range artifact.Documents {
		if c, ok := opts.Existing[name]; ok {
			contents[i] = c
			reused = append(reused, name)
			g.Metrics.ObserveDocument(string(name), "reused")
			log.Info("reusing existing document", "document", string(name))
			continue
		}
		if g.LLM == nil {
			return Result{}, &GenerationError{Document: name, Err: fmt.Errorf("no completion client")}
		}
		i, name := i, name
		eg.Go(func() error {
			start := time.Now()
			log.Info("generating document", "document", string(name))
			out, err := g.LLM.Complete(llm.WithPhase(egCtx, string(name)), llm.Request{
				Model:       g.Model,
				System:      system,
				Prompt:      prompts[name],
				Temperature: g.temperature(),
				MaxTokens:   g.MaxTokens,
			})
			if err == nil && strings.TrimSpace(out) == "" {
				err = llm.ErrEmptyResponse
			}
			if err != nil {
				g.Metrics.ObserveDocument(string(name), "failed")
				return &GenerationError{Document: name, Err: err}
			}
			contents[i] = out
			g.Metrics.ObserveDocument(string(name), "generated")
			log.Info("generated document", "document", string(name), "chars", len(out), "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error("architecture generation failed", "error", err)
		return Result{}, err
	}

	set := artifact.NewSet()
	var acc strings.Builder
	for i, name := range artifact.Documents {
		set.Put(name, contents[i])
		if name.Accumulates() {
			acc.WriteString(artifact.AccumulatorBlock(name, contents[i]))
		}
	}
	doc := guidance.New(stack, acc.String(), description)
	rendered, err := guidance.Render(doc)
	if err != nil {
		return Result{}, &GenerationError{Document: artifact.Guidance, Err: err}
	}
	set.Put(artifact.Guidance, string(rendered))

	return Result{Set: set, ArchitectureContent: acc.String(), Guidance: doc, Reused: reused}, nil
}

func (g *Generator) concurrency() int {
	if g.Concurrency > 0 {
		return g.Concurrency
	}
	return DefaultConcurrency
}

func (g *Generator) temperature() float64 {
	if g.Temperature > 0 {
		return g.Temperature
	}
	return DefaultTemperature
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
