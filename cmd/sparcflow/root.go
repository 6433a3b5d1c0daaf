package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"sparcflow/internal/artifactstore"
	"sparcflow/internal/config"
	"sparcflow/internal/llm"
	"sparcflow/internal/metrics"
	"sparcflow/internal/pipeline"
)

// app carries what the subcommands share once flags and config are resolved.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	provider    string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	newLLM func(ctx context.Context, opts llm.Options) (llm.Client, error)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, newLLM: llm.New}
	root := &cobra.Command{
		Use:   "sparcflow",
		Short: "Generate SPARC design documents and implement them with a coding agent",
		Long: `sparcflow runs in two steps. "architect" turns a project description into the
five SPARC documents and a guidance.toml; "implement" reads the guidance and drives
a coding agent through test generation, implementation and verification for every
component it names.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&a.provider, "provider", "", "completion provider: gemini, openai, anthropic, ollama or fake")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "", "text or json")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the command ends")

	root.AddCommand(newArchitectCmd(a), newImplementCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider = a.provider
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = a.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = config.NewLogger(cfg.Log, a.errOut)
	a.metrics = metrics.New()
	return nil
}

// client builds the provider client for model and wraps it with the
// configured middleware chain.
func (a *app) client(ctx context.Context, model string) (llm.Client, error) {
	c := a.cfg.LLM
	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		return nil, err
	}
	raw, err := a.newLLM(ctx, llm.Options{
		Provider:        provider,
		Model:           firstNonEmpty(model, c.Model),
		BaseURL:         c.BaseURL,
		GeminiAPIKey:    c.GeminiAPIKey,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		AnthropicAPIKey: c.AnthropicAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return llm.Wrap(raw,
		llm.WithLogging(a.log),
		llm.WithMetrics(a.metrics),
		llm.Cache(c.CacheSize),
		llm.RateLimit(c.RPS, c.Burst),
		llm.Retry(c.Retries, 0),
		llm.Timeout(c.Timeout),
	), nil
}

func (a *app) store() artifactstore.Store {
	ac := a.cfg.Artifacts
	if !ac.Enabled {
		return nil
	}
	s, err := artifactstore.NewS3Store(artifactstore.S3Config{
		Endpoint:  ac.Endpoint,
		Region:    ac.Region,
		AccessKey: ac.AccessKey,
		SecretKey: ac.SecretKey,
		Bucket:    ac.Bucket,
		UseSSL:    ac.UseSSL,
	})
	if err != nil {
		a.log.Error("artifact mirror disabled", "error", err)
		return nil
	}
	return s
}

func (a *app) controller(client llm.Client) *pipeline.Controller {
	return &pipeline.Controller{
		Config:  a.cfg,
		LLM:     client,
		Store:   a.store(),
		Logger:  a.log,
		Metrics: a.metrics,
	}
}

func (a *app) flushMetrics() {
	if a.cfg == nil || a.cfg.Metrics.File == "" {
		return
	}
	if err := a.metrics.WriteFile(a.cfg.Metrics.File); err != nil {
		a.log.Error("failed to write metrics", "path", a.cfg.Metrics.File, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
