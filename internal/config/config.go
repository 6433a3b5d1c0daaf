package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "sparcflow.yaml"

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Architect ArchitectConfig `yaml:"architect"`
	Implement ImplementConfig `yaml:"implement"`
	Artifacts ArtifactConfig  `yaml:"artifacts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type LLMConfig struct {
	Provider  string        `yaml:"provider" validate:"omitempty,oneof=gemini openai anthropic ollama fake"`
	Model     string        `yaml:"model" validate:"required"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens" validate:"min=0"`
	RPS       float64       `yaml:"rps" validate:"min=0"`
	Burst     int           `yaml:"burst" validate:"min=0"`
	Retries   int           `yaml:"retries" validate:"min=1,max=10"`
	CacheSize int           `yaml:"cache_size" validate:"min=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"min=0"`

	// Keys come from the environment only.
	GeminiAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

type ArchitectConfig struct {
	BaseDir      string  `yaml:"base_dir" validate:"required"`
	Concurrency  int     `yaml:"concurrency" validate:"min=1,max=32"`
	Temperature  float64 `yaml:"temperature" validate:"min=0,max=2"`
	GuidanceFile string  `yaml:"guidance_file" validate:"required"`
}

type ImplementConfig struct {
	Workdir       string        `yaml:"workdir" validate:"required"`
	SrcDir        string        `yaml:"src_dir"`
	TestDir       string        `yaml:"test_dir"`
	MaxAttempts   int           `yaml:"max_attempts" validate:"min=1,max=10"`
	AgentTimeout  time.Duration `yaml:"agent_timeout" validate:"gt=0"`
	VerifyTimeout time.Duration `yaml:"verify_timeout" validate:"gt=0"`
	AgentCommand  []string      `yaml:"agent_command" validate:"required,min=1"`
	AgentModel    string        `yaml:"agent_model"`
	VerifyCommand []string      `yaml:"verify_command"`
}

type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Enabled true"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket" validate:"required_if=Enabled true"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MetricsConfig struct {
	File string `yaml:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "claude-3-5-sonnet-latest",
			MaxTokens: 4000,
			Retries:   1,
			CacheSize: 64,
			Timeout:   3 * time.Minute,
		},
		Architect: ArchitectConfig{
			BaseDir:      ".",
			Concurrency:  5,
			Temperature:  0.7,
			GuidanceFile: "guidance.toml",
		},
		Implement: ImplementConfig{
			Workdir:       ".",
			MaxAttempts:   3,
			AgentTimeout:  5 * time.Minute,
			VerifyTimeout: 60 * time.Second,
			AgentCommand:  []string{"aider", "--yes", "--model", "{model}", "--edit-format", "diff", "--message", "{message}", "{file}"},
		},
		Artifacts: ArtifactConfig{
			Region: "us-east-1",
			Bucket: "sparcflow-artifacts",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load resolves defaults, then the YAML file, then .env and the process
// environment. Flags are applied by the caller, which validates again.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	return LoadWith(path, os.Getenv)
}

// LoadWith is Load with an explicit environment lookup and no .env handling.
func LoadWith(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}

	c.LLM.Provider = firstNonEmpty(env("SPARC_PROVIDER"), c.LLM.Provider)
	c.LLM.Model = firstNonEmpty(env("SPARC_MODEL"), c.LLM.Model)
	c.LLM.BaseURL = firstNonEmpty(env("SPARC_BASE_URL", "OPENAI_BASE_URL", "OLLAMA_HOST"), c.LLM.BaseURL)
	c.LLM.GeminiAPIKey = env("GEMINI_API_KEY", "GOOGLE_API_KEY")
	c.LLM.OpenAIAPIKey = env("OPENAI_API_KEY")
	c.LLM.AnthropicAPIKey = env("ANTHROPIC_API_KEY")

	c.Implement.Workdir = firstNonEmpty(env("SPARC_WORKDIR"), c.Implement.Workdir)
	c.Implement.AgentModel = firstNonEmpty(env("SPARC_AGENT_MODEL"), c.Implement.AgentModel)
	if v := env("SPARC_AGENT_COMMAND"); v != "" {
		c.Implement.AgentCommand = strings.Fields(v)
	}
	if v := env("SPARC_VERIFY_COMMAND"); v != "" {
		c.Implement.VerifyCommand = strings.Fields(v)
	}
	if v := env("SPARC_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPARC_MAX_ATTEMPTS: %w", err)
		}
		c.Implement.MaxAttempts = n
	}

	c.Metrics.File = firstNonEmpty(env("SPARC_METRICS_FILE"), c.Metrics.File)
	c.Log.Level = strings.ToLower(firstNonEmpty(env("SPARC_LOG_LEVEL"), c.Log.Level))
	c.Log.Format = strings.ToLower(firstNonEmpty(env("SPARC_LOG_FORMAT"), c.Log.Format))

	a := &c.Artifacts
	a.Endpoint = firstNonEmpty(env("ARTIFACT_S3_ENDPOINT", "ARTIFACT_MINIO_ENDPOINT"), a.Endpoint)
	a.Region = firstNonEmpty(env("ARTIFACT_S3_REGION"), a.Region)
	a.Bucket = firstNonEmpty(env("ARTIFACT_S3_BUCKET"), a.Bucket)
	a.AccessKey = env("ARTIFACT_S3_ACCESS_KEY", "MINIO_ROOT_USER")
	a.SecretKey = env("ARTIFACT_S3_SECRET_KEY", "MINIO_ROOT_PASSWORD")
	if v := env("ARTIFACT_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			a.UseSSL = b
		}
	}
	if env("ARTIFACT_S3_ENDPOINT", "ARTIFACT_MINIO_ENDPOINT") != "" {
		a.Enabled = true
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
