package techstack

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"sparcflow/internal/llm"
	"sparcflow/internal/util/jsonutil"
)

// Stage names the step of the degrade chain that produced a stack.
type Stage string

const (
	StageStrict   Stage = "strict"
	StageEmbedded Stage = "embedded"
	StageFields   Stage = "fields"
	StageDefault  Stage = "default"
)

const detectTemperature = 0.1

const systemPrompt = `You are a technical analyst. Extract the technology stack from the project description.
Return only a JSON object with these fields:
{
    "framework": "name of the framework",
    "language": "primary programming language",
    "features": ["list", "of", "features"]
}`

var (
	reFramework = regexp.MustCompile(`"framework"\s*:\s*"([^"]+)"`)
	reLanguage  = regexp.MustCompile(`"language"\s*:\s*"([^"]+)"`)
	reFeatures  = regexp.MustCompile(`(?s)"features"\s*:\s*\[(.*?)\]`)
)

// Detector asks the model for the stack and degrades instead of failing.
type Detector struct {
	LLM    llm.Client
	Model  string
	Logger *slog.Logger
}

// Detect never fails; the returned stack always has a language.
func (d *Detector) Detect(ctx context.Context, description string) TechStack {
	ts, _ := d.DetectWithStage(ctx, description)
	return ts
}

// DetectWithStage is Detect plus the degrade-chain stage that answered.
func (d *Detector) DetectWithStage(ctx context.Context, description string) (TechStack, Stage) {
	log := d.logger()
	if d.LLM == nil {
		log.Warn("tech stack detection skipped: no completion client")
		return Default(), StageDefault
	}
	raw, err := d.LLM.Complete(llm.WithPhase(ctx, llm.PhaseTechStack), llm.Request{
		Model:       d.Model,
		System:      systemPrompt,
		Prompt:      "Extract tech stack from: " + description,
		Temperature: detectTemperature,
	})
	if err != nil {
		log.Error("failed to detect tech stack", "error", err)
		return Default(), StageDefault
	}
	ts, stage := Parse(raw)
	log.Info("detected tech stack", "framework", ts.Framework, "language", ts.Language, "features", ts.Features, "stage", string(stage))
	return ts, stage
}

// Parse runs the decode part of the chain over a model response: strict decode,
// then an embedded object, then per-field patterns with defaults.
func Parse(raw string) (TechStack, Stage) {
	var ts TechStack
	if err := jsonutil.UnmarshalFlex([]byte(strings.TrimSpace(raw)), &ts); err == nil {
		return ts.Normalize(), StageStrict
	}
	if frag, err := jsonutil.ExtractObject(raw); err == nil {
		ts = TechStack{}
		if err := jsonutil.UnmarshalFlex([]byte(frag), &ts); err == nil {
			return ts.Normalize(), StageEmbedded
		}
	}
	return parseFields(raw), StageFields
}

func parseFields(raw string) TechStack {
	ts := TechStack{Framework: DefaultFramework, Language: DefaultLanguage, Features: []string{}}
	if m := reFramework.FindStringSubmatch(raw); m != nil {
		ts.Framework = m[1]
	}
	if m := reLanguage.FindStringSubmatch(raw); m != nil {
		ts.Language = m[1]
	}
	if m := reFeatures.FindStringSubmatch(raw); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			ts.Features = append(ts.Features, strings.Trim(strings.TrimSpace(f), `"'`))
		}
	}
	return ts.Normalize()
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
