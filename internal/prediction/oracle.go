package prediction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Oracle produces a prediction from a remote model. A nil prediction with a
// nil error means the model gave no usable answer.
type Oracle interface {
	Predict(ctx context.Context, in Input) (*Prediction, error)
}

// GeminiOracle asks a Gemini model for a prediction
type GeminiOracle struct {
	client *genai.Client
	model  string
}

// NewGeminiOracle creates an oracle backed by the Gemini API
func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiOracle{client: client, model: model}, nil
}

// Predict sends the prompt and parses the reply
func (o *GeminiOracle) Predict(ctx context.Context, in Input) (*Prediction, error) {
	resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(buildPrompt(in)), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
			sb.WriteString("\n")
		}
	}
	return parseResponse(in, sb.String()), nil
}

func buildPrompt(in Input) string {
	methodology := in.Methodology
	if methodology == "" {
		methodology = "unspecified"
	}
	vintage := "unspecified"
	if in.VintageYear > 0 {
		vintage = strconv.Itoa(in.VintageYear)
	}

	return fmt.Sprintf(`You are a carbon market analyst. Estimate how many additional carbon credits
the following project will generate over the next %d years.

Project: %s
Current credits (tCO2e): %.2f
Methodology: %s
Vintage year: %s
Status: %s

Answer using exactly these lines:
PREDICTED_CREDITS: <additional credits as a number>
CONFIDENCE: <0-100>
REASONING: <one sentence>
FACTORS: <factor>; <factor>; ...
RISKS: <risk>; <risk>; ...`,
		HorizonYears, in.ProjectName, in.Quantity, methodology, vintage, in.Status)
}

var (
	predictedPattern  = regexp.MustCompile(`(?im)^\s*\**PREDICTED_CREDITS\**\s*:\s*([\d,]+(?:\.\d+)?)`)
	confidencePattern = regexp.MustCompile(`(?im)^\s*\**CONFIDENCE\**\s*:\s*(\d+(?:\.\d+)?)`)
	reasoningPattern  = regexp.MustCompile(`(?im)^\s*\**REASONING\**\s*:\s*(.+)$`)
	factorsPattern    = regexp.MustCompile(`(?im)^\s*\**FACTORS\**\s*:\s*(.+)$`)
	risksPattern      = regexp.MustCompile(`(?im)^\s*\**RISKS\**\s*:\s*(.+)$`)
)

// parseResponse extracts the labelled lines of a model reply. It returns nil
// when no predicted credit count is present.
func parseResponse(in Input, text string) *Prediction {
	m := predictedPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	additional, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}

	p := &Prediction{
		ProjectID:           in.ProjectID,
		CurrentCredits:      in.Quantity,
		PredictedAdditional: additional,
		PredictedTotal:      in.Quantity + additional,
		HorizonYears:        HorizonYears,
		Confidence:          confidence(in.ProjectName),
		Factors:             []string{},
		Risks:               []string{},
		Source:              SourceAI,
	}

	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Confidence = min(100, int(v))
		}
	}
	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		p.Reasoning = strings.TrimSpace(m[1])
	}
	if m := factorsPattern.FindStringSubmatch(text); m != nil {
		p.Factors = splitList(m[1])
	}
	if m := risksPattern.FindStringSubmatch(text); m != nil {
		p.Risks = splitList(m[1])
	}
	return p
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
