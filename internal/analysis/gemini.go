package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

var errEmptyResponse = errors.New("the model returned an empty response")

// GeminiAnalyzer calls the Gemini generateContent API with the prompt and
// the raw image bytes.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, opts Options) (*GeminiAnalyzer, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Medical images trip the default filters, so every category is opened up.
var geminiSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(SystemPrompt),
		genai.NewPartFromBytes(image, mimetype.Detect(image).String()),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SafetySettings: geminiSafety,
	})
	if err != nil {
		return "", newError("gemini", err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", newError("gemini", fmt.Errorf("blocked prompt: %s", fb.BlockReason))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", newError("gemini", errEmptyResponse)
	}
	return Normalize(text), nil
}
