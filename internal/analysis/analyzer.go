package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crucial707/dermalens/internal/config"
	"github.com/crucial707/dermalens/internal/metrics"
)

// RefusalMessage is the exact text the model is told to return for images
// that are not skin.
const RefusalMessage = "⚠️ content_warning: The uploaded image does not appear to be a skin lesion. This tool is designed specifically for skin analysis. Please upload a valid image."

// Disclaimer closes every descriptive analysis.
const Disclaimer = "Disclaimer: This is a descriptive analysis and not a medical diagnosis. Please consult a qualified dermatologist for confirmation."

// SystemPrompt is sent ahead of the image on every call.
const SystemPrompt = `
You are a specialized assistant for skin lesion analysis.

STEP 1: IMAGE VALIDATION
First, look at the image. Does it appear to be human skin, a skin lesion, a rash, or a dermatological condition?

- IF NO (e.g., it is a car, animal, plant, building, face without lesions, or random object):
  Output EXACTLY this message and stop:
  "` + RefusalMessage + `"

- IF YES (it is skin):
  Proceed to STEP 2.

STEP 2: DESCRIPTIVE ANALYSIS
Provide a visual description following these strict rules:
1. Describe what you see in neutral, objective terms (color, shape, texture, borders).
2. Use bullet points.
3. Do NOT provide a diagnosis (e.g., do not say "This is melanoma").
4. Do NOT give medical advice.
5. At the end, add this exact line:
   "` + Disclaimer + `"
`

// Analyzer produces a descriptive analysis of one image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (string, error)
}

// Error wraps any failure of the external call. Its message is the
// underlying error text so callers can show it as-is.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func newError(provider string, err error) *Error {
	return &Error{Provider: provider, Err: err}
}

// refusalBody is RefusalMessage without its leading warning sign, which
// models sometimes drop.
var refusalBody = strings.TrimSpace(strings.TrimPrefix(RefusalMessage, "⚠️"))

// Normalize returns exactly RefusalMessage when text opens with it, ignoring
// surrounding whitespace and quotes and dropping anything the model appended.
// Any other text is returned unchanged.
func Normalize(text string) string {
	t := strings.TrimLeft(strings.TrimSpace(text), "\"'`")
	if strings.HasPrefix(t, RefusalMessage) || strings.HasPrefix(t, refusalBody) {
		return RefusalMessage
	}
	return text
}

// IsRefusal reports whether text is, or opens with, the refusal message.
func IsRefusal(text string) bool {
	return Normalize(text) == RefusalMessage
}

// New builds the analyzer selected by cfg.AnalysisProvider, wrapped with the
// configured timeout and metrics.
func New(ctx context.Context, cfg config.Config) (Analyzer, error) {
	var (
		backend Analyzer
		err     error
	)
	switch cfg.AnalysisProvider {
	case config.ProviderGemini, "":
		backend, err = NewGemini(ctx, Options{APIKey: cfg.GeminiAPIKey, Model: cfg.AnalysisModel})
	case config.ProviderOpenAI:
		backend = NewOpenAI(Options{APIKey: cfg.OpenAIAPIKey, Model: cfg.AnalysisModel})
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.AnalysisProvider)
	}
	if err != nil {
		return nil, err
	}

	provider := cfg.AnalysisProvider
	if provider == "" {
		provider = config.ProviderGemini
	}
	return Instrument(provider, backend, cfg.AnalysisTimeout), nil
}

// Options configures a backend. An empty Model selects the backend default;
// BaseURL is only set to point at a test server or proxy.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

type instrumented struct {
	provider string
	next     Analyzer
	timeout  time.Duration
}

// Instrument bounds each call by timeout (zero means no bound) and records
// its outcome in the analysis metrics.
func Instrument(provider string, next Analyzer, timeout time.Duration) Analyzer {
	return &instrumented{provider: provider, next: next, timeout: timeout}
}

func (a *instrumented) Analyze(ctx context.Context, image []byte) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	done := metrics.StartAnalysis(a.provider)
	text, err := a.next.Analyze(ctx, image)
	if err == nil {
		text = Normalize(text)
	}
	switch {
	case err != nil:
		done(metrics.OutcomeError)
	case IsRefusal(text):
		done(metrics.OutcomeRefused)
	default:
		done(metrics.OutcomeOK)
	}
	return text, err
}
