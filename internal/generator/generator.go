// Package generator calls the hosted text-generation model that writes letters.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStub   = "stub"
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("AI generated empty response")
	// ErrMissingAPIKey is returned at call time when no key is configured.
	ErrMissingAPIKey = errors.New("AI API key is not configured")
)

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Model is recorded on each stored letter.
	Model() string
}

// Options configures a TextGenerator. Empty BaseURL and Model select the
// provider's defaults.
type Options struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// New builds the generator for opts.Provider. A missing API key is not an
// error here; the first GenerateText call reports it.
func New(opts Options) (TextGenerator, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAICompatGenerator(opts), nil
	case ProviderGemini:
		return NewGeminiGenerator(opts), nil
	case ProviderStub:
		return NewStubGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", opts.Provider)
	}
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
