package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"
)

// GeminiGenerator calls the Gemini generateContent API.
type GeminiGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewGeminiGenerator builds a Gemini TextGenerator.
func NewGeminiGenerator(opts Options) *GeminiGenerator {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := strings.TrimPrefix(strings.TrimSpace(opts.Model), "models/")
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(opts.APIKey),
		model:       model,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// GenerateText implements TextGenerator using Gemini.
func (g *GeminiGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: userPrompt}},
		}},
		GenerationConfig: geminiGenerationConfig{Temperature: g.temperature},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// the URL carries the key; keep it out of the error text
		return "", fmt.Errorf("gemini request failed: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil && resp.StatusCode < 400 {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if genResp.Error != nil && genResp.Error.Message != "" {
			return "", fmt.Errorf("gemini api error: %s", genResp.Error.Message)
		}
		return "", fmt.Errorf("gemini api error: %s", resp.Status)
	}

	if len(genResp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return nonEmpty(text.String())
}

func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
