package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StubGenerator returns canned text without calling any model. Used for local
// development and tests.
type StubGenerator struct {
	// Response overrides the canned letter when set.
	Response string
	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls []string
}

// NewStubGenerator returns a stub that writes a short placeholder letter.
func NewStubGenerator() *StubGenerator {
	return &StubGenerator{}
}

// Model identifies stub output on stored letters.
func (g *StubGenerator) Model() string {
	return "stub"
}

// GenerateText returns Response, or a placeholder letter echoing the first
// line of the user prompt.
func (g *StubGenerator) GenerateText(ctx context.Context, _, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.calls = append(g.calls, userPrompt)
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if g.Response != "" {
		return nonEmpty(g.Response)
	}

	firstLine, _, _ := strings.Cut(strings.TrimSpace(userPrompt), "\n")
	return fmt.Sprintf(`## Introduction

Dear Visa Officer,

This is a placeholder letter generated in stub mode. %s

## Conclusion

Thank you for considering my application.`, firstLine), nil
}

// Calls returns the user prompts received so far.
func (g *StubGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
