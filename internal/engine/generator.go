package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/kortex/internal/config"
)

// ErrGenerationUnavailable indicates the generation backend is not
// configured or failed. The engine folds it into deterministic fallbacks;
// it never reaches API callers.
var ErrGenerationUnavailable = errors.New("generation backend unavailable")

// Generator produces free-text answers from assembled prompts.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator calls an OpenAI-compatible chat completion backend through
// langchaingo, smoothed by a client-side limiter so bursts of questions
// do not trip the provider quota.
type LLMGenerator struct {
	llm     *openai.LLM
	limiter *rate.Limiter
}

// NewLLMGenerator creates a generator from AI configuration. An unset API
// key means no backend is configured and returns ErrGenerationUnavailable.
func NewLLMGenerator(cfg config.AIConfig) (*LLMGenerator, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: no API key configured", ErrGenerationUnavailable)
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey.Value()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &LLMGenerator{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}, nil
}

// Generate produces a completion for the prompt.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationUnavailable)
	}
	return out, nil
}

var _ Generator = (*LLMGenerator)(nil)
