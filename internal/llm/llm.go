// Package llm provides text-completion clients for OpenAI-compatible endpoints and Ollama.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/config"
)

// ErrEmptyCompletion is returned when the service answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// New builds the completer selected by cfg.Provider. Requested completion sizes are
// clamped to what fits in cfg.ContextWindow.
func New(cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	var c Completer
	switch cfg.Provider {
	case "openai":
		c = NewOpenAICompleter(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "ollama":
		oc, err := NewOllamaCompleter(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		c = oc
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, ollama)", cfg.Provider)
	}
	return WithBudget(c, NewBudget(cfg.ContextWindow, logger)), nil
}
