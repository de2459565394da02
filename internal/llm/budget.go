package llm

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/pkg/utils"
)

const (
	encodingName = "cl100k_base"
	// minCompletionTokens is the floor left for the answer when the prompt nearly fills the window.
	minCompletionTokens = 16
)

// The BPE ranks ship inside the binary; the default loader would fetch them over HTTP
// without a deadline on the first completion.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Budget keeps prompt plus completion inside a model's context window.
type Budget struct {
	window int
	count  func(string) int

	once   sync.Once
	enc    *tiktoken.Tiktoken
	logger *zap.Logger
}

// NewBudget returns a Budget for a window of the given size in tokens. A non-positive
// window disables clamping.
func NewBudget(window int, logger *zap.Logger) *Budget {
	b := &Budget{window: window, logger: utils.OrNop(logger)}
	b.count = b.tiktokenCount
	return b
}

// CountTokens returns the token count of text. If the BPE ranks cannot be loaded it falls
// back to an estimate of four characters per token.
func (b *Budget) CountTokens(text string) int {
	return b.count(text)
}

func (b *Budget) tiktokenCount(text string) int {
	b.once.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			b.logger.Warn("tiktoken encoding unavailable, estimating token counts", zap.Error(err))
			return
		}
		b.enc = enc
	})
	if b.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Clamp returns requested reduced to the room left by prompt, never below a small floor.
func (b *Budget) Clamp(prompt string, requested int) int {
	if b.window <= 0 {
		return requested
	}
	room := b.window - b.CountTokens(prompt)
	if room < minCompletionTokens {
		room = minCompletionTokens
	}
	if requested > room {
		return room
	}
	return requested
}

type budgeted struct {
	next   Completer
	budget *Budget
}

// WithBudget wraps c so every call's maxTokens is clamped by b.
func WithBudget(c Completer, b *Budget) Completer {
	return &budgeted{next: c, budget: b}
}

func (c *budgeted) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	clamped := c.budget.Clamp(prompt, maxTokens)
	if clamped != maxTokens {
		c.budget.logger.Debug("completion size clamped to context window",
			zap.Int("requested", maxTokens),
			zap.Int("max_tokens", clamped))
	}
	return c.next.Complete(ctx, prompt, clamped, temperature)
}
