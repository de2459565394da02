// Package rewrite turns a user question into a compact web-search query.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/llm"
	"github.com/hyperjump/mxrag/pkg/utils"
)

const (
	// shortQuestionTokens is the largest question used verbatim without a completion call.
	shortQuestionTokens = 5
	// maxBareAnswerTokens is the largest comma-free completion accepted as a query.
	maxBareAnswerTokens = 6

	keywordMaxTokens   = 64
	keywordTemperature = 0.1

	domainQualifier = " aircraft maintenance"
)

const keywordPrompt = `You are a search query generator. Given the user question, extract or rewrite it into 3–5 concise search terms (comma-separated), focusing on the core concepts:
Question: "%s"
Keywords:`

// domainTerm matches words that already anchor a query to aviation maintenance.
var domainTerm = regexp.MustCompile(`(?i)\b(aircraft|airplane|aeroplane|aviation|airframe|avionics|maintenance|helicopter|airliner|faa|easa)\b`)

// Rewriter builds search keywords, delegating long questions to a completer.
type Rewriter struct {
	completer llm.Completer
	logger    *zap.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Rewriter) {
		r.logger = utils.OrNop(l)
	}
}

// NewRewriter returns a Rewriter that uses c for long questions.
func NewRewriter(c llm.Completer, opts ...Option) *Rewriter {
	r := &Rewriter{completer: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite returns search keywords for question. It never fails: any completion problem
// yields the original question.
func (r *Rewriter) Rewrite(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if len(strings.Fields(question)) <= shortQuestionTokens {
		if domainTerm.MatchString(question) {
			return question
		}
		return question + domainQualifier
	}

	out, err := r.completer.Complete(ctx, fmt.Sprintf(keywordPrompt, question), keywordMaxTokens, keywordTemperature)
	if err != nil {
		r.logger.Warn("keyword generation failed, using question", zap.String("query", question), zap.Error(err))
		return question
	}
	return postProcess(out, question)
}

// postProcess picks a usable query from completion output, falling back to question.
func postProcess(out, question string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return question
	}
	if !strings.Contains(out, ",") && len(strings.Fields(out)) <= maxBareAnswerTokens {
		return out
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, ",") {
			return strings.TrimSpace(line)
		}
	}
	return question
}
