// Package pipeline runs one question through embedding, retrieval, the web-search decision,
// prompt composition and generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/config"
	"github.com/hyperjump/mxrag/internal/decision"
	"github.com/hyperjump/mxrag/internal/embedding"
	"github.com/hyperjump/mxrag/internal/llm"
	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/prompt"
	"github.com/hyperjump/mxrag/internal/websearch"
	"github.com/hyperjump/mxrag/pkg/utils"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrEmbedding is returned when the question cannot be embedded.
	ErrEmbedding = errors.New("embedding failed")
	// ErrGeneration is returned when the answer cannot be generated after a retry.
	ErrGeneration = errors.New("generation failed")
)

const (
	defaultAnswerTokens = 1024
	defaultTemperature  = 0.1
	defaultWebResults   = 5
	generationAttempts  = 2
)

// Retriever finds and ranks evidence for a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, query models.Query, vec []float32, topK int) *models.RetrievalResult
}

// Rewriter turns a question into web-search keywords.
type Rewriter interface {
	Rewrite(ctx context.Context, question string) string
}

// Dependencies are the collaborators of an Orchestrator.
type Dependencies struct {
	Embedder  embedding.Embedder
	Retriever Retriever
	Rewriter  Rewriter
	Searcher  websearch.Searcher
	Generator llm.Completer
}

// Orchestrator is the answer state machine. It holds no per-request state.
type Orchestrator struct {
	deps         Dependencies
	engine       config.EngineConfig
	timeouts     config.TimeoutConfig
	answerTokens int
	temperature  float64
	webResults   int
	retryDelay   time.Duration
	logger       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = utils.OrNop(l)
	}
}

// WithTimeouts bounds each collaborator call. Zero durations are unbounded.
func WithTimeouts(t config.TimeoutConfig) Option {
	return func(o *Orchestrator) {
		o.timeouts = t
	}
}

// WithGeneration sets the answer size and sampling temperature.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(o *Orchestrator) {
		if maxTokens > 0 {
			o.answerTokens = maxTokens
		}
		o.temperature = temperature
	}
}

// WithWebResults sets how many web results are requested.
func WithWebResults(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.webResults = n
		}
	}
}

// WithRetryDelay sets the pause before the generation retry.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryDelay = d
	}
}

// NewOrchestrator returns an Orchestrator. engine is copied and never changed.
func NewOrchestrator(deps Dependencies, engine config.EngineConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:         deps,
		engine:       engine,
		answerTokens: defaultAnswerTokens,
		temperature:  defaultTemperature,
		webResults:   defaultWebResults,
		retryDelay:   500 * time.Millisecond,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the state of a single request.
type run struct {
	answer *models.Answer
	start  time.Time
	log    *zap.Logger
}

func (r *run) enter(s models.State, fields ...zap.Field) {
	r.answer.State = s
	r.answer.Trace = append(r.answer.Trace, s)
	r.log.Debug("pipeline state", append([]zap.Field{zap.String("state", string(s))}, fields...)...)
}

func (r *run) finish() *models.Answer {
	r.answer.LatencySeconds = time.Since(r.start).Seconds()
	return r.answer
}

// Answer runs question through the pipeline. Only an empty question, an embedding failure
// or a generation failure are returned as errors; every other collaborator failure degrades.
func (o *Orchestrator) Answer(ctx context.Context, question string, tags models.Tags) (*models.Answer, error) {
	requestID := uuid.NewString()
	r := &run{
		answer: &models.Answer{RequestID: requestID},
		start:  time.Now(),
		log:    o.logger.With(zap.String("request_id", requestID)),
	}
	r.enter(models.StateStart)

	query := models.NewQuery(question, tags)
	if query.RawText == "" {
		return nil, ErrEmptyQuestion
	}

	vec, err := o.embed(ctx, query.EnhancedText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	r.enter(models.StateEmbedded)

	result := o.deps.Retriever.Retrieve(ctx, query, vec, o.engine.TopK)
	r.answer.Hits = result.Hits
	r.enter(models.StateRetrieved,
		zap.Int("hits", len(result.Hits)),
		zap.Bool("found_relevant", result.FoundRelevant),
		zap.Float64("top_score", result.TopScore))
	if err := abandoned(ctx); err != nil {
		return nil, err
	}

	d := decision.Gate(
		decision.Decide(result, o.engine.HybridModeEnabled, o.engine.SimilarityThresholdOrDefault()),
		o.engine.WebSearchOrDefault(),
	)
	r.answer.DecisionReason = d.Reason
	r.enter(models.StateDecided, zap.Bool("search_web", d.SearchWeb), zap.String("reason", d.Reason))

	var web models.WebEvidence
	if d.SearchWeb {
		web = o.searchWeb(ctx, r, query.RawText)
		r.enter(models.StateSearched, zap.String("keywords", r.answer.SearchKeywords), zap.Int("results", web.Results))
	}
	if err := abandoned(ctx); err != nil {
		return nil, err
	}

	if len(result.Hits) == 0 && web.IsEmpty() {
		r.answer.Text = prompt.NoEvidenceAnswer
		r.enter(models.StateNoEvidence)
		return r.finish(), nil
	}

	gc := prompt.Compose(result.Hits, web)
	r.answer.Layout = gc.Layout
	r.enter(models.StateComposed, zap.String("layout", string(gc.Layout)))

	text, err := o.generate(ctx, prompt.BuildAnswerPrompt(query.RawText, gc))
	if err != nil {
		r.log.Error("generation failed", zap.String("query", query.RawText), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	r.answer.Text = prompt.EnsureSourcesNote(text)
	r.enter(models.StateAnswered)
	return r.finish(), nil
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, o.timeouts.Embed)
	defer cancel()
	return o.deps.Embedder.Embed(ctx, text)
}

// searchWeb rewrites the question and runs the live search. Failures yield empty evidence.
func (o *Orchestrator) searchWeb(ctx context.Context, r *run, question string) models.WebEvidence {
	rewriteCtx, cancel := withTimeout(ctx, o.timeouts.Completion)
	keywords := o.deps.Rewriter.Rewrite(rewriteCtx, question)
	cancel()
	r.answer.SearchKeywords = keywords
	r.answer.WebSearched = true

	searchCtx, cancel := withTimeout(ctx, o.timeouts.WebSearch)
	defer cancel()
	results, err := o.deps.Searcher.Search(searchCtx, keywords, o.webResults)
	if err != nil {
		r.log.Warn("web search failed, continuing with database evidence",
			zap.String("query", keywords), zap.Error(err))
		return models.WebEvidence{}
	}
	return models.NewWebEvidence(results)
}

// generate calls the generator, retrying once unless the request was cancelled.
func (o *Orchestrator) generate(ctx context.Context, p string) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			callCtx, cancel := withTimeout(ctx, o.timeouts.Completion)
			defer cancel()
			out, err := o.deps.Generator.Complete(callCtx, p, o.answerTokens, o.temperature)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				return llm.ErrEmptyCompletion
			}
			text = out
			return nil
		},
		retry.Attempts(generationAttempts),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, context.Canceled) }),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Warn("generation attempt failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return text, err
}

// abandoned wraps ctx.Err once the request is cancelled or past its deadline.
func abandoned(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("answer cancelled: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
