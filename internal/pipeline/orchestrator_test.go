package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/mxrag/internal/config"
	"github.com/hyperjump/mxrag/internal/decision"
	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/prompt"
)

type recordingEmbedder struct {
	mu     sync.Mutex
	texts  []string
	err    error
	onCall func()
}

func (e *recordingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.onCall != nil {
		e.onCall()
	}
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}
func (e *recordingEmbedder) Dimensions() int { return 3 }
func (e *recordingEmbedder) Close() error    { return nil }

type stubRetriever struct {
	result *models.RetrievalResult
	gotK   int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ models.Query, _ []float32, topK int) *models.RetrievalResult {
	s.gotK = topK
	return s.result
}

type stubRewriter struct{ calls int }

func (s *stubRewriter) Rewrite(_ context.Context, question string) string {
	s.calls++
	return "kw: " + question
}

type stubSearcher struct {
	results []models.WebResult
	err     error
	calls   int
	gotKW   string
	onCall  func()
}

func (s *stubSearcher) Search(_ context.Context, keywords string, n int) ([]models.WebResult, error) {
	s.calls++
	s.gotKW = keywords
	if s.onCall != nil {
		s.onCall()
	}
	return s.results, s.err
}

type stubGenerator struct {
	outputs []string
	errs    []error
	calls   int
	prompts []string
}

func (g *stubGenerator) Complete(_ context.Context, p string, _ int, _ float64) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, p)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(g.outputs) {
		return g.outputs[i], nil
	}
	return "generated answer", nil
}

type fixture struct {
	embedder  *recordingEmbedder
	retriever *stubRetriever
	rewriter  *stubRewriter
	searcher  *stubSearcher
	generator *stubGenerator
}

func newFixture(result *models.RetrievalResult) *fixture {
	return &fixture{
		embedder:  &recordingEmbedder{},
		retriever: &stubRetriever{result: result},
		rewriter:  &stubRewriter{},
		searcher:  &stubSearcher{},
		generator: &stubGenerator{},
	}
}

func (f *fixture) orchestrator(engine config.EngineConfig) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Embedder:  f.embedder,
		Retriever: f.retriever,
		Rewriter:  f.rewriter,
		Searcher:  f.searcher,
		Generator: f.generator,
	}, engine, WithRetryDelay(0))
}

func engine(hybrid bool) config.EngineConfig {
	return config.EngineConfig{SimilarityThreshold: ptr(0.5), HybridModeEnabled: hybrid, TopK: 3, MinRelevance: ptr(0.4)}
}

func ptr(v float64) *float64 { return &v }

func strongResult() *models.RetrievalResult {
	h := models.NewContextHit("aircraft_maintenance_logs", "1", 0.7, "Problem: brake worn\nAction: replaced", true, true)
	return &models.RetrievalResult{Hits: []models.ContextHit{h}, FoundRelevant: true, TopScore: h.CombinedScore}
}

func TestAnswer_vectorOnly(t *testing.T) {
	f := newFixture(strongResult())
	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "Why is the brake wear pin flush?", models.Tags{})
	require.NoError(t, err)

	assert.Equal(t, "generated answer", ans.Text)
	assert.Equal(t, models.StateAnswered, ans.State)
	assert.Equal(t, models.LayoutVectorOnly, ans.Layout)
	assert.False(t, ans.WebSearched)
	assert.Equal(t, decision.ReasonSufficient, ans.DecisionReason)
	assert.Zero(t, f.searcher.calls, "no web call")
	assert.Zero(t, f.rewriter.calls)
	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, 3, f.retriever.gotK)
	assert.Contains(t, f.generator.prompts[0], "[aircraft_maintenance_logs | 1.000] Problem: brake worn")
	assert.Equal(t, []models.State{
		models.StateStart, models.StateEmbedded, models.StateRetrieved,
		models.StateDecided, models.StateComposed, models.StateAnswered,
	}, ans.Trace)
	assert.NotEmpty(t, ans.RequestID)
	assert.GreaterOrEqual(t, ans.LatencySeconds, 0.0)
}

func TestAnswer_noEvidence(t *testing.T) {
	f := newFixture(&models.RetrievalResult{})
	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "What is the torque for the flux capacitor?", models.Tags{})
	require.NoError(t, err)

	assert.Equal(t, prompt.NoEvidenceAnswer, ans.Text)
	assert.Equal(t, models.StateNoEvidence, ans.State)
	assert.Zero(t, f.generator.calls, "generator never called")
	assert.Equal(t, 1, f.searcher.calls)
	assert.True(t, ans.WebSearched)
	assert.Equal(t, decision.ReasonNoRelevantHits, ans.DecisionReason)
	assert.Equal(t, []models.State{
		models.StateStart, models.StateEmbedded, models.StateRetrieved,
		models.StateDecided, models.StateSearched, models.StateNoEvidence,
	}, ans.Trace)
}

func TestAnswer_hybridMode(t *testing.T) {
	f := newFixture(strongResult())
	f.searcher.results = []models.WebResult{{Title: "Wear pins", Body: "Replace when flush", URL: "https://a.example"}}

	ans, err := f.orchestrator(engine(true)).Answer(context.Background(), "brake wear pin flush", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, models.LayoutHybrid, ans.Layout)
	assert.Equal(t, decision.ReasonHybridMode, ans.DecisionReason)
	assert.Equal(t, "kw: brake wear pin flush", f.searcher.gotKW)
	assert.Equal(t, "kw: brake wear pin flush", ans.SearchKeywords)
	assert.Contains(t, f.generator.prompts[0], "Source 1: Wear pins")
}

func TestAnswer_webPrimary(t *testing.T) {
	weak := models.NewContextHit("acn", "9", 0.3, "Crew noted vibration", false, true)
	f := newFixture(&models.RetrievalResult{Hits: []models.ContextHit{weak}, FoundRelevant: true, TopScore: weak.CombinedScore})
	f.searcher.results = []models.WebResult{{Title: "Wear pins", Body: "Replace when flush", URL: "https://a.example"}}

	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear pin flush", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, decision.ReasonLowTopScore, ans.DecisionReason)
	assert.Equal(t, models.LayoutWebPrimary, ans.Layout)
}

func TestAnswer_webSearchFailureDegrades(t *testing.T) {
	weak := models.NewContextHit("acn", "9", 0.3, "Crew noted vibration", false, false)
	f := newFixture(&models.RetrievalResult{Hits: []models.ContextHit{weak}, TopScore: weak.CombinedScore})
	f.searcher.err = context.DeadlineExceeded

	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "vibration in climb", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, models.StateAnswered, ans.State)
	assert.Equal(t, models.LayoutVectorOnly, ans.Layout)
	assert.Equal(t, 1, f.generator.calls)
}

func TestAnswer_webSearchDisabled(t *testing.T) {
	f := newFixture(&models.RetrievalResult{})
	eng := engine(false)
	disabled := false
	eng.WebSearchEnabled = &disabled

	ans, err := f.orchestrator(eng).Answer(context.Background(), "anything", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, models.StateNoEvidence, ans.State)
	assert.Equal(t, decision.ReasonWebSearchDisabled, ans.DecisionReason)
	assert.False(t, ans.WebSearched)
	assert.Zero(t, f.searcher.calls)
	assert.Zero(t, f.rewriter.calls)
}

func TestAnswer_tagsEnhanceEmbeddingOnly(t *testing.T) {
	f := newFixture(strongResult())
	_, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear",
		models.Tags{AircraftModel: "A320", IssueCategory: "Landing Gear"})
	require.NoError(t, err)
	assert.Equal(t, []string{"[Issue Category: Landing Gear] [Aircraft: A320] brake wear"}, f.embedder.texts)
	assert.Contains(t, f.generator.prompts[0], "Question:\nbrake wear\nAnswer:")
}

func TestAnswer_generationRetry(t *testing.T) {
	f := newFixture(strongResult())
	f.generator.errs = []error{errors.New("502 bad gateway")}
	f.generator.outputs = []string{"", "second try"}

	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, "second try", ans.Text)
	assert.Equal(t, 2, f.generator.calls)
}

func TestAnswer_generationFailure(t *testing.T) {
	f := newFixture(strongResult())
	f.generator.errs = []error{errors.New("502"), errors.New("503")}

	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear", models.Tags{})
	assert.Nil(t, ans)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 2, f.generator.calls, "retried exactly once")
}

func TestAnswer_cancelledGenerationNotRetried(t *testing.T) {
	f := newFixture(strongResult())
	f.generator.errs = []error{context.Canceled, context.Canceled}

	_, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear", models.Tags{})
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 1, f.generator.calls)
}

func TestAnswer_sourcesNote(t *testing.T) {
	f := newFixture(strongResult())
	f.generator.outputs = []string{"Replace the brake [DB-1]."}

	ans, err := f.orchestrator(engine(false)).Answer(context.Background(), "brake wear", models.Tags{})
	require.NoError(t, err)
	assert.Equal(t, "Replace the brake [DB-1].\n\n"+prompt.SourcesNote, ans.Text)
}

func TestAnswer_inputErrors(t *testing.T) {
	f := newFixture(strongResult())
	_, err := f.orchestrator(engine(false)).Answer(context.Background(), "   ", models.Tags{})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	f.embedder.err = errors.New("model not loaded")
	_, err = f.orchestrator(engine(false)).Answer(context.Background(), "brake wear", models.Tags{})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Zero(t, f.generator.calls)
}

func TestAnswer_cancelledBeforeDecision(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(&models.RetrievalResult{})
	f.embedder.onCall = cancel

	ans, err := f.orchestrator(engine(false)).Answer(ctx, "hydraulic leak A320", models.Tags{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ans, "a cancelled request is not a NO_EVIDENCE answer")
	assert.Zero(t, f.searcher.calls)
	assert.Zero(t, f.generator.calls)
}

func TestAnswer_cancelledDuringWebSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(strongResult())
	f.searcher.err = context.Canceled
	f.searcher.onCall = cancel

	ans, err := f.orchestrator(engine(true)).Answer(ctx, "hydraulic leak A320", models.Tags{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ans)
	assert.Equal(t, 1, f.searcher.calls)
	assert.Zero(t, f.generator.calls, "no generation after the caller has gone")
}

func TestAnswer_deadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	f := newFixture(&models.RetrievalResult{})

	_, err := f.orchestrator(engine(false)).Answer(ctx, "hydraulic leak A320", models.Tags{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
