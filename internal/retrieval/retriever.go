// Package retrieval fans a query vector out to every knowledge source and merges the
// classified hits into one ranked list.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/relevance"
	"github.com/hyperjump/mxrag/internal/source"
	"github.com/hyperjump/mxrag/pkg/utils"
)

// HighConfidenceScore keeps a hit on raw similarity alone.
const HighConfidenceScore = 0.85

// Retriever searches the configured sources concurrently.
type Retriever struct {
	bindings   []source.Binding
	classifier *relevance.Classifier
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		r.logger = utils.OrNop(l)
	}
}

// WithSourceTimeout bounds each source lookup. Zero disables the bound.
func WithSourceTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		r.timeout = d
	}
}

// NewRetriever returns a Retriever over bindings, merged in the given order.
func NewRetriever(bindings []source.Binding, classifier *relevance.Classifier, opts ...Option) *Retriever {
	r := &Retriever{bindings: bindings, classifier: classifier, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the kept hits of every source ranked by combined score and capped at
// 2*topK. Failing sources are skipped.
func (r *Retriever) Retrieve(ctx context.Context, query models.Query, vec []float32, topK int) *models.RetrievalResult {
	slots := make([][]models.ContextHit, len(r.bindings))
	qvec := r.questionVector(ctx, query, vec)

	var wg sync.WaitGroup
	for i, b := range r.bindings {
		wg.Add(1)
		go func(i int, b source.Binding) {
			defer wg.Done()
			slots[i] = r.searchSource(ctx, b, query, vec, qvec, topK)
		}(i, b)
	}
	wg.Wait()

	var kept []models.ContextHit
	for _, s := range slots {
		kept = append(kept, s...)
	}
	return rank(kept, topK)
}

// questionVector embeds the untagged question once per request. Without tags it equals the
// search vector. On failure hits are classified by keywords only.
func (r *Retriever) questionVector(ctx context.Context, query models.Query, vec []float32) []float32 {
	if query.RawText == query.EnhancedText && vec != nil {
		return vec
	}
	qvec, err := r.classifier.EmbedQuestion(ctx, query.RawText)
	if err != nil {
		r.logger.Warn("question embedding failed, relevance by keywords only",
			zap.String("query", query.RawText), zap.Error(err))
		return nil
	}
	return qvec
}

// rank orders hits by combined score, computes FoundRelevant over all of them and then
// truncates to 2*topK.
func rank(kept []models.ContextHit, topK int) *models.RetrievalResult {
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CombinedScore > kept[j].CombinedScore })

	result := &models.RetrievalResult{}
	for _, h := range kept {
		if h.IsHelpful || h.IsRelevant {
			result.FoundRelevant = true
			break
		}
	}
	if limit := 2 * topK; len(kept) > limit {
		kept = kept[:max(limit, 0)]
	}
	result.Hits = kept
	if len(kept) > 0 {
		result.TopScore = kept[0].CombinedScore
	}
	return result
}

func (r *Retriever) searchSource(ctx context.Context, b source.Binding, query models.Query, vec, qvec []float32, topK int) []models.ContextHit {
	name := b.Source.Name()
	searchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	raw, err := b.Source.Search(searchCtx, vec, topK)
	if err != nil {
		msg := "source search failed, skipping"
		switch {
		case errors.Is(err, source.ErrCollectionNotFound):
			msg = "collection not found, skipping"
		case errors.Is(err, context.DeadlineExceeded):
			msg = "source search timed out, skipping"
		}
		r.logger.Warn(msg, zap.String("source", name), zap.String("query", query.RawText), zap.Error(err))
		return nil
	}

	var hits []models.ContextHit
	for _, h := range raw {
		text, missing := b.Adapter(h.Payload)
		if len(missing) > 0 {
			r.logger.Warn("malformed payload",
				zap.String("source", name),
				zap.String("hit_id", h.ID),
				zap.Strings("missing_fields", missing))
		}
		cl, err := r.classifier.ClassifyVector(ctx, query.RawText, qvec, text)
		if err != nil && qvec != nil {
			r.logger.Warn("similarity scoring failed",
				zap.String("source", name),
				zap.String("hit_id", h.ID),
				zap.Error(err))
		}
		if !cl.IsHelpful && !cl.IsRelevant && h.Score <= HighConfidenceScore {
			continue
		}
		hits = append(hits, models.NewContextHit(name, h.ID, h.Score, text, cl.IsHelpful, cl.IsRelevant))
	}
	r.logger.Debug("source searched",
		zap.String("source", name),
		zap.Int("raw_hits", len(raw)),
		zap.Int("kept", len(hits)))
	return hits
}
