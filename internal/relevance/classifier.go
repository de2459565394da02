package relevance

import (
	"context"
	"errors"
)

// ErrNoQuestionVector is returned by ClassifyVector when the question was never embedded.
var ErrNoQuestionVector = errors.New("question vector unavailable")

// Classification holds the two independent relevance signals for one passage.
type Classification struct {
	KeywordRatio float64
	Template     bool
	Similarity   float64
	IsHelpful    bool
	IsRelevant   bool
}

// Classifier combines keyword, template and similarity heuristics.
type Classifier struct {
	scorer       *Scorer
	minRelevance float64
}

// NewClassifier returns a Classifier that marks passages relevant above minRelevance.
func NewClassifier(scorer *Scorer, minRelevance float64) *Classifier {
	return &Classifier{scorer: scorer, minRelevance: minRelevance}
}

// EmbedQuestion embeds question once for repeated ClassifyVector calls.
func (c *Classifier) EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	return c.scorer.Embed(ctx, question)
}

// Classify scores text against question. A similarity failure leaves IsRelevant false and
// is returned alongside the keyword-based result.
func (c *Classifier) Classify(ctx context.Context, question, text string) (Classification, error) {
	qvec, err := c.EmbedQuestion(ctx, question)
	if err != nil {
		return c.heuristics(question, text), err
	}
	return c.ClassifyVector(ctx, question, qvec, text)
}

// ClassifyVector is Classify with the question already embedded as qvec. A nil qvec yields
// the keyword signals only, with ErrNoQuestionVector.
func (c *Classifier) ClassifyVector(ctx context.Context, question string, qvec []float32, text string) (Classification, error) {
	cl := c.heuristics(question, text)
	if qvec == nil {
		return cl, ErrNoQuestionVector
	}
	sim, err := c.scorer.SimilarityTo(ctx, qvec, text)
	if err != nil {
		return cl, err
	}
	cl.Similarity = sim
	cl.IsRelevant = sim > c.minRelevance
	return cl, nil
}

func (c *Classifier) heuristics(question, text string) Classification {
	cl := Classification{
		KeywordRatio: KeywordMatchRatio(question, text),
		Template:     IsTemplate(text),
	}
	cl.IsHelpful = cl.KeywordRatio > HelpfulRatio && !cl.Template
	return cl
}
