package relevance

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// HelpfulRatio is the keyword-match ratio above which a passage counts as helpful.
const HelpfulRatio = 0.3

// minWordLen excludes short tokens; important words are strictly longer.
const minWordLen = 3

// fillerWords are question phrasings that carry no topic.
var fillerWords = map[string]bool{
	"please": true, "need": true, "help": true, "know": true, "tell": true,
	"explain": true, "describe": true, "could": true, "would": true, "should": true,
	"want": true, "like": true, "there": true, "which": true, "about": true,
}

// analysisMapping supplies bleve's standard analyzer: unicode tokenization, lowercasing
// and English stop-word removal.
var analysisMapping = bleve.NewIndexMapping()

// ImportantWords returns the distinct topic words of question in order of appearance.
func ImportantWords(question string) []string {
	return importantWords(analysisMapping, question)
}

func importantWords(m *mapping.IndexMappingImpl, question string) []string {
	tokens, err := m.AnalyzeText(standard.Name, []byte(question))
	if err != nil {
		return nil
	}
	seen := make(map[string]bool, len(tokens))
	var words []string
	for _, tok := range tokens {
		w := string(tok.Term)
		if len(w) <= minWordLen || fillerWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// KeywordMatchRatio is the fraction of the question's important words that occur as
// substrings of the lowercased text. It is 0 when the question has no important words.
func KeywordMatchRatio(question, text string) float64 {
	words := ImportantWords(question)
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			found++
		}
	}
	return float64(found) / float64(len(words))
}
