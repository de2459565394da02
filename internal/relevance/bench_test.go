package relevance

import "testing"

const benchQuestion = "[Aircraft: C172] Engine runs rough at idle after the left magneto was replaced"

const benchText = "Problem: ENGINE RUNS ROUGH AT IDLE, LEFT MAG DROP EXCESSIVE\nAction: REPLACED LEFT MAGNETO, TIMED TO ENGINE, OPS CHECK GOOD"

func BenchmarkKeywordMatchRatio(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = KeywordMatchRatio(benchQuestion, benchText)
	}
}

func BenchmarkIsTemplate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = IsTemplate(benchText)
	}
}
