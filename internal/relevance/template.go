package relevance

import "regexp"

// TemplateThreshold is the number of distinct boilerplate patterns that mark a passage as a template.
const TemplateThreshold = 3

// templatePatterns recognise generic, non-specific maintenance advice.
var templatePatterns = []*regexp.Regexp{
	// generic troubleshooting
	regexp.MustCompile(`(?i)\b(here are|follow) (some|these|the) (general |basic |common )?(troubleshooting )?(steps|tips|guidelines)\b`),
	// numbered bold-header steps
	regexp.MustCompile(`(?m)^\s*\d+\.\s+\*\*[^*\n]+\*\*`),
	// generic inspect/verify
	regexp.MustCompile(`(?i)\b(inspect|check|verify|ensure)\b[^.\n]{0,40}\b(all|any) (components?|connections?|systems?|parts?)\b`),
	// consult the manual
	regexp.MustCompile(`(?i)\b(consult|refer to)\b[^.\n]{0,30}\b(manual|documentation|AMM)\b`),
	// contact support
	regexp.MustCompile(`(?i)\bcontact\b[^.\n]{0,40}\b(support|manufacturer|technician|professional)\b`),
}

// TemplateMatches counts the distinct boilerplate patterns found in text.
func TemplateMatches(text string) int {
	n := 0
	for _, re := range templatePatterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

// IsTemplate reports whether text reads as generic boilerplate advice.
func IsTemplate(text string) bool {
	return TemplateMatches(text) >= TemplateThreshold
}
