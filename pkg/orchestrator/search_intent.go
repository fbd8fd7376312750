package orchestrator

import (
	"regexp"
	"strings"
)

// AmbientContextMarker prefixes a synthetic ambient-conversation-context
// submission (§4.3 "any other reason" path). Search injection is skipped
// for utterances that begin with it, since they are the orchestrator's own
// synthesized wrapper, not a fresh user request.
const AmbientContextMarker = "[Ambient conversation context:"

const maxSearchQueryLen = 80

var searchIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(search|google|find out|look up|busca|buscar|averigua)\b`),
	regexp.MustCompile(`(?i)^\s*(what|who|how)\s+(is|are|was|were|do|does|to)\b`),
	regexp.MustCompile(`(?i)^\s*(qu[eé]|qui[eé]n|c[oó]mo)\s+(es|son|fue|hace|hago)\b`),
	regexp.MustCompile(`(?i)\b(news|noticias|price|precio|weather|clima|tiempo|time|hora|where is|d[oó]nde est[aá])\b`),
}

var leadInStripper = regexp.MustCompile(`(?i)^\s*(what|who|how|que|qu[eé]|qui[eé]n|c[oó]mo)\s+(is|are|was|were|do|does|to|es|son|fue|hace|hago)\s+`)

// DetectSearchIntent reports whether utterance matches one of the fixed
// search-intent patterns, and if so extracts the query string: opening
// interrogatives/lead-ins are stripped and the remainder is bounded to 80
// characters.
func DetectSearchIntent(utterance string) (query string, matched bool) {
	if strings.HasPrefix(utterance, AmbientContextMarker) {
		return "", false
	}

	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return "", false
	}

	matchedAny := false
	for _, p := range searchIntentPatterns {
		if p.MatchString(trimmed) {
			matchedAny = true
			break
		}
	}
	if !matchedAny {
		return "", false
	}

	q := leadInStripper.ReplaceAllString(trimmed, "")
	q = strings.TrimRight(strings.TrimSpace(q), "?.! ")
	if len(q) > maxSearchQueryLen {
		q = strings.TrimSpace(q[:maxSearchQueryLen])
	}
	if q == "" {
		q = trimmed
		if len(q) > maxSearchQueryLen {
			q = strings.TrimSpace(q[:maxSearchQueryLen])
		}
	}
	return q, true
}

// BuildSearchContextBlock renders search results into the synthetic block
// appended to the user text for step 1 of the text-flavour pipeline.
func BuildSearchContextBlock(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n[Search results — cite briefly, do not dump verbatim:]\n")
	for i, r := range results {
		if i >= 5 {
			break
		}
		b.WriteString("- ")
		b.WriteString(r.Title)
		if r.Snippet != "" {
			b.WriteString(": ")
			b.WriteString(r.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}
