package orchestrator

import (
	"regexp"
	"strings"
)

const artifactMinLength = 200

// codeFenceRe matches a triple-backtick fenced block with an optional
// language identifier on the opening fence.
var codeFenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// Artifact is one long code block extracted from a completed reply.
type Artifact struct {
	Language string
	Content  string
}

// ExtractArtifacts pulls out fenced code blocks longer than
// artifactMinLength characters (§4.2 step 6). Shorter fences are left
// in the spoken text as-is; they read fine as inline ticks and aren't
// worth a dedicated envelope.
func ExtractArtifacts(text string) []Artifact {
	var artifacts []Artifact
	for _, m := range codeFenceRe.FindAllStringSubmatch(text, -1) {
		content := m[2]
		if len(content) <= artifactMinLength {
			continue
		}
		artifacts = append(artifacts, Artifact{Language: m[1], Content: content})
	}
	return artifacts
}

// buttonsRe matches a trailing [[buttons:opt1|opt2|...]] tag. It is
// anchored to the end of the (trimmed) text since the grammar only
// allows one, trailing.
var buttonsRe = regexp.MustCompile(`\[\[buttons:([^\]]+)\]\]\s*$`)

// ExtractButtons pulls the trailing buttons tag, if present, returning the
// option labels in order and the text with the tag removed.
func ExtractButtons(text string) (options []string, cleaned string) {
	trimmed := strings.TrimRight(text, " \n\t")
	m := buttonsRe.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return nil, text
	}
	raw := trimmed[m[2]:m[3]]
	for _, opt := range strings.Split(raw, "|") {
		opt = strings.TrimSpace(opt)
		if opt != "" {
			options = append(options, opt)
		}
	}
	return options, strings.TrimRight(trimmed[:m[0]], " \n\t")
}

// extractTrailingTags strips a trailing buttons tag and any complete
// over-threshold code fence out of a stream's final, unterminated tail
// before it is spoken: neither ever acquires the terminal punctuation
// sentenceBoundary requires, so left alone they'd be flushed as a last
// "sentence" and read aloud verbatim instead of extracted.
func extractTrailingTags(text string) (spoken string, artifacts []Artifact, buttons []string) {
	buttons, cleaned := ExtractButtons(text)

	locs := codeFenceRe.FindAllStringSubmatchIndex(cleaned, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(cleaned), nil, buttons
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		content := cleaned[loc[4]:loc[5]]
		if len(content) <= artifactMinLength {
			continue
		}
		artifacts = append(artifacts, Artifact{Language: cleaned[loc[2]:loc[3]], Content: content})
		b.WriteString(cleaned[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(cleaned[last:])
	return strings.TrimSpace(b.String()), artifacts, buttons
}
