package orchestrator

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches the shortest prefix ending in a terminal
// punctuation mark followed by either whitespace or the start of an
// emotion tag. It is deliberately conservative: a lone "." inside an
// abbreviation with no following space/tag never splits, since there is
// nothing after it yet to confirm the boundary.
var sentenceBoundary = regexp.MustCompile(`^(.*?[.!?])(\s+|\[\[emotion:)`)

// SplitSentences is a pure function from (buffer, delta) to (sentences,
// remainder): it appends delta to buffer, then repeatedly peels off the
// shortest prefix matching a sentence boundary. No mutable state is
// threaded through it, so the streaming call site can feed it one delta
// at a time without synchronization, and it is exhaustively testable by
// feeding known (buffer, delta) pairs.
func SplitSentences(buffer, delta string) (sentences []string, remainder string) {
	buffer += delta
	for {
		loc := sentenceBoundary.FindStringSubmatchIndex(buffer)
		if loc == nil {
			break
		}
		sentence := buffer[loc[2]:loc[3]]
		sentences = append(sentences, sentence)
		// An emotion tag after the punctuation opens the next sentence, so
		// only a whitespace separator is consumed.
		next := loc[1]
		if buffer[loc[4]] == '[' {
			next = loc[4]
		}
		buffer = buffer[next:]
	}
	return sentences, buffer
}

// FlushTail returns the final sentence from whatever remains in buffer
// once the stream has ended, or "" if buffer is empty/whitespace-only.
func FlushTail(buffer string) string {
	return strings.TrimSpace(buffer)
}
