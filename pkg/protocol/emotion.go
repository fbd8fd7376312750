package protocol

import (
	"regexp"
	"strings"
)

// Emotion is one of the nine closed emotion-tag values the LLM output
// grammar and the client protocol agree on.
type Emotion string

const (
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionSurprised Emotion = "surprised"
	EmotionThinking  Emotion = "thinking"
	EmotionConfused  Emotion = "confused"
	EmotionLaughing  Emotion = "laughing"
	EmotionNeutral   Emotion = "neutral"
	EmotionAngry     Emotion = "angry"
	EmotionLove      Emotion = "love"
)

// ValidEmotions reports whether e is one of the nine closed values.
func ValidEmotions(e Emotion) bool {
	switch e {
	case EmotionHappy, EmotionSad, EmotionSurprised, EmotionThinking,
		EmotionConfused, EmotionLaughing, EmotionNeutral, EmotionAngry, EmotionLove:
		return true
	}
	return false
}

var emotionTagPattern = regexp.MustCompile(`^\[\[emotion:\s*([a-zA-Z]+)\s*\]\]\s*`)

// StripEmotionTag parses an optional leading "[[emotion:<label>]]" prefix
// off text. It returns the parsed emotion (empty if absent/invalid) and the
// remaining text with the tag removed and surrounding whitespace trimmed.
// Parsing an empty string yields ("", "").
func StripEmotionTag(text string) (Emotion, string) {
	m := emotionTagPattern.FindStringSubmatch(text)
	if m == nil {
		return "", strings.TrimSpace(text)
	}
	tag := Emotion(strings.ToLower(m[1]))
	rest := strings.TrimSpace(text[len(m[0]):])
	if !ValidEmotions(tag) {
		return "", strings.TrimSpace(text)
	}
	return tag, rest
}

// bilingual keyword lexicon used when a sentence carries no explicit
// [[emotion:...]] tag. Order matters: first match wins.
var emotionLexicon = []struct {
	emotion  Emotion
	keywords []string
}{
	{EmotionLaughing, []string{"haha", "jaja", "lol", "jeje", "😂", "🤣"}},
	{EmotionLove, []string{"love", "amor", "te quiero", "❤️", "🥰"}},
	{EmotionHappy, []string{"happy", "great", "awesome", "genial", "feliz", "excelente", "😊", "😄"}},
	{EmotionSad, []string{"sad", "sorry", "triste", "lo siento", "lamento", "😢", "😔"}},
	{EmotionSurprised, []string{"wow", "whoa", "incredible", "increíble", "vaya", "😮", "😲"}},
	{EmotionAngry, []string{"angry", "furious", "enojado", "molesto", "frustrante", "😠", "😡"}},
	{EmotionConfused, []string{"confused", "not sure", "confundido", "no estoy seguro", "🤔"}},
	{EmotionThinking, []string{"thinking", "let me think", "pensando", "déjame pensar"}},
}

// DeriveEmotion applies the keyword heuristic over the bilingual lexicon,
// falling back to punctuation (trailing exclamation mark -> happy, trailing
// question mark -> thinking) and finally neutral.
func DeriveEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	for _, entry := range emotionLexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.emotion
			}
		}
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "!") {
		return EmotionHappy
	}
	if strings.HasSuffix(trimmed, "?") {
		return EmotionThinking
	}
	return EmotionNeutral
}
