// Package ambient implements the always-on "smart-listen" path (§4.3):
// filtering noisy/low-confidence transcripts, joining speaker identity,
// self-introduction renaming, and deciding whether an accepted utterance
// should wake the assistant.
package ambient

import (
	"regexp"
	"strings"
)

// wakePhrasePatterns match a short lead-in term at the start of an
// utterance, the language-agnostic set of "hey, listen" openers.
var wakePhrasePatterns = regexp.MustCompile(`(?i)^\s*(hey|oye|che|hola|escucha|listen|yo)\b`)

// questionPatterns match a transcript directed at the assistant as a
// question, independent of the wake-name.
var questionPatterns = regexp.MustCompile(`(?i)\b(what do you think|do you know|can you|qu[eé] piensas|sabes|puedes)\b`)

// opinionPatterns match an explicit request for the assistant's opinion.
var opinionPatterns = regexp.MustCompile(`(?i)\b(what about you|your opinion|y t[uú]|tu opini[oó]n)\b`)

// selfIntroPatterns capture a claimed name in a self-introduction, English
// and Spanish. Capture group 1 is the candidate name.
var selfIntroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([a-zA-Z][a-zA-Z'-]*(?: [a-zA-Z][a-zA-Z'-]*)*)`),
	regexp.MustCompile(`(?i)\bi'?m\s+([a-zA-Z][a-zA-Z'-]*)\b`),
	regexp.MustCompile(`(?i)\bcall me\s+([a-zA-Z][a-zA-Z'-]*)`),
	regexp.MustCompile(`(?i)\bme llamo\s+([a-zA-Z][a-zA-Z'-]*(?: [a-zA-Z][a-zA-Z'-]*)*)`),
	regexp.MustCompile(`(?i)\bmi nombre es\s+([a-zA-Z][a-zA-Z'-]*(?: [a-zA-Z][a-zA-Z'-]*)*)`),
	regexp.MustCompile(`(?i)\bsoy\s+([a-zA-Z][a-zA-Z'-]*)`),
}

// nameBlacklist rules out common false positives captured by the
// self-introduction patterns above (e.g. "I'm sorry", "I'm fine").
var nameBlacklist = map[string]bool{
	"sorry": true, "fine": true, "good": true, "here": true, "back": true,
	"not": true, "sure": true, "ready": true, "done": true, "tired": true,
	"busy": true, "happy": true, "okay": true, "ok": true, "bien": true,
	"cansado": true, "cansada": true, "listo": true, "lista": true,
}

// TriggerReason is the closed set of reasons an ambient utterance may wake
// the assistant.
type TriggerReason string

const (
	ReasonNone            TriggerReason = ""
	ReasonName            TriggerReason = "name"
	ReasonWakePhrase      TriggerReason = "wake_phrase"
	ReasonQuestion        TriggerReason = "question"
	ReasonOpinionRequest  TriggerReason = "opinion_request"
)

const maxWakePhraseLen = 80

// DetectTrigger computes the trigger decision for an accepted ambient
// transcript, matching case- and accent-insensitively against wakeName.
func DetectTrigger(transcript, wakeName string) (respond bool, reason TriggerReason) {
	if wakeName != "" && containsFold(foldAccents(transcript), foldAccents(wakeName)) {
		return true, ReasonName
	}
	if len(transcript) < maxWakePhraseLen && wakePhrasePatterns.MatchString(transcript) {
		return true, ReasonWakePhrase
	}
	if questionPatterns.MatchString(transcript) {
		return true, ReasonQuestion
	}
	if opinionPatterns.MatchString(transcript) {
		return true, ReasonOpinionRequest
	}
	return false, ReasonNone
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// foldAccents strips the handful of accented Latin characters the
// Spanish/English language pair actually uses, so "José" matches "jose".
func foldAccents(s string) string {
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
		"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ñ", "n",
	)
	return replacer.Replace(s)
}

// DetectSelfIntroduction looks for a self-introduction pattern in
// transcript and returns the captured candidate name if it survives the
// blacklist and the 2-20 character length window.
func DetectSelfIntroduction(transcript string) (name string, ok bool) {
	for _, p := range selfIntroPatterns {
		m := p.FindStringSubmatch(transcript)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if len(candidate) < 2 || len(candidate) > 20 {
			continue
		}
		if nameBlacklist[strings.ToLower(candidate)] {
			continue
		}
		return candidate, true
	}
	return "", false
}
