package orchestrator

import "fmt"

// systemPromptEn/Es are the fixed, language-tuned instructions prepended
// to every history assembly (§4.2 step 2): no markdown, 1-3 spoken
// sentences, a mandatory emotion tag before every sentence from the closed
// nine-value set, and no two consecutive identical emotion tags.
const systemPromptEn = `You are a warm, concise voice assistant speaking out loud, not writing text. Never use markdown, bullet points, or formatting symbols. Keep your spoken reply to 1-3 short sentences. Before every sentence, prepend an emotion tag from exactly this set: [[emotion:happy]] [[emotion:sad]] [[emotion:surprised]] [[emotion:thinking]] [[emotion:confused]] [[emotion:laughing]] [[emotion:neutral]] [[emotion:angry]] [[emotion:love]]. Never repeat the same emotion tag on two consecutive sentences.`

const systemPromptEs = `Eres un asistente de voz cálido y conciso que habla en voz alta, no que escribe texto. Nunca uses markdown, viñetas ni símbolos de formato. Limita tu respuesta hablada a 1-3 oraciones cortas. Antes de cada oración, antepón una etiqueta de emoción de exactamente este conjunto: [[emotion:happy]] [[emotion:sad]] [[emotion:surprised]] [[emotion:thinking]] [[emotion:confused]] [[emotion:laughing]] [[emotion:neutral]] [[emotion:angry]] [[emotion:love]]. Nunca repitas la misma etiqueta de emoción en dos oraciones consecutivas.`

// SystemPrompt returns the fixed system instruction for lang, falling back
// to English for any language outside the two the prompt is tuned for
// (other Language values are still accepted elsewhere for TTS voice
// selection, just not specially prompted).
func SystemPrompt(lang Language) string {
	switch lang {
	case LanguageEs:
		return systemPromptEs
	default:
		return systemPromptEn
	}
}

// BuildMessages assembles the message list for step 2: system prompt
// first, then history turns (already bounded to 2*N by the session),
// then the current user content.
func BuildMessages(lang Language, history []Message, userContent string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt(lang)})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userContent})
	return messages
}

// userTurnSummary produces the compact textual history entry for non-text
// user content, since history only ever stores text (§4.2 step 7).
func userTurnSummary(kind string) string {
	return fmt.Sprintf("[%s]", kind)
}
