package main

import (
	"log"

	"github.com/lokutor-ai/lokutor-orchestrator/internal/config"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
	llmProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/llm"
	sttProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/stt"
	ttsProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/tts"
)

// newSTTProvider selects the direct-audio transcription backend per
// cfg.ASRProvider, defaulting to OpenAI.
func newSTTProvider(cfg *config.Config) orchestrator.STTProvider {
	switch cfg.ASRProvider {
	case "deepgram":
		return sttProvider.NewDeepgramSTT(cfg.ASRAPIKey)
	case "assemblyai":
		return sttProvider.NewAssemblyAISTT(cfg.ASRAPIKey)
	case "groq":
		return sttProvider.NewGroqSTT(cfg.ASRAPIKey, "whisper-large-v3-turbo")
	case "openai":
		fallthrough
	default:
		return sttProvider.NewOpenAISTT(cfg.ASRAPIKey, "whisper-1")
	}
}

// newLLMProvider selects the completion backend per cfg.LLMProvider. All
// four adapters implement StreamComplete (needed for the per-sentence
// streaming emission in §4.2).
func newLLMProvider(cfg *config.Config) orchestrator.StreamingLLMProvider {
	switch cfg.LLMProvider {
	case "groq":
		return llmProvider.NewGroqLLM(cfg.LLMAPIKey, "")
	case "anthropic":
		return llmProvider.NewAnthropicLLM(cfg.LLMAPIKey, "")
	case "google":
		return llmProvider.NewGoogleLLM(cfg.LLMAPIKey, "")
	case "openai":
		fallthrough
	default:
		if cfg.LLMProvider != "" && cfg.LLMProvider != "openai" {
			log.Printf("unrecognized LLM provider %q, falling back to openai", cfg.LLMProvider)
		}
		return llmProvider.NewOpenAILLM(cfg.LLMAPIKey, "")
	}
}

// newTTSSelector builds the engine selector (§4.6) a client can switch via
// set_tts_engine. Only the cloud engine is constructed (when
// TTS_CLOUD_ENDPOINT is set); the local-fast and local-clone slots are
// always nil.
func newTTSSelector(cfg *config.Config) *ttsProvider.Selector {
	var cloud, localFast, localClone orchestrator.TTSProvider
	if cfg.TTSCloudEndpoint != "" {
		cloud = ttsProvider.NewLokutorTTS(cfg.TTSCloudAPIKey)
	}
	sel := ttsProvider.NewSelector(cloud, localFast, localClone)
	if cfg.TTSEngine != "" {
		sel.SetDefaultEngine(ttsProvider.Engine(cfg.TTSEngine))
	}
	return sel
}
