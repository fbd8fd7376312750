package orchestrator

import (
	"context"
)



type Logger interface {
	
	Debug(msg string, args ...interface{})
	
	Info(msg string, args ...interface{})
	
	Warn(msg string, args ...interface{})
	
	Error(msg string, args ...interface{})
}


type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}


type STTProvider interface {
	Transcribe(ctx context.Context, audio []byte, lang Language) (string, error)
	Name() string
}

// TranscriptionResult is the richer decoding the ambient listener needs to
// apply its confidence/noise filters (§4.3), beyond the plain text the
// direct-audio flavour settles for.
type TranscriptionResult struct {
	Text          string
	Language      Language
	AvgLogProb    float64
	NoSpeechProb  float64
}

// AmbientSTTProvider is implemented by STT adapters that can report the
// per-segment confidence signals the ambient listener filters on.
type AmbientSTTProvider interface {
	TranscribeDetailed(ctx context.Context, audio []byte) (TranscriptionResult, error)
}


type StreamingSTTProvider interface {
	STTProvider
	StreamTranscribe(ctx context.Context, lang Language, onTranscript func(transcript string, isFinal bool) error) (chan<- []byte, error)
}


type LLMProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// LLMDelta is one incremental fragment of a streaming completion. Deltas
// are incremental, not cumulative: concatenating Text in arrival order
// reconstructs the full reply, and a consumer that misses a delta cannot
// recover it from a later one.
type LLMDelta struct {
	Text  string
	Final bool
}

// StreamingLLMProvider is implemented by providers that can emit a
// completion as it is generated, which the pipeline needs for per-sentence
// TTS emission (§4.2) rather than waiting for the whole reply.
type StreamingLLMProvider interface {
	LLMProvider
	StreamComplete(ctx context.Context, messages []Message, onDelta func(LLMDelta) error) error
}

// SpeakerIdentity is the outcome of a speaker-ID lookup: either a known
// enrolled label, or unknown with a best-effort cluster handle the caller
// can later attach a name to via enrollment.
type SpeakerIdentity struct {
	Label      string
	Known      bool
	Confidence float64
}

// SpeakerProfile is one enrolled voice profile as reported by get_profiles.
type SpeakerProfile struct {
	Label string
	Known bool
}

// SpeakerIDProvider adapts the speaker-identification service used by the
// ambient listener and voice-enrollment flow (§4.7). Implementations must
// treat every method as best-effort: a failure degrades to "unknown
// speaker", it never aborts the surrounding pipeline.
type SpeakerIDProvider interface {
	Identify(ctx context.Context, sessionID string, audio []byte) (SpeakerIdentity, error)
	Enroll(ctx context.Context, sessionID string, audio []byte, label string, appendSample bool) error
	Rename(ctx context.Context, sessionID string, oldLabel, newLabel string) error
	Reset(ctx context.Context, sessionID string) error
	Profiles(ctx context.Context, sessionID string) ([]SpeakerProfile, error)
}

// SearchResult is one hit the search provider returns for a heuristically
// detected search intent (§4.2 step 1).
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

// SearchProvider adapts an external web-search backend. Results are folded
// into the LLM prompt as grounding context, never shown to the user
// directly.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}


type TTSProvider interface {
	Synthesize(ctx context.Context, text string, voice Voice, lang Language) ([]byte, error)
	StreamSynthesize(ctx context.Context, text string, voice Voice, lang Language, onChunk func([]byte) error) error
	Name() string
}


type Voice string

const (
	VoiceF1 Voice = "F1"
	VoiceF2 Voice = "F2"
	VoiceF3 Voice = "F3"
	VoiceF4 Voice = "F4"
	VoiceF5 Voice = "F5"
	VoiceM1 Voice = "M1"
	VoiceM2 Voice = "M2"
	VoiceM3 Voice = "M3"
	VoiceM4 Voice = "M4"
	VoiceM5 Voice = "M5"
)


type Language string

const (
	LanguageEn Language = "en"
	LanguageEs Language = "es"
	LanguageFr Language = "fr"
	LanguageDe Language = "de"
	LanguageIt Language = "it"
	LanguagePt Language = "pt"
	LanguageJa Language = "ja"
	LanguageZh Language = "zh"
)


type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
