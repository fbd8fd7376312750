package ambient

import (
	"bytes"
	"math"
	"sync"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/audio"
)

const (
	echoCorrelationThreshold = 0.6
	echoWindow               = 1200 * time.Millisecond
	echoMaxBufBytes          = 2 * 24000 * 2 // ~2s at 24kHz, 16-bit mono: the TTS adapters' output rate
)

// EchoGuard correlates recently-emitted TTS audio against freshly-arrived
// ambient audio, per session, so a client replaying audio_chunk output over
// its own speakers doesn't immediately re-trigger ambient wake detection.
// It is config-gated and a no-op when disabled, which is the default.
type EchoGuard struct {
	enabled bool

	mu       sync.Mutex
	played   map[string]*bytes.Buffer
	lastPlay map[string]time.Time
}

// NewEchoGuard constructs a guard; enabled false makes every method a no-op,
// which is the zero-config default.
func NewEchoGuard(enabled bool) *EchoGuard {
	return &EchoGuard{
		enabled:  enabled,
		played:   make(map[string]*bytes.Buffer),
		lastPlay: make(map[string]time.Time),
	}
}

// RecordPlayback records audio just sent to sessionID as audio_chunk output.
// Wired as the pipeline runner's playback hook.
func (g *EchoGuard) RecordPlayback(sessionID string, chunk []byte) {
	if !g.enabled || len(chunk) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	buf, ok := g.played[sessionID]
	if !ok {
		buf = new(bytes.Buffer)
		g.played[sessionID] = buf
	}
	buf.Write(chunk)
	if buf.Len() > echoMaxBufBytes {
		data := buf.Bytes()
		trimmed := append([]byte(nil), data[len(data)-echoMaxBufBytes:]...)
		buf.Reset()
		buf.Write(trimmed)
	}
	g.lastPlay[sessionID] = time.Now()
}

// IsEcho reports whether segment correlates highly enough with sessionID's
// recently played audio to be its own TTS output leaking back into the
// microphone, rather than a genuine utterance.
func (g *EchoGuard) IsEcho(sessionID string, segment []byte) bool {
	if !g.enabled || len(segment) == 0 {
		return false
	}
	g.mu.Lock()
	last, ok := g.lastPlay[sessionID]
	if !ok || time.Since(last) > echoWindow {
		g.mu.Unlock()
		return false
	}
	var ref []byte
	if buf := g.played[sessionID]; buf != nil {
		ref = append([]byte(nil), buf.Bytes()...)
	}
	g.mu.Unlock()

	if len(ref) == 0 {
		return false
	}
	return correlate(audio.BytesToSamples(segment), audio.BytesToSamples(ref)) > echoCorrelationThreshold
}

// Clear drops sessionID's recorded playback, e.g. once its session expires.
func (g *EchoGuard) Clear(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.played, sessionID)
	delete(g.lastPlay, sessionID)
}

// correlate returns the normalized cross-correlation between the
// equal-length tails of in and ref, clamped to [0, 1].
func correlate(in, ref []float64) float64 {
	if len(in) == 0 || len(ref) == 0 {
		return 0
	}
	n := len(in)
	if n > len(ref) {
		n = len(ref)
	}
	in = in[len(in)-n:]
	ref = ref[len(ref)-n:]

	inEnergy := audio.Energy(in)
	refEnergy := audio.Energy(ref)
	if inEnergy == 0 || refEnergy == 0 {
		return 0
	}

	var dot float64
	for i := range in {
		dot += in[i] * ref[i]
	}
	corr := dot / math.Sqrt(inEnergy*refEnergy)
	if corr < 0 {
		return 0
	}
	if corr > 1 {
		return 1
	}
	return corr
}
