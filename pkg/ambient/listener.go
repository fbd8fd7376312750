package ambient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/audio"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/session"
)

// SubmitFunc re-enters the text-flavour pipeline on behalf of the ambient
// listener, once a trigger decision says the assistant should respond.
// speaker is the resolved speaker label for the utterance that triggered
// the submission. wrapped marks a submission built by the non-name trigger
// path (wake phrase, question, opinion request), which carries its own
// conversational-context wrapper and should skip search injection and the
// empty-response retry; a name-trigger submission is a clean direct
// message and is never wrapped.
type SubmitFunc func(ctx context.Context, sess *session.Session, text, speaker string, wrapped bool)

const maxContextEntriesInWrapper = 5

// Listener implements the always-on smart-listen path. One Listener is
// shared across all sessions; per-session throttle state lives in a small
// internal map rather than on Session itself, since it's listener-internal
// bookkeeping, not session-visible state.
type Listener struct {
	stt     orchestrator.AmbientSTTProvider
	speaker orchestrator.SpeakerIDProvider
	submit  SubmitFunc
	logger  orchestrator.Logger
	noise   *NoiseBaselineTracker
	echo    *EchoGuard

	mu         sync.Mutex
	busy       map[string]bool
	ownerLabel map[string]string
}

// NewListener wires up the ambient listener. echo may be nil, which installs
// a disabled EchoGuard (the zero-config default); pass NewEchoGuard(true) to
// turn on playback-correlation filtering.
func NewListener(stt orchestrator.AmbientSTTProvider, speaker orchestrator.SpeakerIDProvider, submit SubmitFunc, logger orchestrator.Logger, echo *EchoGuard) *Listener {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	if echo == nil {
		echo = NewEchoGuard(false)
	}
	return &Listener{
		stt:        stt,
		speaker:    speaker,
		submit:     submit,
		logger:     logger,
		noise:      NewNoiseBaselineTracker(),
		echo:       echo,
		busy:       make(map[string]bool),
		ownerLabel: make(map[string]string),
	}
}

// RecordPlayback forwards to the listener's echo guard; wired as the
// pipeline runner's audio-playback hook.
func (l *Listener) RecordPlayback(sessionID string, chunk []byte) {
	l.echo.RecordPlayback(sessionID, chunk)
}

// HandleSegment processes one ambient audio blob for sess. It is safe to
// call concurrently for different sessions; a segment arriving for a
// session that already has one in flight is dropped immediately.
func (l *Listener) HandleSegment(ctx context.Context, sess *session.Session, rawAudio []byte) {
	if !l.tryEnter(sess.ID) {
		return
	}
	defer l.leave(sess.ID)

	if l.echo.IsEcho(sess.ID, rawAudio) {
		return
	}

	rms := audio.RMS(rawAudio)
	l.noise.Observe(rms)

	result, err := l.stt.TranscribeDetailed(ctx, rawAudio)
	if err != nil {
		l.logger.Warn("ambient transcription failed", "session", sess.ID, "err", err)
		return
	}
	if !l.accept(result) {
		return
	}

	identity, err := l.speaker.Identify(ctx, sess.ID, rawAudio)
	if err != nil {
		l.logger.Debug("speaker identification failed, treating as unknown", "session", sess.ID, "err", err)
		identity = orchestrator.SpeakerIdentity{Label: "unknown", Known: false}
	}
	isOwner := l.resolveOwner(sess.ID, identity)

	if !identity.Known {
		if name, ok := DetectSelfIntroduction(result.Text); ok {
			if err := l.speaker.Rename(ctx, sess.ID, identity.Label, name); err != nil {
				l.logger.Debug("self-introduction rename failed", "session", sess.ID, "err", err)
			} else {
				identity.Label = name
			}
		}
	}

	entry := session.AmbientEntry{
		Text:         result.Text,
		SpeakerLabel: identity.Label,
		IsOwner:      isOwner,
		Timestamp:    time.Now(),
	}
	contextBefore := sess.AmbientContextCopy()
	sess.AddAmbientEntry(entry)
	sess.Send(protocol.NewAmbientTranscriptOut(result.Text, identity.Label, isOwner, identity.Known))

	respond, reason := DetectTrigger(result.Text, sess.WakeName())
	if !respond {
		return
	}

	switch reason {
	case ReasonName:
		// A name-triggered utterance is a direct question addressed to the
		// assistant (§4.2 step 1): submit it unwrapped, labelled with the
		// speaker, so it gets search injection and the empty-reply retry
		// like any other direct message.
		clean := stripWakeName(result.Text, sess.WakeName())
		labelled := formatSpeakerLabelled(identity.Label, clean)
		l.submit(ctx, sess, labelled, identity.Label, false)
	default:
		wrapper := buildContextWrapper(contextBefore, result.Text)
		l.submit(ctx, sess, wrapper, identity.Label, true)
	}
}

func (l *Listener) tryEnter(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[sessionID] {
		return false
	}
	l.busy[sessionID] = true
	return true
}

func (l *Listener) leave(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, sessionID)
}

// resolveOwner treats the first distinct speaker seen for a session as the
// owner. Enrolled profiles are not consulted: the first label seen stays
// the owner for as long as the listener runs.
func (l *Listener) resolveOwner(sessionID string, identity orchestrator.SpeakerIdentity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, seen := l.ownerLabel[sessionID]
	if !seen {
		l.ownerLabel[sessionID] = identity.Label
		return true
	}
	return existing == identity.Label
}

var allowedLanguages = map[orchestrator.Language]bool{
	orchestrator.LanguageEn: true,
	orchestrator.LanguageEs: true,
}

const (
	minAvgLogProb    = -0.6
	maxNoSpeechProb  = 0.5
)

func (l *Listener) accept(result orchestrator.TranscriptionResult) bool {
	if !allowedLanguages[result.Language] {
		return false
	}
	if result.AvgLogProb < minAvgLogProb {
		return false
	}
	if result.NoSpeechProb > maxNoSpeechProb {
		return false
	}
	wordCount := len(strings.Fields(result.Text))
	if wordCount < l.noise.MinWordCount() {
		return false
	}
	return true
}

// formatSpeakerLabelled renders a clean direct message labelled with its
// speaker, per §4.3's "submit as a clean direct message labelled with the
// speaker".
func formatSpeakerLabelled(speaker, text string) string {
	if speaker == "" {
		speaker = "unknown"
	}
	return fmt.Sprintf("[Speaker %s]: %s", speaker, text)
}

func stripWakeName(transcript, wakeName string) string {
	if wakeName == "" {
		return strings.TrimSpace(transcript)
	}
	lower := strings.ToLower(transcript)
	idx := strings.Index(lower, strings.ToLower(wakeName))
	if idx < 0 {
		return strings.TrimSpace(transcript)
	}
	out := transcript[:idx] + transcript[idx+len(wakeName):]
	out = strings.TrimSpace(out)
	out = strings.TrimLeft(out, ",.! ")
	return strings.TrimSpace(out)
}

func buildContextWrapper(priorEntries []session.AmbientEntry, current string) string {
	start := 0
	if len(priorEntries) > maxContextEntriesInWrapper {
		start = len(priorEntries) - maxContextEntriesInWrapper
	}
	var b strings.Builder
	b.WriteString(orchestrator.AmbientContextMarker)
	b.WriteString(" ")
	for i := start; i < len(priorEntries); i++ {
		if i > start {
			b.WriteString(" / ")
		}
		b.WriteString(priorEntries[i].Text)
	}
	b.WriteString("]\n[Speaker just said: ")
	b.WriteString(current)
	b.WriteString("]")
	return b.String()
}
