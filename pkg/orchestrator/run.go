package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/session"
)

func encodeAudio(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Runner owns the text-flavour pipeline (§4.2): the single logical
// operation "fulfil a user turn" that every input flavour eventually
// reduces to. One Runner is shared across all sessions; all per-turn state
// lives in the attempt() call's locals, scoped to a single in-flight request.
type Runner struct {
	llm    StreamingLLMProvider
	tts    TTSProvider
	search SearchProvider // optional; nil disables step 1 entirely
	logger Logger

	// onAudioPlayed, if set, is invoked with every audio chunk actually sent
	// to a session, so a consumer (the ambient listener's echo guard) can
	// correlate freshly-arrived ambient audio against recent playback.
	onAudioPlayed func(sessionID string, audio []byte)
}

func NewRunner(llm StreamingLLMProvider, tts TTSProvider, search SearchProvider, logger Logger) *Runner {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Runner{llm: llm, tts: tts, search: search, logger: logger}
}

// SetAudioPlaybackHook installs hook as the runner's audio-playback
// callback. Optional; a nil hook (the default) disables this entirely.
func (r *Runner) SetAudioPlaybackHook(hook func(sessionID string, audio []byte)) {
	r.onAudioPlayed = hook
}

// RunText fulfils one user turn for sess. prefix, if non-empty, is
// prepended to text (the declared prefix from an audio-origin turn); on an
// empty direct-text reply the run retries once with the prefix stripped.
// isAmbientWrapped marks a submission built by the ambient listener's
// non-name trigger path, which skips search injection and the
// empty-response retry (an ambient nudge that produces nothing is simply
// dropped, not retried).
func (r *Runner) RunText(ctx context.Context, sess *session.Session, text, prefix string, isAmbientWrapped bool) {
	runCtx, cancel := context.WithCancel(ctx)
	generation := sess.BeginRun(cancel)
	defer func() {
		sess.EndRun(generation)
		cancel()
	}()

	full := text
	if prefix != "" {
		full = prefix + " " + text
	}

	sess.Send(protocol.NewStatusOut(protocol.StatusThinking))
	committed := r.attempt(runCtx, sess, full, isAmbientWrapped)

	if !committed.producedText && !isAmbientWrapped && runCtx.Err() == nil {
		// Empty response on a direct text turn: retry exactly once with
		// the prefix stripped (§4.2 edge cases).
		committed = r.attempt(runCtx, sess, text, isAmbientWrapped)
	}
}

type attemptResult struct {
	producedText bool
}

// attempt runs the LLM-and-TTS body of the pipeline once: search
// injection, history assembly, streaming completion with per-sentence
// emission, post-stream extraction, history commit, and completion
// signalling. It does not retry; RunText owns the retry policy.
func (r *Runner) attempt(ctx context.Context, sess *session.Session, userText string, isAmbientWrapped bool) attemptResult {
	submission := userText
	if !isAmbientWrapped {
		if query, ok := DetectSearchIntent(userText); ok && r.search != nil {
			results, err := r.search.Search(ctx, query)
			if err != nil {
				r.logger.Debug("search adapter failed, continuing without results", "err", err)
			} else {
				submission += BuildSearchContextBlock(results)
			}
		}
	}

	history := historyToMessages(sess.HistoryCopy())
	lang := LanguageEn // TODO: thread per-session language preference once settings storage lands
	messages := BuildMessages(lang, history, submission)

	var (
		mu             sync.Mutex
		buffer         string
		nextIndex      int
		fullClean      strings.Builder
		runEmotion     protocol.Emotion
		firstEmitted   bool
		wg             sync.WaitGroup
		llmErr         error
		pendingArts    []Artifact
		pendingButtons []string
		audioOnce      sync.Once
	)

	lat := newRunLatency()

	emitSentence := func(raw string) {
		emotion, cleaned := protocol.StripEmotionTag(raw)
		if emotion == "" {
			emotion = protocol.DeriveEmotion(cleaned)
		}

		mu.Lock()
		index := nextIndex
		nextIndex++
		if !firstEmitted {
			firstEmitted = true
			runEmotion = emotion
			sess.Send(protocol.NewStatusOut(protocol.StatusSpeaking))
			sess.Send(protocol.NewEmotionOut(runEmotion))
		}
		fullClean.WriteString(cleaned)
		fullClean.WriteString(" ")
		mu.Unlock()

		sess.Send(protocol.NewReplyChunkOut(index, cleaned, emotion))

		wg.Add(1)
		go func() {
			defer wg.Done()
			audioBytes, err := r.tts.Synthesize(ctx, cleaned, VoiceF1, lang)
			if err != nil {
				r.logger.Debug("tts synthesis failed for sentence, degrading silently", "index", index, "err", err)
				return
			}
			audioOnce.Do(lat.markFirstAudio)
			sess.Send(protocol.NewAudioChunkOut(index, emotion, cleaned, encodeAudio(audioBytes)))
			if r.onAudioPlayed != nil {
				r.onAudioPlayed(sess.ID, audioBytes)
			}
		}()
	}

	err := r.llm.StreamComplete(ctx, messages, func(delta LLMDelta) error {
		lat.markFirstToken()
		var sentences []string
		mu.Lock()
		sentences, buffer = SplitSentences(buffer, delta.Text)
		mu.Unlock()
		for _, s := range sentences {
			emitSentence(s)
		}
		if delta.Final {
			mu.Lock()
			tail := FlushTail(buffer)
			buffer = ""
			mu.Unlock()
			if tail != "" {
				spoken, arts, btns := extractTrailingTags(tail)
				pendingArts = append(pendingArts, arts...)
				pendingButtons = append(pendingButtons, btns...)
				if spoken != "" {
					emitSentence(spoken)
				}
			}
		}
		return nil
	})
	llmErr = err

	if ctx.Err() != nil {
		// Cancellation/barge-in: commit whatever accumulated, idle only,
		// no stream_done.
		lat.markEnd()
		r.logLatency(lat, sess.ID)
		r.commitInterrupted(sess, userText, fullClean.String(), firstEmitted)
		sess.Send(protocol.NewStatusOut(protocol.StatusIdle))
		return attemptResult{producedText: firstEmitted}
	}

	if llmErr != nil {
		sess.Send(protocol.NewErrorOut("language model error: " + llmErr.Error()))
	}

	wg.Wait()

	cleanedFull := strings.TrimSpace(fullClean.String())
	historyText := cleanedFull
	if cleanedFull != "" {
		artifacts := append(ExtractArtifacts(cleanedFull), pendingArts...)
		for _, a := range artifacts {
			sess.Send(protocol.NewArtifactOut("code", a.Content, a.Language, ""))
		}

		opts, afterButtons := ExtractButtons(cleanedFull)
		opts = append(opts, pendingButtons...)
		if len(opts) > 0 {
			options := make([]protocol.ButtonOption, len(opts))
			for i, o := range opts {
				options[i] = protocol.ButtonOption{Text: o, Value: o}
			}
			sess.Send(protocol.NewButtonsOut(options))
		}
		historyText = afterButtons
	}

	if historyText != "" {
		sess.AddTurn("user", userTurnSummaryOrText(userText))
		sess.AddTurn("assistant", historyText)
	}

	lat.markEnd()
	r.logLatency(lat, sess.ID)

	sess.Send(protocol.NewStreamDoneOut())
	sess.Send(protocol.NewStatusOut(protocol.StatusIdle))

	return attemptResult{producedText: cleanedFull != ""}
}

// logLatency reports a run's per-stage timing at stream_done, for
// operational visibility only; nothing here reaches the wire protocol.
func (r *Runner) logLatency(lat *RunLatency, sessionID string) {
	toFirstToken, toFirstAudio, total := lat.Breakdown()
	r.logger.Debug("pipeline run latency",
		"session", sessionID,
		"to_first_token_ms", toFirstToken.Milliseconds(),
		"to_first_audio_ms", toFirstAudio.Milliseconds(),
		"total_ms", total.Milliseconds(),
	)
}

// commitInterrupted records a partial response with an "[interrupted]"
// marker so the next turn has context, per the cancellation/barge-in edge
// case (§4.2, §8 property 6). It only commits if any text had
// accumulated.
func (r *Runner) commitInterrupted(sess *session.Session, userText, partial string, hadText bool) {
	cleaned := strings.TrimSpace(partial)
	if !hadText || cleaned == "" {
		return
	}
	sess.AddTurn("user", userTurnSummaryOrText(userText))
	sess.AddTurn("assistant", cleaned+" [interrupted]")
}

func userTurnSummaryOrText(userText string) string {
	if userText == "" {
		return userTurnSummary("non-text input")
	}
	return userText
}

func historyToMessages(turns []session.Turn) []Message {
	messages := make([]Message, len(turns))
	for i, t := range turns {
		messages[i] = Message{Role: t.Role, Content: t.Content}
	}
	return messages
}
