package tts

import (
	"context"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

// Engine is the closed set of TTS engines the adapter can dispatch to.
type Engine string

const (
	EngineCloud      Engine = "cloud"
	EngineLocalFast  Engine = "local_fast"
	EngineLocalClone Engine = "local_clone"
)

const requestTimeout = 30 * time.Second

// Selector dispatches a synthesis request to the configured engine,
// falling back to the cloud engine on any failure of a non-cloud engine
// (§4.6). The core treats its output as opaque bytes. Selector itself
// satisfies orchestrator.TTSProvider against DefaultEngine, so the pipeline
// run can hold it as a plain TTSProvider while cmd/server's set_tts_engine
// handler drives engine selection through SetDefaultEngine;
// StreamSynthesizeWith takes the engine explicitly.
type Selector struct {
	engines       map[Engine]orchestrator.TTSProvider
	defaultEngine Engine
}

func NewSelector(cloud, localFast, localClone orchestrator.TTSProvider) *Selector {
	engines := map[Engine]orchestrator.TTSProvider{}
	if cloud != nil {
		engines[EngineCloud] = cloud
	}
	if localFast != nil {
		engines[EngineLocalFast] = localFast
	}
	if localClone != nil {
		engines[EngineLocalClone] = localClone
	}
	return &Selector{engines: engines, defaultEngine: EngineCloud}
}

// SetDefaultEngine changes which engine Synthesize/StreamSynthesize use,
// per a client's set_tts_engine request.
func (s *Selector) SetDefaultEngine(engine Engine) { s.defaultEngine = engine }

func (s *Selector) Name() string { return "tts-selector" }

// Synthesize buffers StreamSynthesizeWith against the default engine into
// a single byte slice, satisfying orchestrator.TTSProvider.
func (s *Selector) Synthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language) ([]byte, error) {
	var out []byte
	err := s.StreamSynthesizeWith(ctx, s.defaultEngine, text, voice, lang, func(chunk []byte) error {
		out = append(out, chunk...)
		return nil
	})
	return out, err
}

// StreamSynthesize satisfies orchestrator.TTSProvider against the default
// engine.
func (s *Selector) StreamSynthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language, onChunk func([]byte) error) error {
	return s.StreamSynthesizeWith(ctx, s.defaultEngine, text, voice, lang, onChunk)
}

// StreamSynthesizeWith dispatches to engine with a bounded per-request
// timeout, falling back to the cloud engine on failure unless engine was
// already cloud.
func (s *Selector) StreamSynthesizeWith(ctx context.Context, engine Engine, text string, voice orchestrator.Voice, lang orchestrator.Language, onChunk func([]byte) error) error {
	provider, ok := s.engines[engine]
	if !ok {
		return orchestrator.ErrUnsupportedEngine
	}

	boundedCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	err := provider.StreamSynthesize(boundedCtx, text, voice, lang, onChunk)
	cancel()
	if err == nil || engine == EngineCloud {
		return err
	}

	cloud, ok := s.engines[EngineCloud]
	if !ok {
		return err
	}
	boundedCtx, cancel = context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return cloud.StreamSynthesize(boundedCtx, text, voice, lang, onChunk)
}
