package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

type fakeTTS struct {
	name string
	err  error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language) ([]byte, error) {
	return nil, f.err
}

func (f *fakeTTS) StreamSynthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language, onChunk func([]byte) error) error {
	if f.err != nil {
		return f.err
	}
	return onChunk([]byte(f.name))
}

func (f *fakeTTS) Name() string { return f.name }

func TestSelectorFallsBackToCloudOnFailure(t *testing.T) {
	cloud := &fakeTTS{name: "cloud"}
	localFast := &fakeTTS{name: "local_fast", err: errors.New("gpu busy")}
	sel := NewSelector(cloud, localFast, nil)

	var got string
	err := sel.StreamSynthesizeWith(context.Background(), EngineLocalFast, "hi", orchestrator.VoiceF1, orchestrator.LanguageEn, func(b []byte) error {
		got = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cloud" {
		t.Fatalf("expected fallback to cloud engine output, got %q", got)
	}
}

func TestSelectorCloudFailureDoesNotFallBackToItself(t *testing.T) {
	cloud := &fakeTTS{name: "cloud", err: errors.New("down")}
	sel := NewSelector(cloud, nil, nil)

	err := sel.StreamSynthesizeWith(context.Background(), EngineCloud, "hi", orchestrator.VoiceF1, orchestrator.LanguageEn, func([]byte) error { return nil })
	if err == nil {
		t.Fatal("expected error when cloud engine itself fails")
	}
}

func TestSelectorUnknownEngine(t *testing.T) {
	sel := NewSelector(&fakeTTS{name: "cloud"}, nil, nil)
	err := sel.StreamSynthesizeWith(context.Background(), Engine("made_up"), "hi", orchestrator.VoiceF1, orchestrator.LanguageEn, func([]byte) error { return nil })
	if !errors.Is(err, orchestrator.ErrUnsupportedEngine) {
		t.Fatalf("expected ErrUnsupportedEngine, got %v", err)
	}
}
