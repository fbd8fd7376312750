package stt

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

func TestOpenAISTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		resp := struct {
			Text string `json:"text"`
		}{
			Text: "transcribed text",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &OpenAISTT{
		apiKey:     "test-key",
		url:        server.URL,
		model:      "whisper-1",
		sampleRate: 44100,
	}

	result, err := s.Transcribe(context.Background(), []byte{0, 0, 0, 0}, orchestrator.LanguageEn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != "transcribed text" {
		t.Errorf("expected 'transcribed text', got '%s'", result)
	}

	if s.Name() != "openai_stt" {
		t.Errorf("expected openai_stt, got %s", s.Name())
	}
}

func TestOpenAISTTTranscribeDetailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"text":     "hola que tal",
			"language": "spanish",
			"segments": []map[string]interface{}{
				{"avg_logprob": -0.2, "no_speech_prob": 0.1},
				{"avg_logprob": -0.4, "no_speech_prob": 0.3},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &OpenAISTT{apiKey: "test-key", url: server.URL, model: "whisper-1", sampleRate: 16000}
	result, err := s.TranscribeDetailed(context.Background(), []byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Language != orchestrator.LanguageEs {
		t.Errorf("language = %v, want es", result.Language)
	}
	if math.Abs(result.AvgLogProb-(-0.3)) > 1e-9 {
		t.Errorf("avg log prob = %v, want -0.3", result.AvgLogProb)
	}
	if result.NoSpeechProb != 0.2 {
		t.Errorf("no speech prob = %v, want 0.2", result.NoSpeechProb)
	}
}
