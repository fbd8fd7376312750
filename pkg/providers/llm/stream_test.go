package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

func TestGroqLLMStreamCompleteEmitsDeltasThenFinal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	l := &GroqLLM{apiKey: "test-key", url: server.URL, model: "llama3-70b"}

	var got []orchestrator.LLMDelta
	err := l.StreamComplete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, func(d orchestrator.LLMDelta) error {
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 deltas (2 text + final), got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hel" || got[1].Text != "lo" {
		t.Errorf("unexpected delta text sequence: %+v", got)
	}
	if !got[2].Final {
		t.Errorf("expected last delta to be marked final, got %+v", got[2])
	}
}

func TestGroqLLMStreamCompletePropagatesOnDeltaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
	}))
	defer server.Close()

	l := &GroqLLM{apiKey: "test-key", url: server.URL, model: "llama3-70b"}

	boom := fmt.Errorf("sink closed")
	err := l.StreamComplete(context.Background(), nil, func(orchestrator.LLMDelta) error {
		return boom
	})
	if err != boom {
		t.Fatalf("expected onDelta error to propagate, got %v", err)
	}
}

func TestAnthropicLLMStreamCompleteEmitsDeltasThenFinal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"delta\":{\"text\":\"Hel\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"delta\":{\"text\":\"lo\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {}\n\n")
	}))
	defer server.Close()

	l := &AnthropicLLM{apiKey: "test-key", url: server.URL, model: "claude-3"}

	var got []orchestrator.LLMDelta
	err := l.StreamComplete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, func(d orchestrator.LLMDelta) error {
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 deltas (2 text + final), got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hel" || got[1].Text != "lo" {
		t.Errorf("unexpected delta text sequence: %+v", got)
	}
	if !got[2].Final {
		t.Errorf("expected last delta to be marked final, got %+v", got[2])
	}
}

func TestGoogleLLMStreamCompleteEmitsDeltasThenFinal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"lo\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[]},\"finishReason\":\"STOP\"}]}\n\n")
	}))
	defer server.Close()

	l := &GoogleLLM{apiKey: "test-key", baseURL: server.URL, model: "gemini"}

	var got []orchestrator.LLMDelta
	err := l.StreamComplete(context.Background(), []orchestrator.Message{{Role: "user", Content: "hi"}}, func(d orchestrator.LLMDelta) error {
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 deltas (2 text + final), got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hel" || got[1].Text != "lo" {
		t.Errorf("unexpected delta text sequence: %+v", got)
	}
	if !got[2].Final {
		t.Errorf("expected last delta to be marked final, got %+v", got[2])
	}
}
