package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

type GoogleLLM struct {
	apiKey  string
	baseURL string
	model   string
}

func NewGoogleLLM(apiKey string, model string) *GoogleLLM {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GoogleLLM{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models/" + model,
		model:   model,
	}
}

type googleMessage struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

// buildGoogleMessages maps role names onto Gemini's "user"/"model" pair;
// Gemini has no system role, so a system message is folded in as a leading
// user turn.
func buildGoogleMessages(messages []orchestrator.Message) []googleMessage {
	var googleMessages []googleMessage
	for _, m := range messages {
		role := m.Role
		if role == "system" {
			role = "user"
		}
		if role == "assistant" {
			role = "model"
		}
		msg := googleMessage{Role: role}
		msg.Parts = append(msg.Parts, struct {
			Text string `json:"text"`
		}{Text: m.Content})
		googleMessages = append(googleMessages, msg)
	}
	return googleMessages
}

func (l *GoogleLLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	payload := map[string]interface{}{
		"contents": buildGoogleMessages(messages),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+":generateContent?key="+l.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("google llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from google llm")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// StreamComplete satisfies orchestrator.StreamingLLMProvider by requesting
// Gemini's streamGenerateContent endpoint with alt=sse, which wraps each
// incremental candidate in a standard "data: " SSE line.
func (l *GoogleLLM) StreamComplete(ctx context.Context, messages []orchestrator.Message, onDelta func(orchestrator.LLMDelta) error) error {
	payload := map[string]interface{}{
		"contents": buildGoogleMessages(messages),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+":streamGenerateContent?alt=sse&key="+l.apiKey, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("google llm stream error (status %d): %v", resp.StatusCode, errResp)
	}

	return scanGoogleStream(resp.Body, onDelta)
}

// scanGoogleStream parses Gemini's alt=sse stream: every "data: " line is a
// full candidate chunk, and a populated finishReason marks the last one.
func scanGoogleStream(body io.Reader, onDelta func(orchestrator.LLMDelta) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
				FinishReason string `json:"finishReason"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, c := range chunk.Candidates {
			for _, p := range c.Content.Parts {
				if p.Text != "" {
					if err := onDelta(orchestrator.LLMDelta{Text: p.Text}); err != nil {
						return err
					}
				}
			}
			if c.FinishReason != "" {
				return onDelta(orchestrator.LLMDelta{Final: true})
			}
		}
	}
	return scanner.Err()
}

func (l *GoogleLLM) Name() string {
	return "google-llm"
}
