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

type AnthropicLLM struct {
	apiKey string
	url    string
	model  string
}

func NewAnthropicLLM(apiKey string, model string) *AnthropicLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicLLM{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
	}
}

// splitSystemAndMessages pulls the (at most one) system message out of the
// history, since Anthropic's Messages API takes it as a top-level field
// rather than a role in the messages array.
func splitSystemAndMessages(messages []orchestrator.Message) (string, []map[string]string) {
	var system string
	var anthropicMessages []map[string]string
	for _, msg := range messages {
		if msg.Role == "system" {
			system = msg.Content
		} else {
			anthropicMessages = append(anthropicMessages, map[string]string{
				"role":    msg.Role,
				"content": msg.Content,
			})
		}
	}
	return system, anthropicMessages
}

func (l *AnthropicLLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	system, anthropicMessages := splitSystemAndMessages(messages)

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   anthropicMessages,
		"max_tokens": 1024,
	}
	if system != "" {
		payload["system"] = system
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned from anthropic")
	}

	return result.Content[0].Text, nil
}

// StreamComplete satisfies orchestrator.StreamingLLMProvider, consuming
// Anthropic's named-event SSE stream.
func (l *AnthropicLLM) StreamComplete(ctx context.Context, messages []orchestrator.Message, onDelta func(orchestrator.LLMDelta) error) error {
	system, anthropicMessages := splitSystemAndMessages(messages)

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   anthropicMessages,
		"max_tokens": 1024,
		"stream":     true,
	}
	if system != "" {
		payload["system"] = system
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("anthropic llm stream error (status %d): %v", resp.StatusCode, errResp)
	}

	return scanAnthropicStream(resp.Body, onDelta)
}

// scanAnthropicStream parses Anthropic's named-event SSE stream: each
// content_block_delta event carries one incremental text_delta, and
// message_stop marks the end of the reply. Unlike the OpenAI-compatible
// wire format, the event name arrives on its own line ahead of the data
// line, so it has to be tracked across scanner iterations.
func scanAnthropicStream(body io.Reader, onDelta func(orchestrator.LLMDelta) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "content_block_delta":
				var chunk struct {
					Delta struct {
						Text string `json:"text"`
					} `json:"delta"`
				}
				if err := json.Unmarshal([]byte(data), &chunk); err != nil {
					continue
				}
				if chunk.Delta.Text != "" {
					if err := onDelta(orchestrator.LLMDelta{Text: chunk.Delta.Text}); err != nil {
						return err
					}
				}
			case "message_stop":
				return onDelta(orchestrator.LLMDelta{Final: true})
			}
		}
	}
	return scanner.Err()
}

func (l *AnthropicLLM) Name() string {
	return "anthropic-llm"
}
