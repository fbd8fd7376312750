package orchestrator

import (
	"strings"
	"testing"
)

func TestExtractArtifactsSkipsShortFences(t *testing.T) {
	text := "here: ```go\nfmt.Println(1)\n``` done"
	if got := ExtractArtifacts(text); len(got) != 0 {
		t.Fatalf("expected no artifacts for a short fence, got %d", len(got))
	}
}

func TestExtractArtifactsKeepsLongFences(t *testing.T) {
	long := strings.Repeat("x", 250)
	text := "here:\n```python\n" + long + "\n```\nthanks"
	artifacts := ExtractArtifacts(text)
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].Language != "python" {
		t.Errorf("language = %q", artifacts[0].Language)
	}
	if !strings.Contains(artifacts[0].Content, long) {
		t.Error("content missing expected body")
	}
}

func TestExtractButtonsTrailing(t *testing.T) {
	text := "Pick one:\n[[buttons:Yes|No|Maybe]]"
	options, cleaned := ExtractButtons(text)
	if len(options) != 3 || options[0] != "Yes" || options[2] != "Maybe" {
		t.Fatalf("options = %v", options)
	}
	if strings.Contains(cleaned, "[[buttons") {
		t.Error("cleaned text still contains buttons tag")
	}
}

func TestExtractButtonsAbsent(t *testing.T) {
	options, cleaned := ExtractButtons("no buttons here")
	if options != nil {
		t.Fatalf("expected nil options, got %v", options)
	}
	if cleaned != "no buttons here" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestExtractTrailingTagsStripsButtonsFromUnterminatedTail(t *testing.T) {
	tail := "Pick one [[buttons:Yes|No]]"
	spoken, artifacts, buttons := extractTrailingTags(tail)
	if strings.Contains(spoken, "[[buttons") {
		t.Errorf("spoken text still contains the raw tag: %q", spoken)
	}
	if len(artifacts) != 0 {
		t.Fatalf("expected no artifacts, got %d", len(artifacts))
	}
	if len(buttons) != 2 || buttons[0] != "Yes" || buttons[1] != "No" {
		t.Fatalf("buttons = %v", buttons)
	}
}

func TestExtractTrailingTagsStripsLongFenceFromUnterminatedTail(t *testing.T) {
	long := strings.Repeat("x", 250)
	tail := "here:\n```python\n" + long + "\n```"
	spoken, artifacts, buttons := extractTrailingTags(tail)
	if strings.Contains(spoken, "```") {
		t.Errorf("spoken text still contains the fence: %q", spoken)
	}
	if len(artifacts) != 1 || artifacts[0].Language != "python" {
		t.Fatalf("artifacts = %+v", artifacts)
	}
	if buttons != nil {
		t.Fatalf("expected no buttons, got %v", buttons)
	}
}

func TestExtractTrailingTagsLeavesShortTailUntouched(t *testing.T) {
	spoken, artifacts, buttons := extractTrailingTags("just a plain tail")
	if spoken != "just a plain tail" {
		t.Errorf("spoken = %q", spoken)
	}
	if artifacts != nil || buttons != nil {
		t.Errorf("expected no artifacts/buttons, got %v %v", artifacts, buttons)
	}
}
