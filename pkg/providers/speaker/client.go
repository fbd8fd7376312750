// Package speaker is a thin HTTP client over the sibling speaker-ID
// microservice (§4.7): identify, enroll, rename, reset, profiles.
package speaker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

const requestTimeout = 3 * time.Second

// fuzzyRenameThreshold is the minimum Jaro-Winkler similarity at which a
// requested rename target is considered "close enough" to an existing
// profile label that it's probably the same person with a mis-transcribed
// name, rather than a genuinely new one. Below this, the rename proceeds
// as a fresh label.
const fuzzyRenameThreshold = 0.92

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) do(ctx context.Context, path string, payload interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("speaker: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("speaker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("speaker: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speaker: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("speaker: decode response: %w", err)
	}
	return nil
}

func (c *Client) Identify(ctx context.Context, sessionID string, audioBytes []byte) (orchestrator.SpeakerIdentity, error) {
	var out struct {
		SpeakerLabel  string  `json:"speakerLabel"`
		Known         bool    `json:"known"`
		Confidence    float64 `json:"confidence"`
		HasProfiles   bool    `json:"hasProfiles"`
		AutoEnrolling bool    `json:"autoEnrolling"`
	}
	err := c.do(ctx, "/identify", map[string]string{
		"sessionId": sessionID,
		"audio":     base64.StdEncoding.EncodeToString(audioBytes),
	}, &out)
	if err != nil {
		return orchestrator.SpeakerIdentity{}, err
	}
	return orchestrator.SpeakerIdentity{Label: out.SpeakerLabel, Known: out.Known, Confidence: out.Confidence}, nil
}

func (c *Client) Enroll(ctx context.Context, sessionID string, audioBytes []byte, label string, appendSample bool) error {
	path := "/enroll"
	if appendSample {
		path = "/enroll_append"
	}
	return c.do(ctx, path, map[string]interface{}{
		"sessionId": sessionID,
		"audio":     base64.StdEncoding.EncodeToString(audioBytes),
		"label":     label,
	}, nil)
}

// Rename renames oldLabel to newLabel. If newLabel is a close
// (Jaro-Winkler >= fuzzyRenameThreshold) fuzzy match to an existing
// profile other than oldLabel, the existing profile's exact label is used
// instead, so "Carlos" and a later mis-heard "Carlo" don't end up as two
// profiles for one person.
func (c *Client) Rename(ctx context.Context, sessionID, oldLabel, newLabel string) error {
	profiles, err := c.Profiles(ctx, sessionID)
	if err == nil {
		newLabel = resolveFuzzyLabel(profiles, oldLabel, newLabel)
	}
	return c.do(ctx, "/rename", map[string]string{
		"sessionId": sessionID,
		"old":       oldLabel,
		"new":       newLabel,
	}, nil)
}

func resolveFuzzyLabel(profiles []orchestrator.SpeakerProfile, oldLabel, candidate string) string {
	best := candidate
	bestScore := 0.0
	for _, p := range profiles {
		if p.Label == oldLabel {
			continue
		}
		score := matchr.JaroWinkler(strings.ToLower(p.Label), strings.ToLower(candidate), true)
		if score > bestScore {
			bestScore = score
			best = p.Label
		}
	}
	if bestScore >= fuzzyRenameThreshold {
		return best
	}
	return candidate
}

func (c *Client) Reset(ctx context.Context, sessionID string) error {
	return c.do(ctx, "/reset", map[string]string{"sessionId": sessionID}, nil)
}

func (c *Client) Profiles(ctx context.Context, sessionID string) ([]orchestrator.SpeakerProfile, error) {
	var out struct {
		Profiles []struct {
			Label string `json:"label"`
			Known bool   `json:"known"`
		} `json:"profiles"`
	}
	err := c.do(ctx, "/profiles?sessionId="+sessionID, nil, &out)
	if err != nil {
		return nil, err
	}
	profiles := make([]orchestrator.SpeakerProfile, len(out.Profiles))
	for i, p := range out.Profiles {
		profiles[i] = orchestrator.SpeakerProfile{Label: p.Label, Known: p.Known}
	}
	return profiles, nil
}

func (c *Client) Name() string { return "speaker-id" }
