package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/audio"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

type OpenAISTT struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
}

func NewOpenAISTT(apiKey string, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		sampleRate: 44100,
	}
}

func (s *OpenAISTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *OpenAISTT) Name() string {
	return "openai_stt"
}

func (s *OpenAISTT) Transcribe(ctx context.Context, audioPCM []byte, lang orchestrator.Language) (string, error) {
	wavData := audio.NewWavBuffer(audioPCM, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return "", err
	}

	if lang != "" {
		if err := writer.WriteField("language", string(lang)); err != nil {
			return "", err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wavData); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Text, nil
}

// TranscribeDetailed requests the verbose_json format, which reports
// per-segment average log-probability and no-speech probability — the
// confidence signals the ambient listener (§4.3) filters low-quality
// segments on. It satisfies orchestrator.AmbientSTTProvider.
func (s *OpenAISTT) TranscribeDetailed(ctx context.Context, audioPCM []byte) (orchestrator.TranscriptionResult, error) {
	wavData := audio.NewWavBuffer(audioPCM, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", s.model); err != nil {
		return orchestrator.TranscriptionResult{}, err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return orchestrator.TranscriptionResult{}, err
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return orchestrator.TranscriptionResult{}, err
	}
	if _, err := part.Write(wavData); err != nil {
		return orchestrator.TranscriptionResult{}, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return orchestrator.TranscriptionResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return orchestrator.TranscriptionResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return orchestrator.TranscriptionResult{}, fmt.Errorf("openai error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var parsed struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			AvgLogprob    float64 `json:"avg_logprob"`
			NoSpeechProb  float64 `json:"no_speech_prob"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return orchestrator.TranscriptionResult{}, err
	}

	result := orchestrator.TranscriptionResult{
		Text:     parsed.Text,
		Language: normalizeLanguage(parsed.Language),
	}
	if n := len(parsed.Segments); n > 0 {
		var sumLogprob, sumNoSpeech float64
		for _, seg := range parsed.Segments {
			sumLogprob += seg.AvgLogprob
			sumNoSpeech += seg.NoSpeechProb
		}
		result.AvgLogProb = sumLogprob / float64(n)
		result.NoSpeechProb = sumNoSpeech / float64(n)
	}
	return result, nil
}

// normalizeLanguage maps the API's full language name (e.g. "english") to
// the orchestrator's ISO-639-1 Language codes; unrecognized values pass
// through so an unsupported-language drop still happens downstream.
func normalizeLanguage(raw string) orchestrator.Language {
	switch raw {
	case "english", "en":
		return orchestrator.LanguageEn
	case "spanish", "es":
		return orchestrator.LanguageEs
	default:
		return orchestrator.Language(raw)
	}
}
