package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/language"
	"live-speech-translator/internal/observability/logging"
)

// elevenLabsLanguages is the set of base tags the multilingual flash model
// handles well enough for this use.
var elevenLabsLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true,
	"pt": true, "ja": true, "ko": true, "zh": true,
}

// ElevenLabs synthesizes speech via the ElevenLabs HTTP streaming endpoint.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	client  *http.Client
	log     zerolog.Logger
}

// NewElevenLabs creates an ElevenLabs synthesizer producing 48kHz PCM.
func NewElevenLabs(apiKey, voiceID string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		client:  &http.Client{},
		log:     logging.WithComponent("tts-elevenlabs"),
	}
}

// Name implements Synthesizer.
func (e *ElevenLabs) Name() string { return "elevenlabs" }

// SupportsLanguage implements Synthesizer.
func (e *ElevenLabs) SupportsLanguage(code string) bool {
	return elevenLabsLanguages[language.Base(code)]
}

// Synthesize requests streamed PCM and reads it to completion.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if e.apiKey == "" || e.voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	if text == "" {
		return nil, nil
	}

	u := url.URL{
		Scheme: "https",
		Host:   "api.elevenlabs.io",
		Path:   "/v1/text-to-speech/" + e.voiceID + "/stream",
	}
	q := u.Query()
	q.Set("model_id", "eleven_flash_v2_5")
	q.Set("output_format", "pcm_48000")
	q.Set("optimize_streaming_latency", "2")
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": "eleven_flash_v2_5",
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs: status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read stream: %w", err)
	}
	return audio, nil
}
