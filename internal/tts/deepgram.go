package tts

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
	"github.com/rs/zerolog"

	"live-speech-translator/internal/language"
	"live-speech-translator/internal/observability/logging"
)

// deepgramModels maps base language tags to Aura voice models.
var deepgramModels = map[string]string{
	"en": "aura-2-thalia-en",
	"es": "aura-2-celeste-es",
}

// Deepgram synthesizes speech over the Deepgram speak websocket, collecting
// the streamed PCM chunks into a single buffer.
type Deepgram struct {
	apiKey     string
	sampleRate int
	encoding   string
	log        zerolog.Logger
}

// NewDeepgram creates a Deepgram synthesizer producing 48kHz linear16 PCM.
func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		apiKey:     apiKey,
		sampleRate: 48000,
		encoding:   "linear16",
		log:        logging.WithComponent("tts-deepgram"),
	}
}

// Name implements Synthesizer.
func (d *Deepgram) Name() string { return "deepgram" }

// SupportsLanguage reports whether an Aura model exists for the base tag.
func (d *Deepgram) SupportsLanguage(code string) bool {
	_, ok := deepgramModels[language.Base(code)]
	return ok
}

// Synthesize requests audio for text and blocks until the stream goes idle,
// the deadline passes, or ctx is cancelled.
func (d *Deepgram) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("deepgram: API key missing")
	}
	model, ok := deepgramModels[language.Base(languageCode)]
	if !ok {
		return nil, fmt.Errorf("deepgram: no voice model for %q", languageCode)
	}
	if text == "" {
		return nil, nil
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      model,
		Encoding:   d.encoding,
		SampleRate: d.sampleRate,
	}

	var (
		mu       sync.Mutex
		buf      bytes.Buffer
		lastRecv time.Time
	)

	cb := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		mu.Lock()
		buf.Write(data)
		lastRecv = time.Now()
		mu.Unlock()
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, fmt.Errorf("deepgram: connect failed")
	}

	if err := dg.SpeakWithText(text); err != nil {
		return nil, fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		d.log.Warn().Err(err).Msg("flush error")
	}

	// The speak websocket has no explicit end-of-audio signal; treat a quiet
	// stream as complete.
	idleWindow := 400 * time.Millisecond
	deadline := time.Now().Add(12 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			mu.Lock()
			got := buf.Len()
			last := lastRecv
			mu.Unlock()
			if got > 0 && time.Since(last) > idleWindow {
				mu.Lock()
				out := make([]byte, buf.Len())
				copy(out, buf.Bytes())
				mu.Unlock()
				return out, nil
			}
			if time.Now().After(deadline) {
				if got == 0 {
					return nil, fmt.Errorf("deepgram: no audio before deadline")
				}
				mu.Lock()
				out := make([]byte, buf.Len())
				copy(out, buf.Bytes())
				mu.Unlock()
				return out, nil
			}
		}
	}
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
