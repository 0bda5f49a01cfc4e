package tts

import (
	"context"
	"sync"
)

// Mock is a synthesizer for tests and credential-free runs. It fabricates a
// deterministic PCM payload proportional to the text length and records every
// request.
type Mock struct {
	// Err, when set, is returned by every Synthesize call.
	Err error
	// Languages restricts SupportsLanguage when non-nil.
	Languages map[string]bool

	mu       sync.Mutex
	requests []string
}

// NewMock creates a mock synthesizer supporting every language.
func NewMock() *Mock {
	return &Mock{}
}

// Name implements Synthesizer.
func (m *Mock) Name() string { return "mock" }

// SupportsLanguage implements Synthesizer.
func (m *Mock) SupportsLanguage(code string) bool {
	if m.Languages == nil {
		return true
	}
	return m.Languages[code]
}

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.requests = append(m.requests, text)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	// 20ms of 48kHz 16-bit mono per character keeps playback tests fast.
	return make([]byte, len(text)*1920), nil
}

// Requests returns the texts synthesized so far.
func (m *Mock) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}
