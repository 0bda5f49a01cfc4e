// Package tts defines the speech synthesis contract and its provider
// implementations.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// ErrLanguageUnsupported is returned when no synthesizer in a chain supports
// the requested language code.
var ErrLanguageUnsupported = errors.New("language not supported by any synthesizer")

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	// Synthesize returns PCM audio for the given text. The call is a
	// network request; it honors ctx cancellation.
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)

	// SupportsLanguage reports whether the synthesizer can speak the given
	// language code, so callers can fall back to an alternate provider.
	SupportsLanguage(code string) bool

	// Name returns the provider identifier used in logs and metrics.
	Name() string
}

// Fallback tries each synthesizer in order and uses the first one that
// supports the requested language.
type Fallback struct {
	chain []Synthesizer
}

// NewFallback builds a fallback chain. Order matters: earlier synthesizers
// win when several support a language.
func NewFallback(chain ...Synthesizer) *Fallback {
	return &Fallback{chain: chain}
}

// Name implements Synthesizer.
func (f *Fallback) Name() string { return "fallback" }

// SupportsLanguage reports whether any chained synthesizer supports code.
func (f *Fallback) SupportsLanguage(code string) bool {
	for _, s := range f.chain {
		if s.SupportsLanguage(code) {
			return true
		}
	}
	return false
}

// Synthesize delegates to the first synthesizer supporting languageCode.
func (f *Fallback) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	for _, s := range f.chain {
		if s.SupportsLanguage(languageCode) {
			return s.Synthesize(ctx, text, languageCode)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLanguageUnsupported, languageCode)
}
