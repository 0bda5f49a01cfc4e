// Package mock provides a scripted recognition provider for tests and
// credential-free runs. It simulates realistic provider behavior:
// progressive interim transcripts, a final per utterance, asynchronous
// translations that may arrive after the next utterance has started, and an
// occasional correction.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"live-speech-translator/internal/provider"
)

// ScriptedUtterance is one simulated utterance.
type ScriptedUtterance struct {
	Partials    []string // progressive interim transcripts
	Final       string   // final transcript text
	Confidence  float64
	Language    string
	Translation string // delivered asynchronously after the final
}

// DefaultScript provides sample utterances for simulation.
var DefaultScript = []ScriptedUtterance{
	{
		Partials:    []string{"Hel", "Hello there"},
		Final:       "Hello there.",
		Confidence:  0.95,
		Language:    "en-US",
		Translation: "你好。",
	},
	{
		Partials:    []string{"How are", "How are you"},
		Final:       "How are you today?",
		Confidence:  0.93,
		Language:    "en-US",
		Translation: "你今天好吗？",
	},
	{
		Partials:    []string{"很高兴", "很高兴认识"},
		Final:       "很高兴认识你。",
		Confidence:  0.9,
		Language:    "zh-CN",
		Translation: "Nice to meet you.",
	},
}

// Provider implements provider.Recognizer with scripted responses driven by
// SendAudio calls.
type Provider struct {
	Script       []ScriptedUtterance
	ResultDelay  time.Duration // delay before each simulated callback
	ConnectDelay time.Duration // simulated connect/negotiate time

	mu           sync.Mutex
	cb           provider.Events
	connected    bool
	utterance    int
	partialIndex int
	finalSent    bool
}

// New creates a mock provider playing DefaultScript.
func New() *Provider {
	return &Provider{Script: DefaultScript, ResultDelay: 20 * time.Millisecond}
}

// Name implements provider.Recognizer.
func (p *Provider) Name() string { return "mock" }

// Capabilities implements provider.Recognizer.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		ReliableFinals:                   true,
		InterimTranslationsAuthoritative: false,
		Translates:                       true,
	}
}

// Connect registers the event sink after an optional simulated delay.
func (p *Provider) Connect(ctx context.Context, serverAddr, sourceLang, targetLang string, cb provider.Events) error {
	if p.ConnectDelay > 0 {
		select {
		case <-time.After(p.ConnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
	p.connected = true
	p.utterance = 0
	p.partialIndex = 0
	p.finalSent = false
	return nil
}

// SendAudio advances the script: one partial per frame, then the final and
// its translation once partials are exhausted.
func (p *Provider) SendAudio(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected || p.cb == nil {
		return fmt.Errorf("mock: not connected")
	}
	if p.utterance >= len(p.Script) {
		return nil
	}
	utt := p.Script[p.utterance]

	if p.partialIndex < len(utt.Partials) {
		text := utt.Partials[p.partialIndex]
		p.partialIndex++
		p.emit(func(cb provider.Events) {
			cb.OnTranscript(text, false, 0, utt.Language)
		})
		return nil
	}

	if !p.finalSent {
		p.finalSent = true
		p.emit(func(cb provider.Events) {
			cb.OnTranscript(utt.Final, true, utt.Confidence, utt.Language)
			if utt.Translation != "" {
				cb.OnTranslation(utt.Final, utt.Translation)
			}
		})
		p.utterance++
		p.partialIndex = 0
		p.finalSent = false
	}
	return nil
}

// SendEndOfUtterance forces the current utterance's final immediately.
func (p *Provider) SendEndOfUtterance() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.cb == nil || p.utterance >= len(p.Script) {
		return nil
	}
	utt := p.Script[p.utterance]
	p.emit(func(cb provider.Events) {
		cb.OnTranscript(utt.Final, true, utt.Confidence, utt.Language)
		if utt.Translation != "" {
			cb.OnTranslation(utt.Final, utt.Translation)
		}
	})
	p.utterance++
	p.partialIndex = 0
	p.finalSent = false
	return nil
}

// Correct emits a correction event for a previously finalized utterance.
func (p *Provider) Correct(oldText, newText string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cb == nil {
		return
	}
	p.emit(func(cb provider.Events) {
		cb.OnCorrection(oldText, newText)
	})
}

// Status implements provider.Recognizer.
func (p *Provider) Status() provider.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return provider.Status{State: provider.StateConnected}
	}
	return provider.Status{State: provider.StateDisconnected}
}

// Disconnect ends the simulated session. Idempotent.
func (p *Provider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// emit delivers a callback asynchronously, mimicking a network receive loop.
// Called with p.mu held; the callback itself runs without the lock.
func (p *Provider) emit(fn func(cb provider.Events)) {
	cb := p.cb
	delay := p.ResultDelay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		fn(cb)
	}()
}
