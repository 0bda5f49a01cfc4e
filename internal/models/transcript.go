// Package models defines the data structures shared by the orchestrator core
// and the event export layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptEntry is one recognized utterance. At most one non-final entry
// (the current interim) exists at a time; final entries form an append-only
// ordered history. The reconciler owns entry lifecycle; the translation
// matcher may only set Translation.
type TranscriptEntry struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	IsFinal     bool      `json:"isFinal"`
	Confidence  float64   `json:"confidence"`
	LanguageTag string    `json:"languageTag,omitempty"`
	Translation string    `json:"translation,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewTranscriptEntry creates an entry with a stable opaque ID.
func NewTranscriptEntry(text string, isFinal bool, confidence float64, languageTag string) *TranscriptEntry {
	return &TranscriptEntry{
		ID:          uuid.NewString(),
		Text:        text,
		IsFinal:     isFinal,
		Confidence:  confidence,
		LanguageTag: languageTag,
		CreatedAt:   time.Now().UTC(),
	}
}

// TranslationEvent is a transient message from the recognition provider.
// It is never stored; its only lasting effect is the mutation of a matched
// TranscriptEntry and possibly an enqueued speech item.
type TranslationEvent struct {
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
}

// SpeechItem is one queued text-to-speech request.
type SpeechItem struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

// InputMode controls when outbound audio is sent to the recognition provider.
type InputMode string

const (
	// InputPushToTalk sends audio only between explicit start/stop signals.
	InputPushToTalk InputMode = "pushToTalk"
	// InputContinuous sends audio for the whole active session.
	InputContinuous InputMode = "continuous"
)

// ParseInputMode returns the mode for s, defaulting to push-to-talk.
func ParseInputMode(s string) InputMode {
	if s == string(InputContinuous) {
		return InputContinuous
	}
	return InputPushToTalk
}

// PlayMode filters which bound translations are spoken, based on the
// detected language of their source transcript.
type PlayMode string

const (
	PlayAll        PlayMode = "all"
	PlaySourceOnly PlayMode = "source"
	PlayTargetOnly PlayMode = "target"
	PlayMuted      PlayMode = "muted"
)

// ParsePlayMode returns the mode for s, defaulting to play-all.
func ParsePlayMode(s string) PlayMode {
	switch PlayMode(s) {
	case PlaySourceOnly, PlayTargetOnly, PlayMuted:
		return PlayMode(s)
	default:
		return PlayAll
	}
}

// TranscriptPartialEvent is the exported payload for an interim result.
type TranscriptPartialEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	Text        string `json:"text"`
	LanguageTag string `json:"languageTag,omitempty"`
}

// TranscriptFinalEvent is the exported payload for a finalized result.
type TranscriptFinalEvent struct {
	EventType   string  `json:"eventType"`
	SessionID   string  `json:"sessionId"`
	Timestamp   int64   `json:"timestamp"`
	EntryID     string  `json:"entryId"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	LanguageTag string  `json:"languageTag,omitempty"`
}

// TranslationBoundEvent is the exported payload for a translation bound to a
// final transcript entry.
type TranslationBoundEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	EntryID     string `json:"entryId"`
	SourceText  string `json:"sourceText"`
	Translation string `json:"translation"`
}
