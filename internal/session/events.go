package session

import (
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/provider"
)

// Typed events posted into the coordination loop. Every asynchronous producer
// (provider receive loops, timers, playback callbacks, user gestures) talks
// to session state through these; nothing mutates the transcript outside the
// loop goroutine.
type event any

// transcriptEvent carries one recognition result.
type transcriptEvent struct {
	text        string
	isFinal     bool
	confidence  float64
	languageTag string
}

// translationEvent carries one translation pair.
type translationEvent struct {
	sourceText     string
	translatedText string
}

// segmentsEvent carries a segmented-translation result.
type segmentsEvent struct {
	sourceText string
	segments   []provider.Segment
}

// correctionEvent carries a provider revision of a finalized result.
type correctionEvent struct {
	oldText string
	newText string
}

// providerErrorEvent carries a stream-level provider error.
type providerErrorEvent struct {
	msg string
}

// connectedEvent signals that the background connect for a session
// generation succeeded.
type connectedEvent struct {
	gen uint64
}

// connectFailedEvent signals that the background connect for a session
// generation failed.
type connectFailedEvent struct {
	gen uint64
	err error
}

// stabilityEvent signals a stability-window expiry for a generation.
type stabilityEvent struct {
	generation int
}

// playModeEvent switches the play-eligibility filter.
type playModeEvent struct {
	mode models.PlayMode
}

// resetEvent clears all per-session transcript and planner state. The reset
// applies only when gen still matches the current session generation. done,
// when non-nil, is closed once the event has been handled.
type resetEvent struct {
	gen  uint64
	done chan struct{}
}

// snapshotEvent requests a consistent read of session state.
type snapshotEvent struct {
	reply chan Snapshot
}

// Snapshot is a consistent copy of the user-visible session state.
type Snapshot struct {
	SessionID  string                   `json:"sessionId,omitempty"`
	State      string                   `json:"state"`
	Error      string                   `json:"error,omitempty"`
	InputMode  models.InputMode         `json:"inputMode"`
	PlayMode   models.PlayMode          `json:"playMode"`
	Sending    bool                     `json:"sending"`
	History    []models.TranscriptEntry `json:"history"`
	Interim    *models.TranscriptEntry  `json:"interim,omitempty"`
	QueueDepth int                      `json:"queueDepth"`
}
