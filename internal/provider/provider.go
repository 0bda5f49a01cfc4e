// Package provider defines the recognition provider contract consumed by the
// session orchestrator. Any backend implementing this contract is acceptable;
// no wire format is prescribed here.
package provider

import "context"

// State is the connection state of a recognition provider.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the readable connection state plus the provider-reported error,
// if any.
type Status struct {
	State State
	Err   string
}

// Segment is one unit of a segmented-translation result.
type Segment struct {
	Text        string
	Translation string
}

// Events receives the provider's asynchronous result streams. Implementations
// must be safe to call from the provider's own goroutines; the session posts
// each callback into its coordination loop.
type Events interface {
	// OnTranscript is called for every interim or final recognition result.
	OnTranscript(text string, isFinal bool, confidence float64, languageTag string)

	// OnTranslation is called when a translation for previously recognized
	// text arrives. Delivery may be out of order relative to finalization.
	OnTranslation(sourceText, translatedText string)

	// OnSegments is called by providers that emit segmented translations.
	OnSegments(sourceText string, segments []Segment)

	// OnCorrection is called by providers that can revise a previously
	// finalized result.
	OnCorrection(oldText, newText string)

	// OnError is called when the provider reports a stream-level error.
	OnError(msg string)
}

// Capabilities describes provider-specific result semantics the orchestrator
// must adapt to.
type Capabilities struct {
	// ReliableFinals is true when the provider always emits an explicit
	// finalization for every utterance. Providers without it get
	// pseudo-final promotion in the reconciler.
	ReliableFinals bool

	// InterimTranslationsAuthoritative is true when translations attached to
	// interim results are trustworthy enough to carry across interim
	// replacements and inherit at finalization.
	InterimTranslationsAuthoritative bool

	// Translates is true when the provider emits a translation stream at
	// all. When false the translation matcher simply stays idle.
	Translates bool
}

// Recognizer is a streaming speech recognition (and optionally translation)
// backend. Exactly one recognizer is active per session.
type Recognizer interface {
	// Connect establishes the provider session and registers the event sink.
	// It blocks until connected or ctx expires.
	Connect(ctx context.Context, serverAddr, sourceLang, targetLang string, cb Events) error

	// Disconnect tears the provider session down. Idempotent.
	Disconnect() error

	// SendAudio forwards one outbound audio frame.
	SendAudio(pcm []byte) error

	// SendEndOfUtterance hints that no more audio is coming for the current
	// utterance. Providers relying on their own voice-activity detection may
	// treat this as a no-op.
	SendEndOfUtterance() error

	// Status returns the current connection status.
	Status() Status

	// Capabilities returns the provider's result semantics.
	Capabilities() Capabilities

	// Name returns the provider identifier used in logs and metrics.
	Name() string
}
