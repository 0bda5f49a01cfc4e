// Package playback paces raw PCM audio out in real time so that playback of a
// synthesized utterance takes roughly as long as the speech itself.
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/observability/logging"
)

// Sink receives paced audio frames. Implementations bridge to a speaker
// device, a network peer, or a test recorder.
type Sink interface {
	// WriteFrame delivers one frame of PCM audio. Errors abort the current
	// playback.
	WriteFrame(frame []byte) error
}

// Player plays one utterance at a time and reports completion.
type Player interface {
	// Play starts playback of audio, stopping any utterance in progress.
	// text identifies the utterance for completion callbacks.
	Play(audio []byte, text string)

	// Stop aborts the current utterance, if any, firing its completion.
	Stop()

	// Current returns the text of the utterance playing now, or "".
	Current() string

	// SetOnComplete registers the callback invoked exactly once per Play,
	// whether the utterance finished or was stopped.
	SetOnComplete(fn func(text string))
}

const (
	frameDuration = 20 * time.Millisecond
	// 48kHz, 16-bit, mono: 48000 * 2 bytes * 0.02s.
	frameSize = 1920
)

// PacedPlayer writes fixed 20ms frames of 48kHz 16-bit mono PCM to a Sink on
// a real-time schedule.
type PacedPlayer struct {
	sink Sink
	log  zerolog.Logger

	mu         sync.Mutex
	current    string
	stop       chan struct{}
	onComplete func(string)
}

// NewPacedPlayer creates a player writing to sink.
func NewPacedPlayer(sink Sink) *PacedPlayer {
	return &PacedPlayer{
		sink: sink,
		log:  logging.WithComponent("playback"),
	}
}

// SetOnComplete implements Player.
func (p *PacedPlayer) SetOnComplete(fn func(text string)) {
	p.mu.Lock()
	p.onComplete = fn
	p.mu.Unlock()
}

// Current implements Player.
func (p *PacedPlayer) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Play implements Player. Any utterance in progress is stopped first and its
// completion fires before the new one starts.
func (p *PacedPlayer) Play(audio []byte, text string) {
	p.Stop()

	p.mu.Lock()
	stop := make(chan struct{})
	p.stop = stop
	p.current = text
	p.mu.Unlock()

	go p.run(audio, text, stop)
}

// Stop implements Player.
func (p *PacedPlayer) Stop() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (p *PacedPlayer) run(audio []byte, text string, stop chan struct{}) {
	defer p.finish(text, stop)

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for off := 0; off < len(audio); off += frameSize {
		end := off + frameSize
		if end > len(audio) {
			end = len(audio)
		}
		frame := audio[off:end]
		if len(frame) < frameSize {
			padded := make([]byte, frameSize)
			copy(padded, frame)
			frame = padded
		}
		if err := p.sink.WriteFrame(frame); err != nil {
			p.log.Warn().Err(err).Msg("sink write failed, aborting playback")
			return
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// finish fires the completion callback exactly once for this playback. Both
// natural completion and Stop funnel here; the stop-channel swap in Play and
// Stop guarantees only one goroutine owns a given channel.
func (p *PacedPlayer) finish(text string, stop chan struct{}) {
	p.mu.Lock()
	if p.stop == stop {
		p.stop = nil
	}
	if p.current == text {
		p.current = ""
	}
	fn := p.onComplete
	p.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

// NullSink discards frames. Useful when playback is muted or no output device
// exists.
type NullSink struct{}

// WriteFrame implements Sink.
func (NullSink) WriteFrame([]byte) error { return nil }
