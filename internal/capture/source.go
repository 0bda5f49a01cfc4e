// Package capture abstracts the microphone. The orchestrator only needs a
// stream of PCM frames and a permission hook; the real device binding lives
// behind the Source interface.
package capture

import (
	"context"
	"sync"
	"time"
)

// Source produces raw PCM audio frames from an input device.
type Source interface {
	// Frames returns the channel of captured audio frames. The channel is
	// closed when the source is closed.
	Frames() <-chan []byte

	// RequestPermission asks the platform for input access. It returns nil
	// when capture may proceed.
	RequestPermission(ctx context.Context) error

	// Close releases the device and closes the frame channel.
	Close() error
}

// SilenceSource emits frames of silence at a fixed cadence. It stands in for
// a microphone in tests and credential-free runs.
type SilenceSource struct {
	frameSize time.Duration
	frames    chan []byte

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

// NewSilenceSource creates a source emitting 20ms frames of 16kHz 16-bit mono
// silence.
func NewSilenceSource() *SilenceSource {
	s := &SilenceSource{
		frameSize: 20 * time.Millisecond,
		frames:    make(chan []byte, 16),
		stop:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SilenceSource) run() {
	ticker := time.NewTicker(s.frameSize)
	defer ticker.Stop()
	defer close(s.frames)
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// 16kHz * 2 bytes * 0.02s.
			frame := make([]byte, 640)
			select {
			case s.frames <- frame:
			default:
				// Drop when the consumer is behind; silence carries
				// no information worth buffering.
			}
		}
	}
}

// Frames implements Source.
func (s *SilenceSource) Frames() <-chan []byte { return s.frames }

// RequestPermission implements Source. Silence needs no permission.
func (s *SilenceSource) RequestPermission(ctx context.Context) error { return ctx.Err() }

// Close implements Source.
func (s *SilenceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stop)
	return nil
}

// ScriptedSource yields exactly the frames pushed into it. Tests use it to
// drive recognizers deterministically.
type ScriptedSource struct {
	frames chan []byte

	mu     sync.Mutex
	closed bool
}

// NewScriptedSource creates a source whose Frames channel yields each given
// frame once, plus anything pushed later.
func NewScriptedSource(frames ...[]byte) *ScriptedSource {
	ch := make(chan []byte, 64+len(frames))
	for _, f := range frames {
		ch <- f
	}
	return &ScriptedSource{frames: ch}
}

// Push appends one frame. A no-op after Close.
func (s *ScriptedSource) Push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frames <- frame
}

// Frames implements Source.
func (s *ScriptedSource) Frames() <-chan []byte { return s.frames }

// RequestPermission implements Source.
func (s *ScriptedSource) RequestPermission(ctx context.Context) error { return ctx.Err() }

// Close implements Source.
func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frames)
	return nil
}
