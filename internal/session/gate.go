package session

import (
	"sync"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/capture"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/observability/metrics"
	"live-speech-translator/internal/provider"
)

// gate controls whether captured audio frames reach the recognition provider.
// In push-to-talk mode frames flow only between explicit start/stop signals;
// in continuous mode they flow for the whole active session and the provider
// relies on its own voice-activity detection.
type gate struct {
	source  capture.Source
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	rec     provider.Recognizer
	mode    models.InputMode
	sending bool
	stop    chan struct{}
}

func newGate(source capture.Source, mode models.InputMode) *gate {
	return &gate{
		source:  source,
		mode:    mode,
		log:     logging.WithComponent("input-gate"),
		metrics: metrics.DefaultMetrics,
	}
}

// Activate starts the pump for an active session. Continuous mode begins
// sending immediately; push-to-talk waits for StartTalking.
func (g *gate) Activate(rec provider.Recognizer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		return
	}
	g.rec = rec
	g.sending = g.mode == models.InputContinuous
	g.stop = make(chan struct{})
	go g.pump(g.stop)
}

// Deactivate stops the pump on session end.
func (g *gate) Deactivate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop == nil {
		return
	}
	close(g.stop)
	g.stop = nil
	g.rec = nil
	g.sending = false
}

func (g *gate) pump(stop chan struct{}) {
	frames := g.source.Frames()
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			g.mu.Lock()
			rec := g.rec
			sending := g.sending
			g.mu.Unlock()
			if !sending || rec == nil {
				continue
			}
			if err := rec.SendAudio(frame); err != nil {
				g.log.Warn().Err(err).Msg("audio frame dropped")
				continue
			}
			g.metrics.RecordAudioSent(len(frame))
		}
	}
}

// StartTalking opens the gate in push-to-talk mode. Talk gestures carry no
// meaning in continuous mode, where the gate is already open, and are
// ignored there.
func (g *gate) StartTalking() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop == nil || g.mode != models.InputPushToTalk {
		return
	}
	g.sending = true
}

// StopTalking closes the gate and hints end of utterance to the provider.
// A no-op in continuous mode, where sending stays on until the session ends.
func (g *gate) StopTalking() {
	g.mu.Lock()
	if g.stop == nil || g.mode != models.InputPushToTalk {
		g.mu.Unlock()
		return
	}
	g.sending = false
	rec := g.rec
	g.mu.Unlock()

	if rec != nil {
		if err := rec.SendEndOfUtterance(); err != nil {
			g.log.Warn().Err(err).Msg("end-of-utterance hint failed")
		}
	}
}

// SetMode switches the input mode. While active, continuous mode resumes
// sending immediately and push-to-talk stops sending and waits for the next
// explicit start. No end-of-utterance hint is sent on a mode switch.
func (g *gate) SetMode(mode models.InputMode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = mode
	if g.stop == nil {
		return
	}
	g.sending = mode == models.InputContinuous
}

// Mode returns the active input mode.
func (g *gate) Mode() models.InputMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Sending reports whether frames currently flow to the provider.
func (g *gate) Sending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sending
}
