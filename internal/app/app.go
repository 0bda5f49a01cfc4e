// Package app wires the configured providers into a session orchestrator.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/capture"
	"live-speech-translator/internal/config"
	"live-speech-translator/internal/events"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/playback"
	"live-speech-translator/internal/provider"
	"live-speech-translator/internal/provider/gateway"
	"live-speech-translator/internal/provider/google"
	"live-speech-translator/internal/provider/mock"
	"live-speech-translator/internal/session"
	"live-speech-translator/internal/tts"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Session     *session.Session

	rec    provider.Recognizer
	source capture.Source
}

// New constructs the application: it selects the recognition and synthesis
// providers named by the configuration and assembles the session around them.
// Exactly one recognizer and one synthesizer are active; switching providers
// means a process restart, never a live swap.
func New(cfg *config.Configuration, publisher *events.Publisher) (*Application, error) {
	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	rec, err := buildRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	synth := buildSynthesizer(cfg)
	player := playback.NewPacedPlayer(playback.NullSink{})
	a.rec = rec
	a.source = capture.NewSilenceSource()

	a.Session = session.New(cfg, rec, synth, player, a.source, publisher)

	a.Logger.Info().
		Str("recognizer", rec.Name()).
		Str("synthesizer", synth.Name()).
		Str("sourceLanguage", cfg.Session.SourceLanguage).
		Str("targetLanguage", cfg.Session.TargetLanguage).
		Msg("application created")
	return a, nil
}

func buildRecognizer(cfg *config.Configuration) (provider.Recognizer, error) {
	switch cfg.Providers.Recognizer {
	case "gateway":
		return gateway.New(cfg.Providers.GatewayAPIKey), nil
	case "google":
		return google.New(), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown recognizer provider %q", cfg.Providers.Recognizer)
	}
}

// buildSynthesizer assembles the synthesis fallback chain. The explicitly
// selected provider goes first; providers with credentials follow; the mock
// closes the chain so every language has some voice in credential-free runs.
func buildSynthesizer(cfg *config.Configuration) tts.Synthesizer {
	var chain []tts.Synthesizer
	add := func(s tts.Synthesizer) {
		for _, existing := range chain {
			if existing.Name() == s.Name() {
				return
			}
		}
		chain = append(chain, s)
	}

	switch cfg.Providers.Synthesizer {
	case "deepgram":
		add(tts.NewDeepgram(cfg.Providers.DeepgramAPIKey))
	case "elevenlabs":
		add(tts.NewElevenLabs(cfg.Providers.ElevenLabsAPIKey, cfg.Providers.ElevenLabsVoiceID))
	case "mock":
		add(tts.NewMock())
	}
	if cfg.Providers.DeepgramAPIKey != "" {
		add(tts.NewDeepgram(cfg.Providers.DeepgramAPIKey))
	}
	if cfg.Providers.ElevenLabsAPIKey != "" && cfg.Providers.ElevenLabsVoiceID != "" {
		add(tts.NewElevenLabs(cfg.Providers.ElevenLabsAPIKey, cfg.Providers.ElevenLabsVoiceID))
	}
	add(tts.NewMock())

	if len(chain) == 1 {
		return chain[0]
	}
	return tts.NewFallback(chain...)
}

// Readiness reports whether the orchestrator can serve a session. A session
// in the error state or a recognition provider stuck in error makes the
// process not ready.
func (a *Application) Readiness() error {
	if st, msg := a.Session.State(); st == session.StateError {
		return fmt.Errorf("session failed: %s", msg)
	}
	if status := a.rec.Status(); status.State == provider.StateError {
		return fmt.Errorf("recognition provider failed: %s", status.Err)
	}
	return nil
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().Time("startupTime", a.StartupTime).Msg("service starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("service shutting down")
	if a.Session != nil {
		a.Session.Close()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("capture source close failed")
		}
	}
}
