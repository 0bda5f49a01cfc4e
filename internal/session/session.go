// Package session implements the live transcript/translation/speech
// orchestrator: connection lifecycle, transcript reconciliation, translation
// matching, the speech queue, and input-mode-gated audio sending.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"live-speech-translator/internal/capture"
	"live-speech-translator/internal/config"
	kafkaevents "live-speech-translator/internal/events"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/observability/metrics"
	"live-speech-translator/internal/playback"
	"live-speech-translator/internal/provider"
	"live-speech-translator/internal/tts"
)

const publishTimeout = 5 * time.Second

// Session coordinates one live translation conversation. All transcript
// state is owned by a single loop goroutine; concurrent producers post typed
// events instead of mutating state directly, so one malformed event can never
// corrupt or stall the pipeline.
type Session struct {
	cfg        *config.Configuration
	rec        provider.Recognizer
	source     capture.Source
	queue      *speechQueue
	planner    *speechPlanner
	gate       *gate
	reconciler *reconciler
	matcher    *matcher
	machine    *machine
	publisher  *kafkaevents.Publisher
	log        zerolog.Logger
	metrics    *metrics.Metrics

	eventCh chan event
	done    chan struct{}
	once    sync.Once

	// gen fences asynchronous work against the session it was started for.
	// Begin and End each bump it; connect and teardown goroutines stamp
	// their events with the value they were launched under, and the loop
	// drops events from superseded generations.
	mu  sync.Mutex
	id  string
	gen uint64
}

// New wires a session from its injected collaborators and starts the
// coordination loop.
func New(cfg *config.Configuration, rec provider.Recognizer, synth tts.Synthesizer, player playback.Player, source capture.Source, publisher *kafkaevents.Publisher) *Session {
	s := &Session{
		cfg:       cfg,
		rec:       rec,
		source:    source,
		machine:   &machine{},
		matcher:   newMatcher(),
		publisher: publisher,
		log:       logging.WithComponent("session"),
		metrics:   metrics.DefaultMetrics,
		eventCh:   make(chan event, 256),
		done:      make(chan struct{}),
	}
	s.reconciler = newReconciler(cfg.Tuning, rec.Capabilities())
	s.queue = newSpeechQueue(synth, player)
	s.planner = newSpeechPlanner(cfg.Session, cfg.Tuning, s.queue, func(generation int) {
		s.post(stabilityEvent{generation: generation})
	})
	s.gate = newGate(source, cfg.Session.InputMode)
	go s.loop()
	return s
}

// Begin starts a connect sequence. The transition to connecting is observable
// immediately; the connect itself runs in the background. A Begin while a
// connect is in flight is rejected with ErrAlreadyProcessing.
func (s *Session) Begin() error {
	if err := s.machine.BeginConnect(); err != nil {
		return err
	}
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.id = uuid.NewString()
	id := s.id
	s.mu.Unlock()

	s.metrics.RecordConnect()
	s.log.Info().Str("sessionID", id).Msg("session connecting")
	// A previous session may have ended in the error state without a clean
	// teardown; make sure no leftover transcript state survives.
	s.post(resetEvent{gen: gen})
	go s.connect(gen)
	return nil
}

func (s *Session) connect(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Tuning.ConnectTimeout)
	defer cancel()
	start := time.Now()

	err := s.source.RequestPermission(ctx)
	if err == nil {
		err = s.rec.Connect(ctx, s.cfg.Providers.GatewayURL, s.cfg.Session.SourceLanguage, s.cfg.Session.TargetLanguage, s)
	}

	reason := "connect"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	s.metrics.RecordConnectResult(err, reason, time.Since(start).Seconds())

	if err != nil {
		s.post(connectFailedEvent{gen: gen, err: err})
		return
	}
	s.post(connectedEvent{gen: gen})
}

// End moves the session to disconnected immediately and schedules the
// asynchronous teardown. Safe to call in any state.
func (s *Session) End() error {
	s.machine.Disconnect()
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.metrics.RecordSessionEnded()
	s.log.Info().Msg("session ending")
	// Gate and queue shutdown is cheap and must not race a successor's
	// activation, so it happens here; only the provider disconnect, which
	// may block on the network, runs in the background.
	s.gate.Deactivate()
	s.queue.StopAll()
	go s.teardown(gen)
	return nil
}

func (s *Session) teardown(gen uint64) {
	if err := s.rec.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("provider disconnect failed")
	}
	// The reset is stamped with the teardown's own generation. When a fresh
	// Begin has already superseded this session, the loop drops it instead
	// of wiping the successor's transcript.
	s.post(resetEvent{gen: gen})
}

// Close stops the coordination loop. The session is unusable afterwards.
func (s *Session) Close() {
	s.once.Do(func() {
		s.machine.Disconnect()
		s.gate.Deactivate()
		s.queue.StopAll()
		s.teardown(s.generation())
		close(s.done)
	})
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// StartTalking opens the audio gate (push-to-talk start gesture).
func (s *Session) StartTalking() { s.gate.StartTalking() }

// StopTalking closes the audio gate (push-to-talk stop gesture).
func (s *Session) StopTalking() { s.gate.StopTalking() }

// SetInputMode switches between push-to-talk and continuous sending.
func (s *Session) SetInputMode(mode models.InputMode) { s.gate.SetMode(mode) }

// SetPlayMode switches the play-eligibility filter.
func (s *Session) SetPlayMode(mode models.PlayMode) {
	s.post(playModeEvent{mode: mode})
}

// Skip stops the playing utterance and advances to the next queued one.
func (s *Session) Skip() { s.queue.SkipCurrent() }

// State returns the lifecycle state and, when in error, its message.
func (s *Session) State() (State, string) { return s.machine.Current() }

// Snapshot returns a consistent copy of the session state, read on the
// coordination loop.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.eventCh <- snapshotEvent{reply: reply}:
	case <-s.done:
		return Snapshot{}, errors.New("session closed")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, errors.New("session closed")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// post delivers an event to the loop, giving up if the session is closed.
func (s *Session) post(ev event) {
	select {
	case s.eventCh <- ev:
	case <-s.done:
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.eventCh:
			s.handle(ev)
		}
	}
}

// handle processes one event. A panic in a handler is confined to that event;
// processing continues with the next one.
func (s *Session) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Type("event", ev).Msg("event handler panicked")
		}
	}()

	switch e := ev.(type) {
	case transcriptEvent:
		s.handleTranscript(e)
	case translationEvent:
		s.handleTranslation(e.sourceText, e.translatedText)
	case segmentsEvent:
		s.handleSegments(e)
	case correctionEvent:
		s.reconciler.OnCorrection(e.oldText, e.newText)
	case providerErrorEvent:
		s.handleProviderError(e.msg)
	case connectedEvent:
		s.handleConnected(e.gen)
	case connectFailedEvent:
		s.handleConnectFailed(e.gen, e.err)
	case stabilityEvent:
		s.planner.OnStabilityFired(e.generation)
	case playModeEvent:
		s.planner.SetPlayMode(e.mode)
	case resetEvent:
		if e.gen == s.generation() {
			s.reconciler.Reset()
			s.planner.Reset()
		}
		if e.done != nil {
			close(e.done)
		}
	case snapshotEvent:
		if e.reply != nil {
			e.reply <- s.snapshot()
		}
	default:
		s.log.Warn().Type("event", ev).Msg("unknown event dropped")
	}
}

func (s *Session) handleConnected(gen uint64) {
	if gen != s.generation() {
		// The connect outlived its session. When a successor is already
		// connecting or active it owns the provider; otherwise the
		// connection is orphaned and gets dropped here.
		if st, _ := s.machine.Current(); st == StateDisconnected || st == StateError {
			if derr := s.rec.Disconnect(); derr != nil {
				s.log.Warn().Err(derr).Msg("provider disconnect failed")
			}
		}
		return
	}
	if err := s.machine.Activate(); err != nil {
		// Close arrived while the connect was in flight; drop the
		// connection instead of resurrecting the session.
		if derr := s.rec.Disconnect(); derr != nil {
			s.log.Warn().Err(derr).Msg("provider disconnect failed")
		}
		return
	}
	s.gate.Activate(s.rec)
	s.log.Info().Str("provider", s.rec.Name()).Msg("session active")
}

func (s *Session) handleConnectFailed(gen uint64, err error) {
	if gen != s.generation() {
		return
	}
	if st, _ := s.machine.Current(); st != StateConnecting {
		return
	}
	s.machine.Fail(err.Error())
	s.log.Error().Err(err).Msg("session connect failed")
	if derr := s.rec.Disconnect(); derr != nil {
		s.log.Warn().Err(derr).Msg("provider disconnect failed")
	}
}

func (s *Session) handleProviderError(msg string) {
	st, _ := s.machine.Current()
	if st != StateConnecting && st != StateActive {
		return
	}
	s.machine.Fail(msg)
	s.metrics.SessionsFailed.WithLabelValues("provider").Inc()
	s.log.Error().Str("providerError", msg).Msg("session failed")
	s.gate.Deactivate()
	s.queue.StopAll()
	if err := s.rec.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("provider disconnect failed")
	}
}

func (s *Session) handleTranscript(e transcriptEvent) {
	if st, _ := s.machine.Current(); st != StateActive {
		return
	}
	out := s.reconciler.OnResult(e.text, e.isFinal, e.confidence, e.languageTag)

	if out.PromotedFinal != nil {
		s.exportFinal(out.PromotedFinal)
		if out.PromotedFinal.Translation != "" {
			s.planner.OnFinalBind(out.PromotedFinal)
			s.exportTranslation(out.PromotedFinal)
		}
	}
	if out.AppendedFinal != nil {
		s.exportFinal(out.AppendedFinal)
		if out.AppendedFinal.Translation != "" {
			// Translation inherited from the cleared interim; offer it
			// to the speech queue right away.
			s.planner.OnFinalBind(out.AppendedFinal)
			s.exportTranslation(out.AppendedFinal)
		}
	}
	if out.InterimChanged {
		s.exportPartial(s.reconciler.Interim())
	}
}

func (s *Session) handleTranslation(sourceText, translatedText string) {
	if st, _ := s.machine.Current(); st != StateActive {
		return
	}
	res := s.matcher.Match(s.reconciler.History(), s.reconciler.Interim(), sourceText, translatedText)
	switch res.Kind {
	case bindFinal:
		s.planner.OnFinalBind(res.Entry)
		s.exportTranslation(res.Entry)
	case bindProvisional:
		s.planner.OnProvisionalBind(res.Entry)
	}
}

// handleSegments folds a segmented-translation result into a plain
// translation for the whole source text.
func (s *Session) handleSegments(e segmentsEvent) {
	var b strings.Builder
	for _, seg := range e.segments {
		b.WriteString(seg.Translation)
	}
	s.handleTranslation(e.sourceText, b.String())
}

func (s *Session) snapshot() Snapshot {
	st, errMsg := s.machine.Current()
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()

	history := s.reconciler.History()
	snap := Snapshot{
		SessionID:  id,
		State:      st.String(),
		Error:      errMsg,
		InputMode:  s.gate.Mode(),
		PlayMode:   s.planner.PlayMode(),
		Sending:    s.gate.Sending(),
		History:    make([]models.TranscriptEntry, 0, len(history)),
		QueueDepth: s.queue.Pending(),
	}
	for _, entry := range history {
		snap.History = append(snap.History, *entry)
	}
	if interim := s.reconciler.Interim(); interim != nil {
		copied := *interim
		snap.Interim = &copied
	}
	return snap
}

// provider.Events implementation. Called from provider goroutines; each
// callback is posted into the loop.

// OnTranscript implements provider.Events.
func (s *Session) OnTranscript(text string, isFinal bool, confidence float64, languageTag string) {
	s.post(transcriptEvent{text: text, isFinal: isFinal, confidence: confidence, languageTag: languageTag})
}

// OnTranslation implements provider.Events.
func (s *Session) OnTranslation(sourceText, translatedText string) {
	s.post(translationEvent{sourceText: sourceText, translatedText: translatedText})
}

// OnSegments implements provider.Events.
func (s *Session) OnSegments(sourceText string, segments []provider.Segment) {
	s.post(segmentsEvent{sourceText: sourceText, segments: segments})
}

// OnCorrection implements provider.Events.
func (s *Session) OnCorrection(oldText, newText string) {
	s.post(correctionEvent{oldText: oldText, newText: newText})
}

// OnError implements provider.Events.
func (s *Session) OnError(msg string) {
	s.post(providerErrorEvent{msg: msg})
}

// Kafka export. Publishes run off the loop; export failures are logged by the
// publisher and never affect session state.

func (s *Session) exportPartial(entry *models.TranscriptEntry) {
	if s.publisher == nil || entry == nil {
		return
	}
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	payload := models.TranscriptPartialEvent{
		EventType:   "transcript.partial",
		SessionID:   id,
		Timestamp:   time.Now().UnixMilli(),
		Text:        entry.Text,
		LanguageTag: entry.LanguageTag,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishPartial(ctx, id, payload); err != nil {
			s.log.Warn().Err(err).Msg("partial transcript export failed")
		}
	}()
}

func (s *Session) exportFinal(entry *models.TranscriptEntry) {
	if s.publisher == nil || entry == nil {
		return
	}
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	payload := models.TranscriptFinalEvent{
		EventType:   "transcript.final",
		SessionID:   id,
		Timestamp:   time.Now().UnixMilli(),
		EntryID:     entry.ID,
		Text:        entry.Text,
		Confidence:  entry.Confidence,
		LanguageTag: entry.LanguageTag,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishFinal(ctx, id, payload); err != nil {
			s.log.Warn().Err(err).Msg("final transcript export failed")
		}
	}()
}

func (s *Session) exportTranslation(entry *models.TranscriptEntry) {
	if s.publisher == nil || entry == nil {
		return
	}
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	payload := models.TranslationBoundEvent{
		EventType:   "translation.bound",
		SessionID:   id,
		Timestamp:   time.Now().UnixMilli(),
		EntryID:     entry.ID,
		SourceText:  entry.Text,
		Translation: entry.Translation,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishTranslation(ctx, id, payload); err != nil {
			s.log.Warn().Err(err).Msg("translation export failed")
		}
	}()
}
