package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-speech-translator/internal/config"
	"live-speech-translator/internal/language"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/observability/logging"
	"live-speech-translator/internal/observability/metrics"
	"live-speech-translator/internal/playback"
	"live-speech-translator/internal/tts"
)

// speechQueue serializes synthesis and playback: at most one utterance is
// audible at any time. Texts are deduplicated against the queue, the item
// being synthesized, and the item being played, so a translation updated
// several times is spoken once.
type speechQueue struct {
	synth   tts.Synthesizer
	player  playback.Player
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu           sync.Mutex
	queue        []models.SpeechItem
	queued       map[string]bool
	synthesizing string
	playing      string
	busy         bool
	ctx          context.Context
	cancel       context.CancelFunc
}

func newSpeechQueue(synth tts.Synthesizer, player playback.Player) *speechQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &speechQueue{
		synth:   synth,
		player:  player,
		log:     logging.WithComponent("speech-queue"),
		metrics: metrics.DefaultMetrics,
		queued:  map[string]bool{},
		ctx:     ctx,
		cancel:  cancel,
	}
	player.SetOnComplete(q.onPlaybackDone)
	return q
}

// Enqueue appends a speech item unless its text is empty or already present
// in the queue, in synthesis, or in playback. Returns whether the item was
// accepted.
func (q *speechQueue) Enqueue(text, languageCode string) bool {
	if text == "" {
		return false
	}
	q.mu.Lock()
	if q.queued[text] || q.synthesizing == text || q.playing == text {
		q.mu.Unlock()
		q.metrics.RecordDeduplicated()
		q.log.Debug().Str("text", text).Msg("duplicate speech item suppressed")
		return false
	}
	q.queue = append(q.queue, models.SpeechItem{Text: text, LanguageCode: languageCode})
	q.queued[text] = true
	start := !q.busy
	if start {
		q.busy = true
	}
	q.mu.Unlock()

	q.metrics.RecordEnqueued()
	if start {
		go q.advance()
	}
	return true
}

// advance pops and processes items until the queue empties or playback takes
// over. It runs while busy is held; exactly one advance goroutine exists at a
// time.
func (q *speechQueue) advance() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		item := q.queue[0]
		q.queue = q.queue[1:]
		delete(q.queued, item.Text)
		q.synthesizing = item.Text
		ctx := q.ctx
		q.mu.Unlock()

		start := time.Now()
		audio, err := q.synth.Synthesize(ctx, item.Text, item.LanguageCode)
		q.metrics.RecordSynthesis(q.synth.Name(), err, time.Since(start).Seconds())

		q.mu.Lock()
		q.synthesizing = ""
		if err != nil {
			q.mu.Unlock()
			// Synthesis errors are non-fatal; drop the item and keep
			// going. Cancellation means StopAll already cleared the
			// queue, so the next iteration exits cleanly either way.
			if !errors.Is(err, context.Canceled) {
				q.log.Warn().Err(err).Str("text", item.Text).Msg("synthesis failed, skipping item")
			}
			continue
		}
		q.playing = item.Text
		q.mu.Unlock()

		q.player.Play(audio, item.Text)
		// busy stays held until the playback completion callback.
		return
	}
}

// onPlaybackDone is the playback component's completion callback, invoked
// exactly once per Play.
func (q *speechQueue) onPlaybackDone(text string) {
	q.mu.Lock()
	if q.playing != text {
		q.mu.Unlock()
		return
	}
	q.playing = ""
	more := len(q.queue) > 0
	if !more {
		q.busy = false
	}
	q.mu.Unlock()

	q.metrics.RecordPlayed()
	if more {
		go q.advance()
	}
}

// StopAll clears the queue, cancels in-flight synthesis and halts playback.
// Used on session end and mute.
func (q *speechQueue) StopAll() {
	q.mu.Lock()
	q.queue = nil
	q.queued = map[string]bool{}
	q.cancel()
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	q.player.Stop()
}

// SkipCurrent halts only the in-flight playback and advances to the next
// queued item; the rest of the queue is preserved.
func (q *speechQueue) SkipCurrent() {
	q.mu.Lock()
	skipping := q.playing != ""
	q.mu.Unlock()
	if !skipping {
		return
	}
	q.metrics.RecordSkipped()
	q.player.Stop()
}

// Pending returns the number of queued items, excluding any item in synthesis
// or playback.
func (q *speechQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// speechPlanner decides whether and when a bound translation is spoken. It
// applies the play-eligibility mode, resolves the synthesis voice language,
// and, when enabled, defers provisional translations behind a stability
// window so rapidly mutating interim translations coalesce before speaking.
//
// All methods must be called from the session's coordination loop; the timer
// posts back into the loop via fire.
type speechPlanner struct {
	sourceLanguage string
	targetLanguage string
	playMode       models.PlayMode
	tuning         config.TuningConfig
	queue          *speechQueue
	log            zerolog.Logger

	// fire posts a stability-window expiry carrying its generation back
	// into the coordination loop.
	fire func(generation int)

	// Stability-window state, per current utterance.
	lastSource string
	spoken     string
	pending    string
	generation int
	timer      *time.Timer
}

func newSpeechPlanner(sess config.SessionConfig, tuning config.TuningConfig, queue *speechQueue, fire func(generation int)) *speechPlanner {
	return &speechPlanner{
		sourceLanguage: sess.SourceLanguage,
		targetLanguage: sess.TargetLanguage,
		playMode:       sess.PlayMode,
		tuning:         tuning,
		queue:          queue,
		log:            logging.WithComponent("speech-planner"),
		fire:           fire,
	}
}

// SetPlayMode switches the play-eligibility filter. Muting stops everything
// already queued or audible.
func (p *speechPlanner) SetPlayMode(mode models.PlayMode) {
	p.playMode = mode
	if mode == models.PlayMuted {
		p.cancelTimer()
		p.queue.StopAll()
	}
}

// PlayMode returns the active play-eligibility mode.
func (p *speechPlanner) PlayMode() models.PlayMode { return p.playMode }

// eligible applies the play-eligibility policy to the detected base language
// of an utterance's source text.
func (p *speechPlanner) eligible(detected string) bool {
	switch p.playMode {
	case models.PlayMuted:
		return false
	case models.PlaySourceOnly:
		return detected == language.Base(p.sourceLanguage)
	case models.PlayTargetOnly:
		return detected == language.Base(p.targetLanguage)
	default:
		return true
	}
}

// voiceFor resolves the synthesis language: source-language speech is voiced
// in the target language and vice versa; anything else defaults to target.
func (p *speechPlanner) voiceFor(detected string) string {
	switch detected {
	case language.Base(p.sourceLanguage):
		return p.targetLanguage
	case language.Base(p.targetLanguage):
		return p.sourceLanguage
	default:
		return p.targetLanguage
	}
}

// OnFinalBind offers a final-bound translation for speech. Any pending
// stability timer is cancelled and the content speaks immediately.
func (p *speechPlanner) OnFinalBind(entry *models.TranscriptEntry) {
	p.cancelTimer()
	if entry.Translation == "" {
		return
	}
	detected := language.Detect(entry.Text)
	if !p.eligible(detected) {
		return
	}
	voice := p.voiceFor(detected)

	if !p.tuning.StabilityEnabled {
		p.queue.Enqueue(entry.Translation, voice)
		return
	}

	p.trackUtterance(entry.Text)
	if diff := diffSuffix(p.spoken, entry.Translation); diff != "" {
		p.queue.Enqueue(diff, voice)
	}
	// The utterance is complete; a fresh accumulator serves the next one.
	p.spoken = ""
	p.lastSource = ""
	p.pending = ""
}

// OnProvisionalBind buffers an interim-bound translation behind the
// stability window. Without the window, provisional translations are never
// spoken; finalization speaks them instead.
func (p *speechPlanner) OnProvisionalBind(entry *models.TranscriptEntry) {
	if !p.tuning.StabilityEnabled || entry.Translation == "" {
		return
	}
	detected := language.Detect(entry.Text)
	if !p.eligible(detected) {
		return
	}

	p.trackUtterance(entry.Text)
	p.pending = entry.Translation
	p.restartTimer()
}

// OnStabilityFired handles a stability-window expiry. Stale generations
// (superseded by a later restart or cancel) are ignored.
func (p *speechPlanner) OnStabilityFired(generation int) {
	if generation != p.generation || p.pending == "" {
		return
	}
	detected := language.Detect(p.lastSource)
	if !p.eligible(detected) {
		return
	}
	if diff := diffSuffix(p.spoken, p.pending); diff != "" {
		p.queue.Enqueue(diff, p.voiceFor(detected))
		p.spoken = p.pending
	}
	p.pending = ""
}

// trackUtterance resets the already-spoken accumulator when sourceText
// belongs to a new utterance, detected by the loss of any prefix relation to
// the previous source text.
func (p *speechPlanner) trackUtterance(sourceText string) {
	if p.lastSource != "" && !textsRelate(p.lastSource, sourceText) {
		p.spoken = ""
		p.pending = ""
	}
	p.lastSource = sourceText
}

func (p *speechPlanner) restartTimer() {
	p.generation++
	gen := p.generation
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.tuning.StabilityWindow, func() { p.fire(gen) })
}

func (p *speechPlanner) cancelTimer() {
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Reset clears all per-session planner state.
func (p *speechPlanner) Reset() {
	p.cancelTimer()
	p.lastSource = ""
	p.spoken = ""
	p.pending = ""
}

// diffSuffix returns the part of text not yet covered by spoken, by longest
// common prefix. A text that repeats or shortens what was spoken yields "".
func diffSuffix(spoken, text string) string {
	if spoken == "" {
		return text
	}
	runes := []rune(text)
	n := commonPrefixLen(spoken, text)
	if n >= len(runes) {
		return ""
	}
	return string(runes[n:])
}
