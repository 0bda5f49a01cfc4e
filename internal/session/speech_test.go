package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-speech-translator/internal/config"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/tts"
)

// fakePlayer is a manually advanced playback component.
type fakePlayer struct {
	mu         sync.Mutex
	current    string
	played     []string
	onComplete func(string)
}

func (f *fakePlayer) Play(audio []byte, text string) {
	f.mu.Lock()
	f.current = text
	f.played = append(f.played, text)
	f.mu.Unlock()
}

func (f *fakePlayer) Stop() {
	f.complete()
}

func (f *fakePlayer) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakePlayer) SetOnComplete(fn func(string)) {
	f.mu.Lock()
	f.onComplete = fn
	f.mu.Unlock()
}

// complete finishes the current playback, firing the completion callback.
func (f *fakePlayer) complete() {
	f.mu.Lock()
	text := f.current
	f.current = ""
	fn := f.onComplete
	f.mu.Unlock()
	if text != "" && fn != nil {
		fn(text)
	}
}

func (f *fakePlayer) playedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.played))
	copy(out, f.played)
	return out
}

// blockingSynth blocks every Synthesize call until released.
type blockingSynth struct {
	release chan struct{}
}

func (b *blockingSynth) Name() string                 { return "blocking" }
func (b *blockingSynth) SupportsLanguage(string) bool { return true }

func (b *blockingSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return []byte{0}, nil
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSpeechQueue_SerialPlayback(t *testing.T) {
	player := &fakePlayer{}
	q := newSpeechQueue(tts.NewMock(), player)

	q.Enqueue("first", "fr-FR")
	waitUntil(t, func() bool { return player.Current() == "first" })
	q.Enqueue("second", "fr-FR")

	// The second item must wait for the first to finish.
	if got := player.Current(); got != "first" {
		t.Errorf("expected 'first' still playing, got %q", got)
	}
	if got := q.Pending(); got != 1 {
		t.Errorf("expected 1 pending item, got %d", got)
	}

	player.complete()
	waitUntil(t, func() bool { return player.Current() == "second" })
	player.complete()
	waitUntil(t, func() bool { return q.Pending() == 0 && player.Current() == "" })

	if got := player.playedTexts(); len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("expected [first second], got %v", got)
	}
}

func TestSpeechQueue_DuplicateWhilePlaying(t *testing.T) {
	player := &fakePlayer{}
	q := newSpeechQueue(tts.NewMock(), player)

	q.Enqueue("Bonjour", "fr-FR")
	waitUntil(t, func() bool { return player.Current() == "Bonjour" })

	if q.Enqueue("Bonjour", "fr-FR") {
		t.Error("expected duplicate of the playing text to be suppressed")
	}
	if got := q.Pending(); got != 0 {
		t.Errorf("expected queue length 0, got %d", got)
	}
}

func TestSpeechQueue_DuplicateWhileQueued(t *testing.T) {
	synth := &blockingSynth{release: make(chan struct{})}
	player := &fakePlayer{}
	q := newSpeechQueue(synth, player)

	q.Enqueue("held", "fr-FR")
	q.Enqueue("waiting", "fr-FR")
	if q.Enqueue("waiting", "fr-FR") {
		t.Error("expected duplicate of a queued text to be suppressed")
	}
	if got := q.Pending(); got != 1 {
		t.Errorf("expected exactly 1 queued item, got %d", got)
	}
	close(synth.release)
}

func TestSpeechQueue_SynthesisErrorAdvances(t *testing.T) {
	boom := errors.New("synthesis exploded")
	synth := &tts.Mock{Err: boom}
	player := &fakePlayer{}
	q := newSpeechQueue(synth, player)

	q.Enqueue("doomed", "fr-FR")
	waitUntil(t, func() bool { return q.Pending() == 0 })

	// The queue survives and accepts new work.
	synth.Err = nil
	q.Enqueue("fine", "fr-FR")
	waitUntil(t, func() bool { return player.Current() == "fine" })
}

func TestSpeechQueue_StopAll(t *testing.T) {
	synth := &blockingSynth{release: make(chan struct{})}
	player := &fakePlayer{}
	q := newSpeechQueue(synth, player)

	q.Enqueue("in flight", "fr-FR")
	q.Enqueue("queued", "fr-FR")
	q.StopAll()

	if got := q.Pending(); got != 0 {
		t.Errorf("expected queue cleared, got %d items", got)
	}

	// The cancelled synthesis must not reach the player, and the queue
	// must accept new work afterwards.
	waitUntil(t, func() bool { return q.Pending() == 0 })
	q.Enqueue("fresh start", "fr-FR")
	close(synth.release)
	waitUntil(t, func() bool { return player.Current() == "fresh start" })

	for _, text := range player.playedTexts() {
		if text == "in flight" || text == "queued" {
			t.Errorf("expected stopped item %q never played", text)
		}
	}
}

func TestSpeechQueue_SkipCurrent(t *testing.T) {
	player := &fakePlayer{}
	q := newSpeechQueue(tts.NewMock(), player)

	q.Enqueue("current", "fr-FR")
	waitUntil(t, func() bool { return player.Current() == "current" })
	q.Enqueue("next up", "fr-FR")

	q.SkipCurrent()
	waitUntil(t, func() bool { return player.Current() == "next up" })

	if got := q.Pending(); got != 0 {
		t.Errorf("expected remainder of queue preserved and drained, got %d", got)
	}
}

func TestSpeechQueue_SkipWithNothingPlaying(t *testing.T) {
	player := &fakePlayer{}
	q := newSpeechQueue(tts.NewMock(), player)

	// Must not panic or disturb an empty queue.
	q.SkipCurrent()
	if got := q.Pending(); got != 0 {
		t.Errorf("expected empty queue, got %d", got)
	}
}

func plannerConfig(playMode models.PlayMode, stability bool) (config.SessionConfig, config.TuningConfig) {
	sess := config.SessionConfig{
		SourceLanguage: "en-US",
		TargetLanguage: "zh-CN",
		PlayMode:       playMode,
	}
	tuning := testTuning()
	tuning.StabilityEnabled = stability
	tuning.StabilityWindow = 30 * time.Millisecond
	return sess, tuning
}

func newTestPlanner(playMode models.PlayMode, stability bool) (*speechPlanner, *fakePlayer) {
	player := &fakePlayer{}
	queue := newSpeechQueue(tts.NewMock(), player)
	sess, tuning := plannerConfig(playMode, stability)
	p := newSpeechPlanner(sess, tuning, queue, nil)
	// Tests drive expiry by calling OnStabilityFired directly; route the
	// timer callback to a no-op so background fires cannot interleave.
	p.fire = func(int) {}
	return p, player
}

func boundEntry(text, lang, translation string) *models.TranscriptEntry {
	e := models.NewTranscriptEntry(text, true, 0.9, lang)
	e.Translation = translation
	return e
}

func TestPlanner_FinalBindSpeaksImmediately(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, false)

	p.OnFinalBind(boundEntry("Hello there.", "en-US", "你好。"))

	waitUntil(t, func() bool { return player.Current() == "你好。" })
}

func TestPlanner_MutedSpeaksNothing(t *testing.T) {
	p, player := newTestPlanner(models.PlayMuted, false)

	p.OnFinalBind(boundEntry("Hello there.", "en-US", "你好。"))

	time.Sleep(20 * time.Millisecond)
	if got := player.Current(); got != "" {
		t.Errorf("expected silence in muted mode, got %q playing", got)
	}
}

func TestPlanner_PlayTargetOnlyFiltersSourceLanguage(t *testing.T) {
	// source="en", target="fr": an English utterance must not be spoken;
	// only utterances detected as French qualify. The classifier defaults
	// Latin script to "en", so the English entry is filtered.
	player := &fakePlayer{}
	queue := newSpeechQueue(tts.NewMock(), player)
	sess := config.SessionConfig{SourceLanguage: "en-US", TargetLanguage: "fr-FR", PlayMode: models.PlayTargetOnly}
	p := newSpeechPlanner(sess, testTuning(), queue, func(int) {})

	p.OnFinalBind(boundEntry("Hello there.", "en-US", "Bonjour."))

	time.Sleep(20 * time.Millisecond)
	if got := player.Current(); got != "" {
		t.Errorf("expected source-language utterance filtered, got %q playing", got)
	}
}

func TestPlanner_VoiceResolution(t *testing.T) {
	p, _ := newTestPlanner(models.PlayAll, false)

	// English (configured source) speaks in the target language.
	if got := p.voiceFor("en"); got != "zh-CN" {
		t.Errorf("expected zh-CN voice for source-language text, got %q", got)
	}
	// Chinese (configured target) speaks in the source language.
	if got := p.voiceFor("zh"); got != "en-US" {
		t.Errorf("expected en-US voice for target-language text, got %q", got)
	}
	// Anything else defaults to the target language.
	if got := p.voiceFor("ja"); got != "zh-CN" {
		t.Errorf("expected zh-CN voice for third-language text, got %q", got)
	}
}

func TestPlanner_StabilityWindowDefersProvisional(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, true)

	interim := models.NewTranscriptEntry("Hello there", false, 0.5, "en-US")
	interim.Translation = "你好"
	p.OnProvisionalBind(interim)

	// Nothing speaks before the window fires.
	if got := player.Current(); got != "" {
		t.Errorf("expected deferred speech, got %q playing", got)
	}

	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "你好" })
}

func TestPlanner_StaleGenerationIgnored(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, true)

	interim := models.NewTranscriptEntry("Hello there", false, 0.5, "en-US")
	interim.Translation = "你好"
	p.OnProvisionalBind(interim)
	stale := p.generation

	interim.Translation = "你好，世界"
	p.OnProvisionalBind(interim)

	p.OnStabilityFired(stale)
	time.Sleep(20 * time.Millisecond)
	if got := player.Current(); got != "" {
		t.Errorf("expected stale expiry ignored, got %q playing", got)
	}

	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "你好，世界" })
}

func TestPlanner_StabilitySpeaksOnlyNewSuffix(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, true)

	interim := models.NewTranscriptEntry("Hello there", false, 0.5, "en-US")
	interim.Translation = "你好"
	p.OnProvisionalBind(interim)
	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "你好" })
	player.complete()

	interim.Text = "Hello there my friend"
	interim.Translation = "你好我的朋友"
	p.OnProvisionalBind(interim)
	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "我的朋友" })
}

func TestPlanner_FinalBindSpeaksSuffixWithoutWaiting(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, true)

	interim := models.NewTranscriptEntry("Hello there", false, 0.5, "en-US")
	interim.Translation = "你好"
	p.OnProvisionalBind(interim)
	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "你好" })
	player.complete()

	// Finalization speaks the remainder immediately, no window wait.
	p.OnFinalBind(boundEntry("Hello there.", "en-US", "你好。"))
	waitUntil(t, func() bool { return player.Current() == "。" })

	if p.spoken != "" || p.lastSource != "" {
		t.Error("expected accumulator reset after finalization")
	}
}

func TestPlanner_NewUtteranceResetsAccumulator(t *testing.T) {
	p, player := newTestPlanner(models.PlayAll, true)

	interim := models.NewTranscriptEntry("Hello there", false, 0.5, "en-US")
	interim.Translation = "你好"
	p.OnProvisionalBind(interim)
	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "你好" })
	player.complete()

	// A source text with no prefix relation starts a new utterance; the
	// whole translation is new content.
	next := models.NewTranscriptEntry("Good morning", false, 0.5, "en-US")
	next.Translation = "早上好"
	p.OnProvisionalBind(next)
	p.OnStabilityFired(p.generation)
	waitUntil(t, func() bool { return player.Current() == "早上好" })
}

func TestDiffSuffix(t *testing.T) {
	tests := []struct {
		spoken, text, want string
	}{
		{"", "你好", "你好"},
		{"你好", "你好世界", "世界"},
		{"你好", "你好", ""},
		{"你好世界", "你好", ""},
	}
	for _, tt := range tests {
		if got := diffSuffix(tt.spoken, tt.text); got != tt.want {
			t.Errorf("diffSuffix(%q, %q): expected %q, got %q", tt.spoken, tt.text, tt.want, got)
		}
	}
}
