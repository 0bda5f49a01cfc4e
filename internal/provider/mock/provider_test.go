package mock

import (
	"context"
	"sync"
	"testing"
	"time"

	"live-speech-translator/internal/provider"
)

// recordingEvents collects provider callbacks for inspection.
type recordingEvents struct {
	mu           sync.Mutex
	transcripts  []string
	finals       []string
	translations map[string]string
	corrections  int
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{translations: map[string]string{}}
}

func (r *recordingEvents) OnTranscript(text string, isFinal bool, confidence float64, languageTag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isFinal {
		r.finals = append(r.finals, text)
		return
	}
	r.transcripts = append(r.transcripts, text)
}

func (r *recordingEvents) OnTranslation(sourceText, translatedText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translations[sourceText] = translatedText
}

func (r *recordingEvents) OnSegments(string, []provider.Segment) {}

func (r *recordingEvents) OnCorrection(oldText, newText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrections++
}

func (r *recordingEvents) OnError(string) {}

func (r *recordingEvents) finalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finals)
}

func waitFor(t *testing.T, cond func() bool) {
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

func connected(t *testing.T) (*Provider, *recordingEvents) {
	t.Helper()
	p := New()
	p.ResultDelay = 0
	events := newRecordingEvents()
	if err := p.Connect(context.Background(), "", "en-US", "zh-CN", events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p, events
}

func TestProvider_ScriptedUtterance(t *testing.T) {
	p, events := connected(t)

	// Two partials, then one frame triggering the final and translation.
	for i := 0; i < 3; i++ {
		if err := p.SendAudio(make([]byte, 640)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	waitFor(t, func() bool { return events.finalCount() == 1 })

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.transcripts) != 2 {
		t.Errorf("expected 2 partials, got %v", events.transcripts)
	}
	if events.finals[0] != "Hello there." {
		t.Errorf("expected final 'Hello there.', got %q", events.finals[0])
	}
	if got := events.translations["Hello there."]; got != "你好。" {
		t.Errorf("expected translation delivered, got %q", got)
	}
}

func TestProvider_EndOfUtteranceForcesFinal(t *testing.T) {
	p, events := connected(t)

	if err := p.SendAudio(make([]byte, 640)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SendEndOfUtterance(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool { return events.finalCount() == 1 })
}

func TestProvider_CorrectionEmitted(t *testing.T) {
	p, events := connected(t)

	p.Correct("Hello there.", "Hello, there.")

	waitFor(t, func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return events.corrections == 1
	})
}

func TestProvider_SendAudioRequiresConnection(t *testing.T) {
	p := New()

	if err := p.SendAudio(make([]byte, 640)); err == nil {
		t.Error("expected error when not connected")
	}

	events := newRecordingEvents()
	if err := p.Connect(context.Background(), "", "en-US", "zh-CN", events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Disconnect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SendAudio(make([]byte, 640)); err == nil {
		t.Error("expected error after disconnect")
	}
}

func TestProvider_ConnectHonorsContext(t *testing.T) {
	p := New()
	p.ConnectDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Connect(ctx, "", "en-US", "zh-CN", newRecordingEvents()); err == nil {
		t.Error("expected context deadline error")
	}
}
