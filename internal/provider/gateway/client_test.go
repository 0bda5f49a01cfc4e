package gateway

import (
	"testing"

	"live-speech-translator/internal/provider"
)

type recordingEvents struct {
	transcripts  []string
	finals       []bool
	languages    []string
	translations [][2]string
	segments     []provider.Segment
	corrections  [][2]string
	errors       []string
}

func (r *recordingEvents) OnTranscript(text string, isFinal bool, confidence float64, languageTag string) {
	r.transcripts = append(r.transcripts, text)
	r.finals = append(r.finals, isFinal)
	r.languages = append(r.languages, languageTag)
}
func (r *recordingEvents) OnTranslation(sourceText, translatedText string) {
	r.translations = append(r.translations, [2]string{sourceText, translatedText})
}
func (r *recordingEvents) OnSegments(sourceText string, segments []provider.Segment) {
	r.segments = append(r.segments, segments...)
}
func (r *recordingEvents) OnCorrection(oldText, newText string) {
	r.corrections = append(r.corrections, [2]string{oldText, newText})
}
func (r *recordingEvents) OnError(msg string) {
	r.errors = append(r.errors, msg)
}

func newTestClient(cb provider.Events) *Client {
	c := New("test-key")
	c.cb = cb
	return c
}

func TestProcessMessage_Transcript(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"transcript","text":"hello there","is_final":true,"confidence":0.92,"language":"en-US"}`))

	if len(rec.transcripts) != 1 || rec.transcripts[0] != "hello there" {
		t.Fatalf("expected one transcript 'hello there', got %v", rec.transcripts)
	}
	if !rec.finals[0] {
		t.Error("expected final transcript")
	}
	if rec.languages[0] != "en-US" {
		t.Errorf("expected language en-US, got %s", rec.languages[0])
	}
}

func TestProcessMessage_EmptyTranscriptIgnored(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"transcript","text":""}`))

	if len(rec.transcripts) != 0 {
		t.Errorf("expected empty transcript to be ignored, got %v", rec.transcripts)
	}
}

func TestProcessMessage_Translation(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"translation","source_text":"hello","translation":"你好"}`))

	if len(rec.translations) != 1 {
		t.Fatalf("expected one translation, got %d", len(rec.translations))
	}
	if rec.translations[0] != [2]string{"hello", "你好"} {
		t.Errorf("unexpected translation pair: %v", rec.translations[0])
	}
}

func TestProcessMessage_Segments(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"segments","source_text":"good morning everyone","segments":[{"text":"good morning","translation":"早上好"},{"text":"everyone","translation":"大家"}]}`))

	if len(rec.segments) != 2 {
		t.Fatalf("expected two segments, got %d", len(rec.segments))
	}
	if rec.segments[0].Translation != "早上好" {
		t.Errorf("expected first segment translation 早上好, got %s", rec.segments[0].Translation)
	}
}

func TestProcessMessage_Correction(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"correction","old_text":"I scream","new_text":"ice cream"}`))

	if len(rec.corrections) != 1 || rec.corrections[0] != [2]string{"I scream", "ice cream"} {
		t.Fatalf("unexpected corrections: %v", rec.corrections)
	}
}

func TestProcessMessage_ErrorAndGarbage(t *testing.T) {
	rec := &recordingEvents{}
	c := newTestClient(rec)

	c.processMessage([]byte(`{"type":"error","error":"quota exceeded"}`))
	c.processMessage([]byte(`not json at all`))
	c.processMessage([]byte(`{"type":"unknown-kind"}`))

	if len(rec.errors) != 1 || rec.errors[0] != "quota exceeded" {
		t.Fatalf("expected one error 'quota exceeded', got %v", rec.errors)
	}
}

func TestStatus_Lifecycle(t *testing.T) {
	c := New("key")

	if s := c.Status(); s.State != provider.StateDisconnected {
		t.Errorf("expected disconnected, got %v", s.State)
	}

	c.setError("boom")
	if s := c.Status(); s.State != provider.StateError || s.Err != "boom" {
		t.Errorf("expected error state with message, got %+v", s)
	}
}

func TestCapabilities(t *testing.T) {
	caps := New("key").Capabilities()
	if caps.ReliableFinals {
		t.Error("gateway should not claim reliable finals")
	}
	if !caps.InterimTranslationsAuthoritative {
		t.Error("gateway interim translations should be authoritative")
	}
	if !caps.Translates {
		t.Error("gateway should translate")
	}
}
