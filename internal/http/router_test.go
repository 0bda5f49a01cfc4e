package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-speech-translator/internal/capture"
	"live-speech-translator/internal/config"
	"live-speech-translator/internal/models"
	"live-speech-translator/internal/playback"
	"live-speech-translator/internal/provider/mock"
	"live-speech-translator/internal/session"
	"live-speech-translator/internal/tts"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Configuration{
		Session: config.SessionConfig{
			SourceLanguage: "en-US",
			TargetLanguage: "zh-CN",
			InputMode:      models.InputPushToTalk,
			PlayMode:       models.PlayAll,
		},
		Tuning: config.TuningConfig{
			OverlapRatio:     0.7,
			MinOverlapLength: 5,
			PromoteMinLength: 10,
			StabilityWindow:  time.Second,
			ConnectTimeout:   time.Second,
		},
	}
	source := capture.NewScriptedSource()
	sess := session.New(cfg, mock.New(), tts.NewMock(), playback.NewPacedPlayer(playback.NullSink{}), source, nil)
	t.Cleanup(sess.Close)
	t.Cleanup(func() { source.Close() })
	return NewRouter(sess)
}

func TestRouter_Health(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_GetSession(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != "disconnected" {
		t.Errorf("expected disconnected, got %q", snap.State)
	}
	if snap.InputMode != models.InputPushToTalk {
		t.Errorf("expected pushToTalk, got %q", snap.InputMode)
	}
}

func TestRouter_BeginAndDoubleBegin(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/session/begin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// The mock provider connects quickly; a second begin conflicts either
	// with the in-flight connect or the active session.
	req = httptest.NewRequest(http.MethodPost, "/v1/session/begin", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for double begin, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/session/end", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for end, got %d", rec.Code)
	}
}

func TestRouter_TalkAndSkip(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/v1/session/talk/start", "/v1/session/talk/stop", "/v1/session/skip"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", path, rec.Code)
		}
	}
}

func TestRouter_SetMode(t *testing.T) {
	router := testRouter(t)

	body, _ := json.Marshal(map[string]string{"mode": "continuous"})
	req := httptest.NewRequest(http.MethodPut, "/v1/session/mode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/session/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.InputMode != models.InputContinuous {
		t.Errorf("expected continuous, got %q", snap.InputMode)
	}
}

func TestRouter_SetModeRejectsInvalid(t *testing.T) {
	router := testRouter(t)

	body, _ := json.Marshal(map[string]string{"mode": "whisper"})
	req := httptest.NewRequest(http.MethodPut, "/v1/session/mode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/session/mode", bytes.NewReader([]byte("not json")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestRouter_SetPlayMode(t *testing.T) {
	router := testRouter(t)

	body, _ := json.Marshal(map[string]string{"mode": "muted"})
	req := httptest.NewRequest(http.MethodPut, "/v1/session/playmode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body, _ = json.Marshal(map[string]string{"mode": "loud"})
	req = httptest.NewRequest(http.MethodPut, "/v1/session/playmode", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid play mode, got %d", rec.Code)
	}
}
