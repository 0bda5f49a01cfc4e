// Package http exposes the session control API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"live-speech-translator/internal/models"
	"live-speech-translator/internal/session"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(sess *session.Session) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handler{sess: sess}

	// API routes
	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Post("/begin", h.begin)
		r.Post("/end", h.end)
		r.Post("/talk/start", h.talkStart)
		r.Post("/talk/stop", h.talkStop)
		r.Post("/skip", h.skip)
		r.Put("/mode", h.setMode)
		r.Put("/playmode", h.setPlayMode)
	})

	return r
}

type handler struct {
	sess *session.Session
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) begin(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Begin(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrAlreadyProcessing) || errors.Is(err, session.ErrAlreadyActive) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	state, _ := h.sess.State()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": state.String()})
}

func (h *handler) end(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.End(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	state, _ := h.sess.State()
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
}

func (h *handler) talkStart(w http.ResponseWriter, r *http.Request) {
	h.sess.StartTalking()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) talkStop(w http.ResponseWriter, r *http.Request) {
	h.sess.StopTalking()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) skip(w http.ResponseWriter, r *http.Request) {
	h.sess.Skip()
	w.WriteHeader(http.StatusNoContent)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *handler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Mode != string(models.InputPushToTalk) && req.Mode != string(models.InputContinuous) {
		writeError(w, http.StatusBadRequest, "mode must be pushToTalk or continuous")
		return
	}
	h.sess.SetInputMode(models.ParseInputMode(req.Mode))
	writeJSON(w, http.StatusOK, map[string]string{"inputMode": req.Mode})
}

func (h *handler) setPlayMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch models.PlayMode(req.Mode) {
	case models.PlayAll, models.PlaySourceOnly, models.PlayTargetOnly, models.PlayMuted:
	default:
		writeError(w, http.StatusBadRequest, "mode must be all, source, target or muted")
		return
	}
	h.sess.SetPlayMode(models.ParsePlayMode(req.Mode))
	writeJSON(w, http.StatusOK, map[string]string{"playMode": req.Mode})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
