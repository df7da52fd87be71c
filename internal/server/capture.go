package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/pose"
)

// CaptureController is the part of the application the capture endpoints
// drive: the recorder session plus sampling from the live camera.
type CaptureController interface {
	Recorder() *pose.Recorder
	CaptureSample() (int, error)
}

// CaptureHandler exposes the pose recording workflow over HTTP.
type CaptureHandler struct {
	ctrl CaptureController
}

// NewCaptureHandler creates a CaptureHandler driving the given controller.
func NewCaptureHandler(ctrl CaptureController) *CaptureHandler {
	return &CaptureHandler{ctrl: ctrl}
}

// ServeHTTP routes the capture workflow endpoints.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctrl.Recorder() == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Recording unavailable")
		return
	}

	switch r.URL.Path {
	case "/api/capture/begin":
		h.begin(w, r)
	case "/api/capture/sample":
		h.sample(w, r)
	case "/api/capture/finish":
		h.finish(w, r)
	case "/api/capture/abort":
		h.abort(w, r)
	case "/api/capture/status":
		h.status(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "Not found")
	}
}

type beginCaptureRequest struct {
	Label string `json:"label"`
}

type captureStatusResponse struct {
	Active   bool   `json:"active"`
	Label    string `json:"label,omitempty"`
	Captured int    `json:"captured"`
}

type finishCaptureResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Captured int    `json:"captured"`
	Samples  int    `json:"samples"`
}

func (h *CaptureHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *CaptureHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// begin handles POST /api/capture/begin and opens a recording session.
func (h *CaptureHandler) begin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req beginCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Label == "" {
		h.writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	if err := h.ctrl.Recorder().Begin(req.Label); err != nil {
		if errors.Is(err, pose.ErrSessionActive) {
			h.writeError(w, http.StatusConflict, "A capture session is already active")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to begin capture")
		return
	}

	h.writeJSON(w, http.StatusOK, captureStatusResponse{Active: true, Label: req.Label})
}

// sample handles POST /api/capture/sample and records the most recently
// detected hand into the session.
func (h *CaptureHandler) sample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	captured, err := h.ctrl.CaptureSample()
	if err != nil {
		if errors.Is(err, pose.ErrNoSession) {
			h.writeError(w, http.StatusConflict, "No capture session active")
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, captureStatusResponse{
		Active:   true,
		Label:    h.ctrl.Recorder().Label(),
		Captured: captured,
	})
}

// finish handles POST /api/capture/finish: persists the session's samples
// and makes the label matchable.
func (h *CaptureHandler) finish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p, captured, err := h.ctrl.Recorder().Finish()
	if err != nil {
		switch {
		case errors.Is(err, pose.ErrNoSession):
			h.writeError(w, http.StatusConflict, "No capture session active")
		case errors.Is(err, pose.ErrNoCaptures):
			h.writeError(w, http.StatusUnprocessableEntity, "No samples captured")
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to finish capture")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, finishCaptureResponse{
		ID:       p.ID,
		Label:    p.Name,
		Captured: captured,
		Samples:  p.Samples,
	})
}

// abort handles POST /api/capture/abort and discards the session.
func (h *CaptureHandler) abort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.ctrl.Recorder().Abort()
	h.writeJSON(w, http.StatusOK, captureStatusResponse{Active: false})
}

// status handles GET /api/capture/status.
func (h *CaptureHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec := h.ctrl.Recorder()
	h.writeJSON(w, http.StatusOK, captureStatusResponse{
		Active:   rec.Active(),
		Label:    rec.Label(),
		Captured: rec.Captured(),
	})
}
