// Package api provides the HTTP API handlers for the Mudra pose classifier.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/store"
)

// PoseHandler handles HTTP requests for pose resources. When a live
// matcher is attached, label changes take effect immediately.
type PoseHandler struct {
	store   *store.Store
	matcher *pose.Matcher
}

// NewPoseHandler creates a new PoseHandler. The matcher may be nil.
func NewPoseHandler(s *store.Store, m *pose.Matcher) *PoseHandler {
	return &PoseHandler{store: s, matcher: m}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// the appropriate methods.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/poses or /api/poses/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/poses")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createPoseRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type updatePoseRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type poseResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Pose to a poseResponse.
func toResponse(p *store.Pose) poseResponse {
	return poseResponse{
		ID:        p.ID,
		Name:      p.Name,
		Tolerance: p.Tolerance,
		Samples:   p.Samples,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/poses and returns all poses in creation order.
func (h *PoseHandler) list(w http.ResponseWriter, r *http.Request) {
	poses, err := h.store.Poses().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	response := listPosesResponse{
		Poses: make([]poseResponse, 0, len(poses)),
	}

	for _, p := range poses {
		response.Poses = append(response.Poses, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/poses/{id} and returns a single pose.
func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// create handles POST /api/poses and creates a new pose.
func (h *PoseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = pose.DefaultTolerance
	}

	p := &store.Pose{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Tolerance: tolerance,
		Samples:   0,
	}

	if err := h.store.Poses().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	if h.matcher != nil {
		h.matcher.AddLabel(p.Name, p.Tolerance)
	}

	writeJSON(w, http.StatusCreated, toResponse(p))
}

// update handles PUT /api/poses/{id} and updates an existing pose.
func (h *PoseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	var req updatePoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	oldName := p.Name
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Tolerance != 0 {
		p.Tolerance = req.Tolerance
	}

	if err := h.store.Poses().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update pose")
		return
	}

	// A tolerance change applies to the live label in place, keeping its
	// loaded samples. A renamed label is dropped and rebuilt from stored
	// samples on the next reload.
	if h.matcher != nil {
		if p.Name != oldName {
			h.matcher.RemoveLabel(oldName)
		} else if req.Tolerance != 0 {
			h.matcher.AddLabel(p.Name, p.Tolerance)
		}
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// delete handles DELETE /api/poses/{id} and removes a pose.
func (h *PoseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	if err := h.store.Poses().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}

	if h.matcher != nil {
		h.matcher.RemoveLabel(p.Name)
	}

	w.WriteHeader(http.StatusNoContent)
}
