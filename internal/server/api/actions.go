package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

// ActionHandler handles HTTP requests for action resources.
type ActionHandler struct {
	store *store.Store
}

// NewActionHandler creates a new ActionHandler with the given store.
func NewActionHandler(s *store.Store) *ActionHandler {
	return &ActionHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// the appropriate methods.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/actions or /api/actions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/actions")
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

type createActionRequest struct {
	PoseID     string          `json:"pose_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateActionRequest struct {
	PoseID     string          `json:"pose_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	PoseID     string          `json:"pose_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

// toActionResponse converts a store.Action to an actionResponse.
func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		PoseID:     a.PoseID,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/actions and returns all actions.
func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}

	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/actions/{id} and returns a single action.
func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// create handles POST /api/actions and creates a new action.
func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PoseID == "" {
		writeError(w, http.StatusBadRequest, "pose_id is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	// Verify pose exists
	if _, err := h.store.Poses().GetByID(req.PoseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify pose")
		return
	}

	// Check for duplicate binding
	existing, err := h.store.Actions().GetByPoseID(req.PoseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing action")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Action already bound to this pose")
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	action := &store.Action{
		ID:         uuid.New().String(),
		PoseID:     req.PoseID,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     config,
		Enabled:    true,
	}

	if err := h.store.Actions().Create(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

// update handles PUT /api/actions/{id} and updates an existing action.
func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PoseID != "" {
		if _, err := h.store.Poses().GetByID(req.PoseID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Pose not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to verify pose")
			return
		}
		action.PoseID = req.PoseID
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	if err := h.store.Actions().Update(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// delete handles DELETE /api/actions/{id} and removes an action.
func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Actions().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
