package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/handsoff/internal/plugin"
	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

// NotifierHandler handles HTTP requests for notifier resources, which bind
// an alert level to a plugin action.
type NotifierHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewNotifierHandler creates a new NotifierHandler. When plugins is nil the
// plugin and action names are not validated.
func NewNotifierHandler(s *store.Store, plugins *plugin.Manager) *NotifierHandler {
	return &NotifierHandler{store: s, plugins: plugins}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *NotifierHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/notifiers or /api/notifiers/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/notifiers")
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

type createNotifierRequest struct {
	Level      string          `json:"level"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type updateNotifierRequest struct {
	Level      string          `json:"level"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type notifierResponse struct {
	ID         string          `json:"id"`
	Level      string          `json:"level"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listNotifiersResponse struct {
	Notifiers []notifierResponse `json:"notifiers"`
}

func toNotifierResponse(n *store.Notifier) notifierResponse {
	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return notifierResponse{
		ID:         n.ID,
		Level:      strings.ToLower(n.Level.String()),
		PluginName: n.PluginName,
		ActionName: n.ActionName,
		Config:     config,
		Enabled:    n.Enabled,
		CreatedAt:  n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// parseLevel accepts only the two alerting levels.
func parseLevel(s string) (proximity.Level, bool) {
	l := proximity.ParseLevel(s)
	return l, l == proximity.Warning || l == proximity.Critical
}

// validateTarget checks that the plugin exists and declares the action.
func (h *NotifierHandler) validateTarget(pluginName, actionName string) string {
	if pluginName == "" {
		return "plugin_name is required"
	}
	if actionName == "" {
		return "action_name is required"
	}
	if h.plugins == nil {
		return ""
	}
	p, err := h.plugins.Get(pluginName)
	if err != nil {
		return "unknown plugin: " + pluginName
	}
	if !p.HasAction(actionName) {
		return "plugin " + pluginName + " has no action " + actionName
	}
	return ""
}

// list handles GET /api/notifiers and returns all notifiers.
func (h *NotifierHandler) list(w http.ResponseWriter, r *http.Request) {
	notifiers, err := h.store.Notifiers().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifiers")
		return
	}

	response := listNotifiersResponse{
		Notifiers: make([]notifierResponse, 0, len(notifiers)),
	}
	for _, n := range notifiers {
		response.Notifiers = append(response.Notifiers, toNotifierResponse(n))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/notifiers/{id} and returns a single notifier.
func (h *NotifierHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	n, err := h.store.Notifiers().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notifier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get notifier")
		return
	}

	writeJSON(w, http.StatusOK, toNotifierResponse(n))
}

// create handles POST /api/notifiers and creates a new notifier.
func (h *NotifierHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	level, ok := parseLevel(req.Level)
	if !ok {
		writeError(w, http.StatusBadRequest, "level must be warning or critical")
		return
	}
	if msg := h.validateTarget(req.PluginName, req.ActionName); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	n := &store.Notifier{
		Level:      level,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    enabled,
	}
	if err := h.store.Notifiers().Create(n); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create notifier")
		return
	}

	writeJSON(w, http.StatusCreated, toNotifierResponse(n))
}

// update handles PUT /api/notifiers/{id}. Empty fields keep their value.
func (h *NotifierHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req updateNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	n, err := h.store.Notifiers().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notifier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get notifier")
		return
	}

	if req.Level != "" {
		level, ok := parseLevel(req.Level)
		if !ok {
			writeError(w, http.StatusBadRequest, "level must be warning or critical")
			return
		}
		n.Level = level
	}
	if req.PluginName != "" {
		n.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		n.ActionName = req.ActionName
	}
	if req.Config != nil {
		n.Config = req.Config
	}
	if req.Enabled != nil {
		n.Enabled = *req.Enabled
	}

	if msg := h.validateTarget(n.PluginName, n.ActionName); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Notifiers().Update(n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notifier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update notifier")
		return
	}

	writeJSON(w, http.StatusOK, toNotifierResponse(n))
}

// delete handles DELETE /api/notifiers/{id}.
func (h *NotifierHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Notifiers().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notifier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete notifier")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
