package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/plugin"
	"github.com/ayusman/handsoff/internal/proximity"
)

// TestAction is the action name a plugin may declare to be exercised from
// the dashboard without a real alert.
const TestAction = "test"

// PluginHandler serves the discovered notification plugins:
//
//	GET  /api/plugins
//	POST /api/plugins/rescan
//	POST /api/plugins/{name}/test
type PluginHandler struct {
	manager  *plugin.Manager
	executor *plugin.Executor
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(m *plugin.Manager, e *plugin.Executor) *PluginHandler {
	if e == nil {
		e = plugin.NewExecutor(plugin.DefaultTimeout)
	}
	return &PluginHandler{manager: m, executor: e}
}

// ServeHTTP implements the http.Handler interface.
func (h *PluginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/plugins")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case path == "rescan":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.manager.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to scan plugins")
			return
		}
		h.list(w, r)
	case strings.HasSuffix(path, "/"+TestAction):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.test(w, r, strings.TrimSuffix(path, "/"+TestAction))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

type testPluginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// list handles GET /api/plugins.
func (h *PluginHandler) list(w http.ResponseWriter, r *http.Request) {
	plugins := h.manager.List()

	response := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(plugins))}
	for _, p := range plugins {
		actions := p.Manifest.Actions
		if actions == nil {
			actions = []string{}
		}
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     actions,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// test handles POST /api/plugins/{name}/test by running the plugin's test
// action with a sample critical alert.
func (h *PluginHandler) test(w http.ResponseWriter, r *http.Request, name string) {
	p, err := h.manager.Get(name)
	if err != nil {
		if errors.Is(err, plugin.ErrPluginNotFound) {
			writeError(w, http.StatusNotFound, "Plugin not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get plugin")
		return
	}
	if !p.HasAction(TestAction) {
		writeError(w, http.StatusBadRequest, "plugin "+name+" has no test action")
		return
	}

	sample := alert.Alert{
		Record: alert.Record{
			Timestamp: time.Now(),
			Level:     proximity.Critical,
			Duration:  alert.IntensityRamp,
			Region:    "mouth",
			Intensity: 1,
		},
	}

	resp, err := h.executor.Execute(r.Context(), p, &plugin.Request{
		Action: TestAction,
		Alert:  plugin.NewAlertPayload(sample),
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, testPluginResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, testPluginResponse{Success: resp.Success, Error: resp.Error})
}
