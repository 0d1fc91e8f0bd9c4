package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/ayusman/handsoff/internal/proximity"
	"github.com/ayusman/handsoff/internal/store"
)

// SensitivityHandler serves the per-region distance weights:
//
//	GET    /api/sensitivity
//	PUT    /api/sensitivity           merge weights
//	DELETE /api/sensitivity/{region}
//
// The engine holds the live weights. The store, when configured, mirrors them.
type SensitivityHandler struct {
	engine Engine
	store  *store.Store
}

// NewSensitivityHandler creates a new SensitivityHandler. s may be nil.
func NewSensitivityHandler(e Engine, s *store.Store) *SensitivityHandler {
	return &SensitivityHandler{engine: e, store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SensitivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	region := strings.TrimPrefix(r.URL.Path, "/api/sensitivity")
	region = strings.Trim(region, "/")

	if region == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, sensitivityResponse{Weights: h.engine.Sensitivity()})
		case http.MethodPut:
			h.update(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, region)
}

type sensitivityResponse struct {
	Weights proximity.Sensitivity `json:"weights"`
}

type updateSensitivityRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// update handles PUT /api/sensitivity. Supplied regions are added or
// replaced; others keep their weight.
func (h *SensitivityHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSensitivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Weights) == 0 {
		writeError(w, http.StatusBadRequest, "weights is required")
		return
	}

	next := h.engine.Sensitivity()
	for region, weight := range req.Weights {
		region = strings.TrimSpace(region)
		if region == "" {
			writeError(w, http.StatusBadRequest, "region is required")
			return
		}
		if !(weight > 0) || math.IsInf(weight, 1) {
			writeError(w, http.StatusBadRequest, "weight for "+region+" must be a positive number")
			return
		}
		next[region] = weight
	}

	if !h.commit(w, next) {
		return
	}
	writeJSON(w, http.StatusOK, sensitivityResponse{Weights: next})
}

// delete handles DELETE /api/sensitivity/{region}. The region falls back to
// the default weight of 1.
func (h *SensitivityHandler) delete(w http.ResponseWriter, r *http.Request, region string) {
	next := h.engine.Sensitivity()
	if _, ok := next[region]; !ok {
		writeError(w, http.StatusNotFound, "Region not found")
		return
	}
	delete(next, region)

	if !h.commit(w, next) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SensitivityHandler) commit(w http.ResponseWriter, next proximity.Sensitivity) bool {
	if h.store != nil {
		if err := h.store.Sensitivity().Replace(next); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save sensitivity")
			return false
		}
	}
	h.engine.SetSensitivity(next)
	return true
}
