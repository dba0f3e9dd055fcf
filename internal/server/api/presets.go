// Package api provides HTTP API handlers for parameters, presets, sessions
// and hooks.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/store"
)

// PresetHandler handles HTTP requests for preset resources.
type PresetHandler struct {
	store  *store.Store
	params *params.Store
}

// NewPresetHandler creates a new PresetHandler. Applying a preset replaces
// the live parameters in p.
func NewPresetHandler(s *store.Store, p *params.Store) *PresetHandler {
	return &PresetHandler{store: s, params: p}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *PresetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/presets, /api/presets/{id}, /api/presets/{id}/apply
	path := strings.TrimPrefix(r.URL.Path, "/api/presets")
	path = strings.Trim(path, "/")

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

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "apply":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

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

type presetRequest struct {
	Name string `json:"name"`
	// Params defaults to the live parameters on create.
	Params *params.Params `json:"params"`
}

type presetResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Params    params.Params `json:"params"`
	Active    bool          `json:"active"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

func (h *PresetHandler) toResponse(p *store.Preset, active string) presetResponse {
	return presetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Params:    p.Params,
		Active:    p.ID == active,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// activeID returns the id of the active preset, or "".
func (h *PresetHandler) activeID() string {
	id, err := h.store.Settings().Get(store.SettingActivePreset)
	if err != nil {
		return ""
	}
	return id
}

// list handles GET /api/presets.
func (h *PresetHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.Presets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}

	active := h.activeID()
	response := listPresetsResponse{
		Presets: make([]presetResponse, 0, len(presets)),
	}
	for _, p := range presets {
		response.Presets = append(response.Presets, h.toResponse(p, active))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/presets/{id}.
func (h *PresetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	preset, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(preset, h.activeID()))
}

// create handles POST /api/presets. Without params the live parameters are
// saved under the given name.
func (h *PresetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	p := h.params.Get()
	if req.Params != nil {
		p = *req.Params
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Presets().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Preset name already exists")
		return
	}

	preset := &store.Preset{Name: req.Name, Params: p}
	if err := h.store.Presets().Create(preset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create preset")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(preset, h.activeID()))
}

// update handles PUT /api/presets/{id}.
func (h *PresetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	preset, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" && req.Name != preset.Name {
		if _, err := h.store.Presets().GetByName(req.Name); err == nil {
			writeError(w, http.StatusConflict, "Preset name already exists")
			return
		}
		preset.Name = req.Name
	}
	if req.Params != nil {
		if err := req.Params.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		preset.Params = *req.Params
	}

	if err := h.store.Presets().Update(preset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update preset")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(preset, h.activeID()))
}

// delete handles DELETE /api/presets/{id}. Deleting the active preset
// clears the active marker but keeps the live parameters.
func (h *PresetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Presets().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete preset")
		return
	}

	if h.activeID() == id {
		h.store.Settings().Delete(store.SettingActivePreset)
	}

	w.WriteHeader(http.StatusNoContent)
}

// apply handles POST /api/presets/{id}/apply. The preset becomes the live
// parameter set and is remembered as active.
func (h *PresetHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	preset, ok := h.lookup(w, id)
	if !ok {
		return
	}

	if err := h.params.Set(preset.Params); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Settings().Set(store.SettingActivePreset, preset.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save active preset")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(preset, preset.ID))
}

func (h *PresetHandler) lookup(w http.ResponseWriter, id string) (*store.Preset, bool) {
	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return nil, false
	}
	return preset, true
}
