package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/projmap/internal/cue"
	"github.com/ayusman/projmap/internal/plugin"
)

// HookStatsFunc reports dispatch counters and recent outcomes.
type HookStatsFunc func() (plugin.DispatchStats, []plugin.Outcome)

// HookHandler lists discovered hooks and their recent runs.
type HookHandler struct {
	manager *plugin.Manager
	stats   HookStatsFunc
}

// NewHookHandler creates a HookHandler. stats may be nil.
func NewHookHandler(m *plugin.Manager, stats HookStatsFunc) *HookHandler {
	return &HookHandler{manager: m, stats: stats}
}

type hookResponse struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Events      []cue.EventKind `json:"events"`
	Config      json.RawMessage `json:"config"`
	Path        string          `json:"path"`
}

type listHooksResponse struct {
	Dir   string         `json:"dir"`
	Hooks []hookResponse `json:"hooks"`
}

type hookHistoryResponse struct {
	Stats    plugin.DispatchStats `json:"stats"`
	Outcomes []plugin.Outcome     `json:"outcomes"`
}

// ServeHTTP routes GET /api/hooks, GET /api/hooks/history,
// POST /api/hooks/discover and GET /api/hooks/{name}.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/hooks"), "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		h.list(w)
	case path == "discover" && r.Method == http.MethodPost:
		if err := h.manager.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to scan plugin directory")
			return
		}
		h.list(w)
	case path == "history" && r.Method == http.MethodGet:
		h.history(w)
	case path != "" && path != "discover" && path != "history" && r.Method == http.MethodGet:
		p, err := h.manager.Get(path)
		if err != nil {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeJSON(w, http.StatusOK, toHookResponse(p))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func toHookResponse(p *plugin.Plugin) hookResponse {
	events := p.Manifest.Events
	if len(events) == 0 {
		events = []cue.EventKind{cue.EventTone, cue.EventFull, cue.EventFinish}
	}
	config := p.Manifest.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return hookResponse{
		Name:        p.Manifest.Name,
		Version:     p.Manifest.Version,
		Description: p.Manifest.Description,
		Events:      events,
		Config:      config,
		Path:        p.Path,
	}
}

func (h *HookHandler) list(w http.ResponseWriter) {
	plugins := h.manager.List()
	response := listHooksResponse{
		Dir:   h.manager.PluginDir(),
		Hooks: make([]hookResponse, 0, len(plugins)),
	}
	for _, p := range plugins {
		response.Hooks = append(response.Hooks, toHookResponse(p))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *HookHandler) history(w http.ResponseWriter) {
	var response hookHistoryResponse
	if h.stats != nil {
		response.Stats, response.Outcomes = h.stats()
	}
	if response.Outcomes == nil {
		response.Outcomes = []plugin.Outcome{}
	}
	writeJSON(w, http.StatusOK, response)
}
