// Package server provides the HTTP server for the depth pipeline: live
// signal, parameter surface, presets, sessions, hooks and image streams.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/app"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/plugin"
	"github.com/ayusman/projmap/internal/server/api"
	"github.com/ayusman/projmap/internal/store"
	"github.com/ayusman/projmap/internal/vision"
)

// Pipeline is the part of the app the server reads from. *app.App
// implements it.
type Pipeline interface {
	Status() app.Status
	SetEnabled(enabled bool)
	Reset()
	EncodeView(view vision.View, ext gocv.FileExt) ([]byte, error)
	Snapshot() (*app.Snapshot, error)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Params    *params.Store
	// ParamsFile receives parameter changes made over the API.
	ParamsFile string
	Pipeline   Pipeline
	Plugins    *plugin.Manager
	HookStats  api.HookStatsFunc
	// StreamFPS caps the MJPEG stream and the signal broadcast.
	StreamFPS int
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	signal *SignalHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamFPS <= 0 {
		config.StreamFPS = 15
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Params != nil {
		paramsHandler := api.NewParamsHandler(s.config.Params, s.config.ParamsFile)
		s.mux.Handle("/api/params", paramsHandler)
		s.mux.Handle("/api/params/", paramsHandler)
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		if s.config.Params != nil {
			presets := api.NewPresetHandler(s.config.Store, s.config.Params)
			s.mux.Handle("/api/presets", presets)
			s.mux.Handle("/api/presets/", presets)
		}
	}

	if s.config.Plugins != nil {
		hooks := api.NewHookHandler(s.config.Plugins, s.config.HookStats)
		s.mux.Handle("/api/hooks", hooks)
		s.mux.Handle("/api/hooks/", hooks)
	}

	if s.config.Pipeline != nil {
		interval := time.Second / time.Duration(s.config.StreamFPS)
		s.signal = NewSignalHandler(s.config.Pipeline, interval)

		s.mux.HandleFunc("/api/signal", s.handleSignal)
		s.mux.HandleFunc("/api/signal/reset", s.handleReset)
		s.mux.Handle("/api/signal/ws", s.signal)
		s.mux.HandleFunc("/api/pipeline", s.handlePipeline)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Pipeline, interval))
		s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the signal broadcaster.
func (s *Server) Close() {
	if s.signal != nil {
		s.signal.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Pipeline != nil {
		st := s.config.Pipeline.Status()
		response["running"] = st.Running
		response["enabled"] = st.Enabled
		response["frames"] = st.Frames
		response["skipped"] = st.Skipped
	}

	writeJSON(w, http.StatusOK, response)
}

// handleSignal handles GET /api/signal with the full pipeline status.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Pipeline.Status())
}

// handleReset handles POST /api/signal/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.config.Pipeline.Reset()
	writeJSON(w, http.StatusOK, s.config.Pipeline.Status())
}

type pipelineRequest struct {
	Enabled *bool `json:"enabled"`
}

// handlePipeline handles PUT /api/pipeline {"enabled": bool}.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	s.config.Pipeline.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, s.config.Pipeline.Status())
}

// handleSnapshot handles POST /api/snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.config.Pipeline.Snapshot()
	switch {
	case errors.Is(err, app.ErrNoSnapshotDir):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, vision.ErrNoImage):
		writeError(w, http.StatusConflict, "No frame processed yet")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to save snapshot")
	default:
		writeJSON(w, http.StatusCreated, snap)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
