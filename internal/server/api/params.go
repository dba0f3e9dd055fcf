package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/ayusman/projmap/internal/params"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
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

// ParamsHandler serves the live parameter set.
type ParamsHandler struct {
	params *params.Store
	file   string
}

// NewParamsHandler creates a ParamsHandler. When file is not empty every
// accepted change is also written there.
func NewParamsHandler(p *params.Store, file string) *ParamsHandler {
	return &ParamsHandler{params: p, file: file}
}

type paramsResponse struct {
	Params  params.Params `json:"params"`
	Version uint64        `json:"version"`
}

// ServeHTTP handles GET and PUT /api/params and POST /api/params/reset.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/params/reset" && r.Method == http.MethodPost:
		h.set(w, params.DefaultParams())
	case r.URL.Path != "/api/params":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w)
	case r.Method == http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ParamsHandler) get(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, paramsResponse{Params: h.params.Get(), Version: h.params.Version()})
}

// update decodes the body over the current parameters, so a partial
// document only changes the fields it names. Decoding happens inside the
// store update so concurrent partial PUTs both land.
func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	var decodeErr error
	p, err := h.params.Update(func(p *params.Params) error {
		decodeErr = json.Unmarshal(body, p)
		return decodeErr
	})
	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.applied(w, p, err)
}

func (h *ParamsHandler) set(w http.ResponseWriter, p params.Params) {
	h.applied(w, p, h.params.Set(p))
}

func (h *ParamsHandler) applied(w http.ResponseWriter, p params.Params, err error) {
	if err != nil {
		if errors.Is(err, params.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply parameters")
		return
	}

	if h.file != "" {
		if err := params.Save(h.file, p); err != nil {
			log.Printf("Failed to save parameters to %s: %v", h.file, err)
		}
	}

	h.get(w)
}
