package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/vision"
)

// StreamHandler serves one of the pipeline views as MJPEG.
type StreamHandler struct {
	pipeline Pipeline
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler pacing frames at interval.
func NewStreamHandler(p Pipeline, interval time.Duration) *StreamHandler {
	return &StreamHandler{pipeline: p, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients. The view is picked
// with ?view=depth|binary|edges|result.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := vision.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		buf, err := h.pipeline.EncodeView(view, gocv.JPEGFileExt)
		if errors.Is(err, vision.ErrNoImage) {
			continue
		}
		if err != nil {
			return
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		if _, err := w.Write(buf); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
