// Package plugin runs external hook executables when cue events fire.
// Hooks talk JSON over stdin and stdout.
package plugin

import (
	"encoding/json"
	"time"

	"github.com/ayusman/projmap/internal/cue"
	"github.com/ayusman/projmap/internal/stabilizer"
)

// Manifest describes a hook's metadata and the events it subscribes to.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []cue.EventKind `json:"events"`
	Config       json.RawMessage `json:"config,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Subscribes reports whether the manifest lists kind. An empty list
// subscribes to every event.
func (m Manifest) Subscribes(kind cue.EventKind) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, k := range m.Events {
		if k == kind {
			return true
		}
	}
	return false
}

// Request is sent to a hook on stdin.
type Request struct {
	Event     cue.EventKind     `json:"event"`
	Percent   int               `json:"percent"`
	Frequency int               `json:"frequency"`
	Signal    stabilizer.Signal `json:"signal"`
	Time      time.Time         `json:"time"`
	Config    json.RawMessage   `json:"config,omitempty"`
}

// NewRequest builds the request for ev.
func NewRequest(ev cue.Event, config json.RawMessage) *Request {
	return &Request{
		Event:     ev.Kind,
		Percent:   ev.Percent,
		Frequency: ev.Frequency,
		Signal:    ev.Signal,
		Time:      ev.Time,
		Config:    config,
	}
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered hook with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
