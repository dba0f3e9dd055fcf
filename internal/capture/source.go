// Package capture provides depth frame sources: an OpenNI2 depth sensor
// through GoCV, recorded PNG sequences and an in-memory mock.
package capture

import (
	"errors"

	"github.com/ayusman/projmap/internal/depth"
)

// ErrSourceNotOpen is returned when a source is used before Open.
var ErrSourceNotOpen = errors.New("source is not open")

// Source defines the interface for depth frame sources.
type Source interface {
	Open() error
	Close() error
	// TryAcquireLatest returns the newest frame not yet handed out, or
	// nil, false when no new frame is ready. It never blocks.
	TryAcquireLatest() (*depth.Frame, bool)
	IsOpen() bool
}
