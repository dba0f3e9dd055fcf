package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/params"
)

// Detector defines the interface for shape detection implementations.
type Detector interface {
	// Detect finds line segments and circles in a single channel edge map.
	// Returns empty slices if nothing is found.
	Detect(edges gocv.Mat, p params.Params) (Shapes, error)

	// Close releases any resources held by the detector.
	Close() error
}
