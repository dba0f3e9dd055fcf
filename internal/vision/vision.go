// Package vision separates the foreground of a depth intensity image and
// extracts the edges the shape detector runs on.
package vision

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/params"
)

// Binarize writes a binary foreground image of roi into dst and returns the
// threshold that was applied. Otsu's method picks the threshold unless the
// manual threshold is enabled.
func Binarize(roi gocv.Mat, dst *gocv.Mat, p params.Binarize) float32 {
	if p.Manual {
		return gocv.Threshold(roi, dst, float32(p.Thresh), 255, gocv.ThresholdBinary)
	}
	return gocv.Threshold(roi, dst, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
}

// Edges runs the Canny detector over bin with the configured hysteresis
// thresholds.
func Edges(bin gocv.Mat, dst *gocv.Mat, p params.Canny) {
	gocv.Canny(bin, dst, float32(p.Thresh1), float32(p.Thresh2))
}
