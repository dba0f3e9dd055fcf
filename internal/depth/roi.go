package depth

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Region of interest used for detection.
const (
	ROIWidth  = 200
	ROIHeight = 150
)

// ErrROIOutOfBounds is returned when the requested region does not fit inside
// the frame.
var ErrROIOutOfBounds = errors.New("roi exceeds frame bounds")

// CenterROI returns the rw x rh rectangle centred in a w x h frame, with the
// offset ((w-rw)/2, (h-rh)/2).
func CenterROI(w, h, rw, rh int) (image.Rectangle, error) {
	if rw <= 0 || rh <= 0 || rw > w || rh > h {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d in %dx%d", ErrROIOutOfBounds, rw, rh, w, h)
	}
	x := (w - rw) / 2
	y := (h - rh) / 2
	return image.Rect(x, y, x+rw, y+rh), nil
}

// DefaultROI is the detection region for a sensor-sized frame.
func DefaultROI() image.Rectangle {
	r, _ := CenterROI(Width, Height, ROIWidth, ROIHeight)
	return r
}

// ROI returns a view of src restricted to rect. The view shares memory with
// src and must be closed by the caller.
func ROI(src gocv.Mat, rect image.Rectangle) gocv.Mat {
	return src.Region(rect)
}
