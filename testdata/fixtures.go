// Package testdata generates synthetic depth frames for tests.
package testdata

import (
	"image"

	"github.com/ayusman/projmap/internal/depth"
)

// Distances used by the generated scenes, in millimetres.
const (
	BackgroundMM = 4000
	ObjectMM     = 1000
)

// ROIOrigin is the top-left corner of the detection region in a sensor-sized
// frame.
var ROIOrigin = depth.DefaultROI().Min

// Background returns a sensor-sized frame filled with a flat wall at mm.
func Background(mm uint16) *depth.Frame {
	f := depth.NewFrame()
	for i := range f.Data {
		f.Data[i] = mm
	}
	return f
}

// Disk returns a frame with a filled disk of radius r at the given distance
// in front of the default background. The centre is in ROI coordinates.
func Disk(cx, cy, r int, mm uint16) *depth.Frame {
	f := Background(BackgroundMM)
	DrawDisk(f, ROIOrigin.X+cx, ROIOrigin.Y+cy, r, mm)
	return f
}

// DrawDisk fills a disk in frame coordinates.
func DrawDisk(f *depth.Frame, cx, cy, r int, mm uint16) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				f.Set(x, y, mm)
			}
		}
	}
}

// TwoDisks returns a frame with two disks far enough apart to be reported as
// separate circles when the minimum centre distance allows it.
func TwoDisks(a, b image.Point, r int) *depth.Frame {
	f := Background(BackgroundMM)
	DrawDisk(f, ROIOrigin.X+a.X, ROIOrigin.Y+a.Y, r, ObjectMM)
	DrawDisk(f, ROIOrigin.X+b.X, ROIOrigin.Y+b.Y, r, ObjectMM)
	return f
}

// Ramp returns a frame whose depth grows left to right from 0 to max.
func Ramp(max uint16) *depth.Frame {
	f := depth.NewFrame()
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.Set(x, y, uint16(x*int(max)/(f.Width-1)))
		}
	}
	return f
}

// Sequence builds n frames with gen, stamping consecutive sequence numbers.
func Sequence(n int, gen func(i int) *depth.Frame) []*depth.Frame {
	frames := make([]*depth.Frame, n)
	for i := range frames {
		frames[i] = gen(i)
		frames[i].Seq = uint64(i + 1)
	}
	return frames
}
