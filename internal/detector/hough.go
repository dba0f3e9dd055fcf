package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/params"
)

// standardLineReach is how far a standard Hough line is extended either side
// of its foot point when turned into a segment.
const standardLineReach = 1000

// HoughDetector implements Detector with the Hough line and gradient Hough
// circle transforms. The result Mats are reused between calls.
type HoughDetector struct {
	lines   gocv.Mat
	circles gocv.Mat
}

// NewHoughDetector creates a new HoughDetector.
func NewHoughDetector() *HoughDetector {
	return &HoughDetector{
		lines:   gocv.NewMat(),
		circles: gocv.NewMat(),
	}
}

// Detect runs the line and circle transforms over the edge map.
func (d *HoughDetector) Detect(edges gocv.Mat, p params.Params) (Shapes, error) {
	var shapes Shapes

	if edges.Empty() {
		return shapes, nil
	}
	if edges.Type() != gocv.MatTypeCV8UC1 {
		return shapes, fmt.Errorf("edge map must be CV_8UC1, got %v", edges.Type())
	}

	switch p.Line.Mode {
	case params.LineStandard:
		shapes.Lines = d.standardLines(edges, p.Line)
	default:
		shapes.Lines = d.probabilisticLines(edges, p.Line)
	}

	shapes.Circles = d.detectCircles(edges, p.Circle)
	return shapes, nil
}

func (d *HoughDetector) probabilisticLines(edges gocv.Mat, p params.Line) []Segment {
	gocv.HoughLinesPWithParams(edges, &d.lines,
		float32(p.Rho), float32(p.Theta), p.Thresh,
		float32(p.MinLineLength), float32(p.MaxLineGap))

	if d.lines.Empty() {
		return nil
	}

	segments := make([]Segment, 0, d.lines.Rows())
	for i := 0; i < d.lines.Rows(); i++ {
		v := d.lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segments = append(segments, Segment{
			P1: pt(int(v[0]), int(v[1])),
			P2: pt(int(v[2]), int(v[3])),
		})
	}
	return segments
}

func (d *HoughDetector) standardLines(edges gocv.Mat, p params.Line) []Segment {
	gocv.HoughLines(edges, &d.lines, float32(p.Rho), float32(p.Theta), p.Thresh)

	if d.lines.Empty() {
		return nil
	}

	segments := make([]Segment, 0, d.lines.Rows())
	for i := 0; i < d.lines.Rows(); i++ {
		v := d.lines.GetVecfAt(i, 0)
		if len(v) < 2 {
			continue
		}
		segments = append(segments, polarSegment(float64(v[0]), float64(v[1]), standardLineReach))
	}
	return segments
}

func (d *HoughDetector) detectCircles(edges gocv.Mat, p params.Circle) []Circle {
	gocv.HoughCirclesWithParams(edges, &d.circles, gocv.HoughGradient,
		p.DP, float64(p.MinDist),
		float64(p.Param1), float64(p.Param2),
		p.MinRadius, p.MaxRadius)

	if d.circles.Empty() || d.circles.Cols() == 0 {
		return nil
	}

	circles := make([]Circle, 0, d.circles.Cols())
	for i := 0; i < d.circles.Cols(); i++ {
		v := d.circles.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		circles = append(circles, Circle{
			X:      saturateInt(float64(v[0])),
			Y:      saturateInt(float64(v[1])),
			Radius: saturateInt(float64(v[2])),
		})
	}
	return circles
}

// Close releases the result buffers.
func (d *HoughDetector) Close() error {
	if err := d.lines.Close(); err != nil {
		return err
	}
	return d.circles.Close()
}
