// Package detector finds line and circle candidates in edge images.
package detector

import (
	"image"
	"math"

	"github.com/ayusman/projmap/internal/stabilizer"
)

// Segment is a detected line segment between two endpoints.
type Segment struct {
	P1 image.Point `json:"p1"`
	P2 image.Point `json:"p2"`
}

// Circle is a detected circle in ROI pixel coordinates.
type Circle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
}

// Center returns the circle centre as a point.
func (c Circle) Center() image.Point {
	return image.Pt(c.X, c.Y)
}

// Shapes holds everything found in one frame, in detection order.
type Shapes struct {
	Lines   []Segment `json:"lines"`
	Circles []Circle  `json:"circles"`
}

// Observations converts the detected circles for the stabilizer.
func (s Shapes) Observations() []stabilizer.Observation {
	if len(s.Circles) == 0 {
		return nil
	}
	obs := make([]stabilizer.Observation, len(s.Circles))
	for i, c := range s.Circles {
		obs[i] = stabilizer.Observation{X: c.X, Y: c.Y, Radius: c.Radius}
	}
	return obs
}

// saturateInt rounds v to the nearest integer and clamps it to the int32 range.
func saturateInt(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.RoundToEven(v)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}

// polarSegment turns a (rho, theta) line into a segment that extends reach
// pixels on either side of the point closest to the origin.
func polarSegment(rho, theta float64, reach float64) Segment {
	a := math.Cos(theta)
	b := math.Sin(theta)
	x0 := a * rho
	y0 := b * rho
	return Segment{
		P1: image.Pt(saturateInt(x0+reach*(-b)), saturateInt(y0+reach*a)),
		P2: image.Pt(saturateInt(x0-reach*(-b)), saturateInt(y0-reach*a)),
	}
}
