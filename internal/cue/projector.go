// Package cue drives the audio-visual feedback for a held gesture: a charge
// ring that fills one step per finished tone, then the ring, white fade and
// fly-off phases. It holds no rendering code; consumers draw from State.
package cue

import "github.com/ayusman/projmap/internal/stabilizer"

// Calibration is the sensor region, in ROI pixels, that the projector covers.
type Calibration struct {
	StartX int `json:"start_x" yaml:"start_x"`
	StartY int `json:"start_y" yaml:"start_y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Projector maps stabilized signals onto projector pixels.
type Projector struct {
	Cal     Calibration `json:"calibration" yaml:"calibration"`
	Width   int         `json:"width" yaml:"width"`
	Height  int         `json:"height" yaml:"height"`
	OffsetX float64     `json:"offset_x" yaml:"offset_x"`
	OffsetY float64     `json:"offset_y" yaml:"offset_y"`
	OffsetR float64     `json:"offset_r" yaml:"offset_r"`
}

// DefaultProjector returns the installation calibration for a 1600x1200
// projector.
func DefaultProjector() Projector {
	return Projector{
		Cal:     Calibration{StartX: 190, StartY: 25, Width: 147, Height: 161},
		Width:   1600,
		Height:  1200,
		OffsetX: 80,
		OffsetY: -30,
		OffsetR: -10,
	}
}

// Point is a position in projector pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale returns the whole-pixel horizontal and vertical magnification from
// calibration units to projector pixels.
func (p Projector) Scale() (h, v float64) {
	if p.Cal.Width <= 0 || p.Cal.Height <= 0 {
		return 0, 0
	}
	return float64(p.Width / p.Cal.Width), float64(p.Height / p.Cal.Height)
}

// Map converts a signal into a projector centre and radius. The horizontal
// axis is mirrored because the sensor faces the projection surface.
func (p Projector) Map(sig stabilizer.Signal) (Point, float64) {
	h, v := p.Scale()
	center := Point{
		X: float64(p.Cal.Width-sig.X)*h + p.OffsetX,
		Y: (float64(sig.Y) + p.OffsetY) * v,
	}
	return center, float64(sig.Radius)*v + p.OffsetR
}
