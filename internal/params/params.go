// Package params holds the tunable detection parameters and the live store
// that lets them change while the pipeline runs.
package params

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned when a parameter set fails validation.
var ErrInvalid = errors.New("invalid parameters")

// LineMode selects the Hough line transform.
type LineMode string

const (
	// LineProbabilistic uses the probabilistic transform returning segments.
	LineProbabilistic LineMode = "probabilistic"
	// LineStandard uses the standard transform returning (rho, theta) lines.
	LineStandard LineMode = "standard"
)

// Binarize configures foreground separation. Otsu is used unless Manual is set.
type Binarize struct {
	Manual bool `json:"manual" yaml:"manual"`
	Thresh int  `json:"thresh" yaml:"thresh"`
}

// Canny holds the two hysteresis bounds of the edge detector.
type Canny struct {
	Thresh1 int `json:"thresh1" yaml:"thresh1"`
	Thresh2 int `json:"thresh2" yaml:"thresh2"`
}

// Line configures the Hough line transform.
type Line struct {
	Mode          LineMode `json:"mode" yaml:"mode"`
	Rho           float64  `json:"rho" yaml:"rho"`
	Theta         float64  `json:"theta" yaml:"theta"`
	Thresh        int      `json:"thresh" yaml:"thresh"`
	MinLineLength int      `json:"min_line_length" yaml:"min_line_length"`
	MaxLineGap    int      `json:"max_line_gap" yaml:"max_line_gap"`
}

// Circle configures the gradient Hough circle transform.
type Circle struct {
	DP        float64 `json:"dp" yaml:"dp"`
	MinDist   int     `json:"min_dist" yaml:"min_dist"`
	Param1    int     `json:"param1" yaml:"param1"`
	Param2    int     `json:"param2" yaml:"param2"`
	MinRadius int     `json:"min_radius" yaml:"min_radius"`
	MaxRadius int     `json:"max_radius" yaml:"max_radius"`
}

// Depth configures how raw samples are mapped to intensities.
type Depth struct {
	// ReliabilityFilter maps samples outside the sensor's reliable range to 0
	// instead of applying the plain linear scale to every sample.
	ReliabilityFilter bool `json:"reliability_filter" yaml:"reliability_filter"`
}

// Params is the full set of pipeline parameters.
type Params struct {
	Binarize Binarize `json:"binarize" yaml:"binarize"`
	Canny    Canny    `json:"canny" yaml:"canny"`
	Line     Line     `json:"line" yaml:"line"`
	Circle   Circle   `json:"circle" yaml:"circle"`
	Depth    Depth    `json:"depth" yaml:"depth"`
}

// SliderMax is the upper bound of the integer threshold parameters.
const SliderMax = 255

// DefaultParams returns the calibrated installation defaults.
func DefaultParams() Params {
	return Params{
		Binarize: Binarize{
			Manual: false,
			Thresh: 230,
		},
		Canny: Canny{
			Thresh1: 70,
			Thresh2: 150,
		},
		Line: Line{
			Mode:          LineProbabilistic,
			Rho:           1,
			Theta:         math.Pi / 180,
			Thresh:        70,
			MinLineLength: 10,
			MaxLineGap:    200,
		},
		Circle: Circle{
			DP:        1,
			MinDist:   200,
			Param1:    10,
			Param2:    20,
			MinRadius: 10,
			MaxRadius: 200,
		},
	}
}

// Validate checks every field against its allowed range.
func (p Params) Validate() error {
	if err := inRange("binarize.thresh", p.Binarize.Thresh, 0, SliderMax); err != nil {
		return err
	}
	if err := inRange("canny.thresh1", p.Canny.Thresh1, 0, SliderMax); err != nil {
		return err
	}
	if err := inRange("canny.thresh2", p.Canny.Thresh2, 0, SliderMax); err != nil {
		return err
	}

	switch p.Line.Mode {
	case LineProbabilistic, LineStandard:
	default:
		return fmt.Errorf("%w: line.mode %q", ErrInvalid, p.Line.Mode)
	}
	if p.Line.Rho <= 0 {
		return fmt.Errorf("%w: line.rho must be positive", ErrInvalid)
	}
	if p.Line.Theta <= 0 || p.Line.Theta > math.Pi {
		return fmt.Errorf("%w: line.theta must be in (0, pi]", ErrInvalid)
	}
	if err := inRange("line.thresh", p.Line.Thresh, 1, SliderMax); err != nil {
		return err
	}
	if err := inRange("line.min_line_length", p.Line.MinLineLength, 0, SliderMax); err != nil {
		return err
	}
	if err := inRange("line.max_line_gap", p.Line.MaxLineGap, 0, SliderMax); err != nil {
		return err
	}

	if p.Circle.DP <= 0 {
		return fmt.Errorf("%w: circle.dp must be positive", ErrInvalid)
	}
	if err := inRange("circle.min_dist", p.Circle.MinDist, 1, SliderMax); err != nil {
		return err
	}
	if err := inRange("circle.param1", p.Circle.Param1, 1, SliderMax); err != nil {
		return err
	}
	if err := inRange("circle.param2", p.Circle.Param2, 1, SliderMax); err != nil {
		return err
	}
	if err := inRange("circle.min_radius", p.Circle.MinRadius, 0, SliderMax); err != nil {
		return err
	}
	if err := inRange("circle.max_radius", p.Circle.MaxRadius, 0, SliderMax); err != nil {
		return err
	}
	// A zero max radius lets the transform pick any size.
	if p.Circle.MaxRadius != 0 && p.Circle.MinRadius > p.Circle.MaxRadius {
		return fmt.Errorf("%w: circle.min_radius %d exceeds circle.max_radius %d",
			ErrInvalid, p.Circle.MinRadius, p.Circle.MaxRadius)
	}

	return nil
}

func inRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s = %d, want [%d, %d]", ErrInvalid, name, v, lo, hi)
	}
	return nil
}
