package diag

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/projmap/internal/stabilizer"
	"github.com/ayusman/projmap/internal/store"
)

// Stats summarizes the detection log of a session.
type Stats struct {
	Frames    int `json:"frames"`
	Recorded  int `json:"recorded"`
	Missed    int `json:"missed"`
	Ambiguous int `json:"ambiguous"`
	Emitted   int `json:"emitted"`
	Resets    int `json:"resets"`

	// HitRate is the share of frames with exactly one circle.
	HitRate float64 `json:"hit_rate"`

	// Raw radius over recorded frames.
	RadiusMean   float64 `json:"radius_mean"`
	RadiusStdDev float64 `json:"radius_stddev"`

	// Jitter is the standard deviation of the raw centre over recorded
	// frames, per axis.
	JitterX float64 `json:"jitter_x"`
	JitterY float64 `json:"jitter_y"`

	// LongestMiss is the longest run of consecutive missed frames.
	LongestMiss int `json:"longest_miss"`
}

// Summarize computes Stats over detections in frame order.
func Summarize(detections []store.Detection) Stats {
	var s Stats
	var xs, ys, rs []float64
	run := 0

	for _, d := range detections {
		s.Frames++
		switch stabilizer.Outcome(d.Outcome) {
		case stabilizer.Recorded:
			s.Recorded++
			xs = append(xs, float64(d.RawX))
			ys = append(ys, float64(d.RawY))
			rs = append(rs, float64(d.RawR))
		case stabilizer.Missed:
			s.Missed++
		case stabilizer.Ambiguous:
			s.Ambiguous++
		}

		if stabilizer.Outcome(d.Outcome) == stabilizer.Missed {
			run++
			if run > s.LongestMiss {
				s.LongestMiss = run
			}
		} else {
			run = 0
		}

		if d.Emitted {
			s.Emitted++
		}
		if d.Reset {
			s.Resets++
		}
	}

	if s.Frames > 0 {
		s.HitRate = float64(s.Recorded) / float64(s.Frames)
	}
	if len(rs) > 0 {
		s.RadiusMean = stat.Mean(rs, nil)
	}
	if len(rs) > 1 {
		s.RadiusStdDev = stat.StdDev(rs, nil)
		s.JitterX = stat.StdDev(xs, nil)
		s.JitterY = stat.StdDev(ys, nil)
	}

	s.RadiusStdDev = finite(s.RadiusStdDev)
	s.JitterX = finite(s.JitterX)
	s.JitterY = finite(s.JitterY)
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
