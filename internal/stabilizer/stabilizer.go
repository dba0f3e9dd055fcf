// Package stabilizer smooths per-frame circle detections into a steady
// gesture signal using a short moving average and failure hysteresis.
package stabilizer

// Defaults for the history depth and the failure budget.
const (
	// HistorySize is the number of detections averaged into the signal.
	HistorySize = 5
	// FailureLimit is the number of failed frames tolerated before the
	// history is cleared. The reset fires when the count exceeds it.
	FailureLimit = 30
)

// Observation is a single raw circle detection in ROI pixel coordinates.
type Observation struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
}

// Signal is the stabilized circle handed to consumers.
type Signal struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
}

// IsZero reports whether the signal carries no circle.
func (s Signal) IsZero() bool {
	return s.X == 0 && s.Y == 0 && s.Radius == 0
}

// Outcome classifies a frame by the number of circles it produced.
type Outcome string

const (
	// Recorded means exactly one circle was seen and written to the history.
	Recorded Outcome = "recorded"
	// Missed means no circle was seen.
	Missed Outcome = "missed"
	// Ambiguous means several circles were seen and the frame was ignored.
	Ambiguous Outcome = "ambiguous"
)

// Result describes what a single Update did.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reset   bool    `json:"reset"`
	Emitted bool    `json:"emitted"`
	Signal  Signal  `json:"signal"`
}

// State is a snapshot of the stabilizer internals.
type State struct {
	History   [HistorySize]Observation `json:"history"`
	Index     int                      `json:"index"`
	Failures  int                      `json:"failures"`
	Successes int                      `json:"successes"`
}

// Stabilizer owns the history buffer and the hysteresis counters. It is not
// safe for concurrent use; the frame loop is its only caller.
type Stabilizer struct {
	history      [HistorySize]Observation
	index        int
	failures     int
	successes    int
	current      Signal
	emitOnStreak bool
}

// Option configures a Stabilizer.
type Option func(*Stabilizer)

// WithEmitOnStreak makes an unbroken detection streak (failure count 0) emit
// the averaged signal too. By default only frames with a non-zero failure
// count emit.
func WithEmitOnStreak(enabled bool) Option {
	return func(s *Stabilizer) {
		s.emitOnStreak = enabled
	}
}

// New creates a Stabilizer with an empty history.
func New(opts ...Option) *Stabilizer {
	s := &Stabilizer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update feeds the circles detected in one frame.
//
// One circle is written to the history and counted as a success; no circle
// counts as a failure; several circles change nothing. After that, a failure
// count above FailureLimit clears the counters and the history. Otherwise a
// positive failure count emits the truncated mean of all history slots,
// including slots that were never written.
func (s *Stabilizer) Update(obs []Observation) Result {
	var res Result

	switch len(obs) {
	case 0:
		res.Outcome = Missed
		s.failures++
	case 1:
		res.Outcome = Recorded
		s.history[s.index] = obs[0]
		s.index = (s.index + 1) % HistorySize
		s.successes++
	default:
		res.Outcome = Ambiguous
	}

	if s.failures > FailureLimit {
		s.clear()
		res.Reset = true
		res.Signal = s.current
		return res
	}

	if s.failures > 0 || s.emitOnStreak {
		s.current = s.average()
		res.Emitted = true
	}
	res.Signal = s.current
	return res
}

// Current returns the most recently emitted signal. It is zero before the
// first emission and after a reset.
func (s *Stabilizer) Current() Signal {
	return s.current
}

// State returns a copy of the internal counters and history.
func (s *Stabilizer) State() State {
	return State{
		History:   s.history,
		Index:     s.index,
		Failures:  s.failures,
		Successes: s.successes,
	}
}

// Reset returns the stabilizer to its initial state, including the write index.
func (s *Stabilizer) Reset() {
	s.clear()
	s.index = 0
}

// clear is the failure-budget reset. The write index keeps its position.
func (s *Stabilizer) clear() {
	s.failures = 0
	s.successes = 0
	for i := range s.history {
		s.history[i] = Observation{}
	}
	s.current = Signal{}
}

func (s *Stabilizer) average() Signal {
	var sumX, sumY, sumR int
	for _, o := range s.history {
		sumX += o.X
		sumY += o.Y
		sumR += o.Radius
	}
	return Signal{
		X:      sumX / HistorySize,
		Y:      sumY / HistorySize,
		Radius: sumR / HistorySize,
	}
}
