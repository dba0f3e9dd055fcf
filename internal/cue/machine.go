package cue

import (
	"time"

	"github.com/ayusman/projmap/internal/stabilizer"
)

// Phase timing in frames.
const (
	// RingFrames is how long the ring rises after the charge completes.
	RingFrames = 500
	// WhiteFrames is the length of the white fade in and out.
	WhiteFrames = 800
	// RotateStayFrames is how long the ring stays before flying off.
	RotateStayFrames = 3000
	// FlyAccel divides the squared frame count of the fly-off.
	FlyAccel = 10000.0
)

// Tone defaults.
const (
	// StartFrequency is the tone frequency before any charge.
	StartFrequency = 220
	// DefaultToneDuration is the length of one charge tone.
	DefaultToneDuration = 100 * time.Millisecond
	// FullPercent is the charge at which the ring starts.
	FullPercent = 100
)

// Phase names the visible stage of the cue.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCharging Phase = "charging"
	PhaseRing     Phase = "ring"
	PhaseWhite    Phase = "white"
	PhaseFlyOff   Phase = "fly_off"
)

// EventKind identifies a cue event.
type EventKind string

const (
	// EventTone fires for every charge step; a tone should be played.
	EventTone EventKind = "tone"
	// EventFull fires when the charge reaches 100 percent.
	EventFull EventKind = "full"
	// EventFinish fires when the ring phase ends and the white fade starts.
	EventFinish EventKind = "finish"
)

// Event is emitted by Step for consumers that play sounds or run hooks.
type Event struct {
	Kind      EventKind         `json:"kind"`
	Percent   int               `json:"percent"`
	Frequency int               `json:"frequency"`
	Signal    stabilizer.Signal `json:"signal"`
	Time      time.Time         `json:"time"`
}

// State is what a renderer needs for one frame.
type State struct {
	Phase      Phase   `json:"phase"`
	Percent    int     `json:"percent"`
	Frequency  int     `json:"frequency"`
	Center     Point   `json:"center"`
	Radius     float64 `json:"radius"`
	ShowCircle bool    `json:"show_circle"`
	// Background is the grey level of the cleared frame, 0 (black) to 1.
	Background float64 `json:"background"`
	RingOffset float64 `json:"ring_offset"`
	FlyOffset  float64 `json:"fly_offset"`
	Ring       int     `json:"ring"`
	White      int     `json:"white"`
	Rotate     int     `json:"rotate"`
}

// Machine advances the cue once per rendered frame. It is not safe for
// concurrent use.
type Machine struct {
	projector    Projector
	toneDuration time.Duration

	percent   int
	frequency int
	ring      int
	white     int
	rotate    int
	toneEnd   time.Time
}

// NewMachine creates a Machine. A non-positive tone duration selects the
// default.
func NewMachine(p Projector, toneDuration time.Duration) *Machine {
	if toneDuration <= 0 {
		toneDuration = DefaultToneDuration
	}
	return &Machine{
		projector:    p,
		toneDuration: toneDuration,
		frequency:    StartFrequency,
	}
}

// Step advances one frame using the current signal. A signal with zero
// radius cancels the cue.
func (m *Machine) Step(sig stabilizer.Signal, now time.Time) (State, []Event) {
	var events []Event

	center, radius := m.projector.Map(sig)
	background := m.background()
	showCircle := m.white <= WhiteFrames/8

	if sig.Radius == 0 {
		m.percent = 0
		m.ring = 0
		m.white = 0
		m.rotate = 0
	}

	if sig.Radius != 0 && m.percent < FullPercent && !now.Before(m.toneEnd) {
		m.percent++
		m.frequency = Frequency(m.percent)
		m.toneEnd = now.Add(m.toneDuration)
		events = append(events, m.event(EventTone, sig, now))

		if m.percent == FullPercent {
			m.ring = 1
			events = append(events, m.event(EventFull, sig, now))
		}
	}

	fly := 0.0
	if m.rotate > RotateStayFrames {
		d := float64(m.rotate - RotateStayFrames)
		fly = d * d / FlyAccel
	}
	ringOffset := 20*(1-float64(m.ring)/RingFrames) + fly

	if m.ring > 0 {
		if m.ring < RingFrames {
			m.ring++
		} else if m.ring == RingFrames {
			m.ring++
			m.white++
			events = append(events, m.event(EventFinish, sig, now))
		}
	}

	if m.white > 0 {
		m.white++
		if m.white > WhiteFrames {
			m.rotate++
		}
	}

	return State{
		Phase:      m.phase(),
		Percent:    m.percent,
		Frequency:  m.frequency,
		Center:     center,
		Radius:     radius,
		ShowCircle: showCircle,
		Background: background,
		RingOffset: ringOffset,
		FlyOffset:  fly,
		Ring:       m.ring,
		White:      m.white,
		Rotate:     m.rotate,
	}, events
}

// Reset returns the machine to idle.
func (m *Machine) Reset() {
	m.percent = 0
	m.frequency = StartFrequency
	m.ring = 0
	m.white = 0
	m.rotate = 0
	m.toneEnd = time.Time{}
}

func (m *Machine) event(kind EventKind, sig stabilizer.Signal, now time.Time) Event {
	return Event{Kind: kind, Percent: m.percent, Frequency: m.frequency, Signal: sig, Time: now}
}

// background fades up over the first half of the white phase and back down
// over the second half.
func (m *Machine) background() float64 {
	half := float64(WhiteFrames) / 2
	switch {
	case m.white == 0:
		return 0
	case float64(m.white) < half:
		return float64(m.white) / half
	default:
		g := 1 - (float64(m.white)-half)/half
		if g < 0 {
			return 0
		}
		return g
	}
}

func (m *Machine) phase() Phase {
	switch {
	case m.rotate > RotateStayFrames:
		return PhaseFlyOff
	case m.white > 0:
		return PhaseWhite
	case m.ring > 0:
		return PhaseRing
	case m.percent > 0:
		return PhaseCharging
	default:
		return PhaseIdle
	}
}

// Frequency is the charge tone pitch in Hz for a percentage.
func Frequency(percent int) int {
	return int(20 + 50*float64(percent)/100)
}
