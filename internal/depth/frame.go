// Package depth provides depth frame types and the conversion from raw 16-bit
// depth samples to 8-bit intensity images.
package depth

import "time"

// Sensor frame geometry.
const (
	// Width is the depth frame width in pixels.
	Width = 512
	// Height is the depth frame height in pixels.
	Height = 424
	// MaxDistance is the widest representable depth, used in place of the
	// sensor-reported maximum reliable distance.
	MaxDistance = 0xFFFF
)

// Frame is a single depth frame in millimetres. A zero sample is invalid.
type Frame struct {
	Width       int
	Height      int
	Data        []uint16
	MinReliable uint16
	MaxReliable uint16
	Seq         uint64
	Timestamp   time.Time
}

// NewFrame allocates a zeroed frame with the sensor dimensions.
func NewFrame() *Frame {
	return &Frame{
		Width:       Width,
		Height:      Height,
		Data:        make([]uint16, Width*Height),
		MaxReliable: MaxDistance,
		Timestamp:   time.Now(),
	}
}

// Valid reports whether the frame has the expected sensor dimensions and
// enough samples to cover them.
func (f *Frame) Valid() bool {
	if f == nil || f.Data == nil {
		return false
	}
	if f.Width != Width || f.Height != Height {
		return false
	}
	return len(f.Data) >= Width*Height
}

// At returns the sample at column x, row y.
func (f *Frame) At(x, y int) uint16 {
	return f.Data[y*f.Width+x]
}

// Set stores a sample at column x, row y.
func (f *Frame) Set(x, y int, v uint16) {
	f.Data[y*f.Width+x] = v
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Data = make([]uint16, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}
