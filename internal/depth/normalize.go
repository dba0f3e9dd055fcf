package depth

import (
	"encoding/binary"
	"math"

	"gocv.io/x/gocv"
)

// NormalizationRangeMM is the calibration constant mapping depth in
// millimetres onto the 8-bit intensity scale: 0mm -> 255, 8000mm -> 0.
const NormalizationRangeMM = 8000

// Intensity converts one depth sample to an 8-bit intensity using
// clamp(255 - d*255/8000, 0, 255), rounded to nearest.
func Intensity(d uint16) uint8 {
	v := 255 - float64(d)*255/NormalizationRangeMM
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

// ReliableIntensity is Intensity for samples inside [min, max] and 0 otherwise.
func ReliableIntensity(d, min, max uint16) uint8 {
	if d < min || d > max {
		return 0
	}
	return Intensity(d)
}

// Normalize converts the frame into an 8-bit single channel image in dst using
// the fixed linear scale. Reliability bounds are not consulted.
// It returns false without touching dst when the frame is nil or does not have
// the sensor dimensions.
func Normalize(f *Frame, dst *gocv.Mat) bool {
	if !f.Valid() || dst == nil {
		return false
	}

	raw, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV16UC1, frameBytes(f))
	if err != nil {
		return false
	}
	defer raw.Close()

	raw.ConvertToWithParams(dst, gocv.MatTypeCV8U, -255.0/NormalizationRangeMM, 255)
	return true
}

// NormalizeReliable is the bound-aware variant of Normalize: samples outside
// [min, max] are written as 0, the rest use the same scale.
func NormalizeReliable(f *Frame, min, max uint16, dst *gocv.Mat) bool {
	if !f.Valid() || dst == nil {
		return false
	}

	n := f.Width * f.Height
	pix := make([]byte, n)
	for i := 0; i < n; i++ {
		pix[i] = ReliableIntensity(f.Data[i], min, max)
	}

	out, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return false
	}
	defer out.Close()

	out.CopyTo(dst)
	return true
}

// frameBytes lays the samples out as little-endian bytes for a CV_16UC1 Mat.
func frameBytes(f *Frame) []byte {
	n := f.Width * f.Height
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], f.Data[i])
	}
	return buf
}

// FromMat builds a Frame from a CV_16UC1 Mat, as produced by a depth device
// or a 16-bit PNG recording.
func FromMat(m gocv.Mat) (*Frame, bool) {
	if m.Empty() || m.Type() != gocv.MatTypeCV16UC1 {
		return nil, false
	}

	f := &Frame{
		Width:       m.Cols(),
		Height:      m.Rows(),
		Data:        make([]uint16, m.Cols()*m.Rows()),
		MaxReliable: MaxDistance,
	}

	raw := m.ToBytes()
	for i := range f.Data {
		f.Data[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return f, true
}

// ToMat converts the frame into a new CV_16UC1 Mat. The caller owns the Mat.
func ToMat(f *Frame) (gocv.Mat, error) {
	raw, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV16UC1, frameBytes(f))
	if err != nil {
		return gocv.NewMat(), err
	}
	defer raw.Close()

	// Detach from the Go byte slice backing raw.
	return raw.Clone(), nil
}
