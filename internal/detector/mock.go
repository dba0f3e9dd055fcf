package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/params"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, frame by frame.
type MockDetector struct {
	script []Shapes
	next   int
	shapes Shapes
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetCircles sets the circles that will be returned by every Detect call.
func (m *MockDetector) SetCircles(circles ...Circle) {
	m.shapes = Shapes{Circles: circles}
}

// SetShapes sets the shapes that will be returned by every Detect call.
func (m *MockDetector) SetShapes(s Shapes) {
	m.shapes = s
}

// Script queues per-call results. Once exhausted, Detect falls back to the
// shapes set with SetCircles or SetShapes.
func (m *MockDetector) Script(frames ...Shapes) {
	m.script = frames
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns the number of Detect calls made.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the next scripted shapes, the configured shapes, or error.
func (m *MockDetector) Detect(edges gocv.Mat, p params.Params) (Shapes, error) {
	m.calls++
	if m.err != nil {
		return Shapes{}, m.err
	}
	if m.next < len(m.script) {
		s := m.script[m.next]
		m.next++
		return s, nil
	}
	return m.shapes, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
