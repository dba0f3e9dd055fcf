package capture

import (
	"sync"

	"github.com/ayusman/projmap/internal/depth"
)

// MockSource plays back in-memory frames for testing
type MockSource struct {
	frames   []*depth.Frame
	index    int
	loop     bool
	pending  *depth.Frame
	mu       sync.Mutex
	running  bool
	acquired int
}

func NewMockSource(frames []*depth.Frame, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// TryAcquireLatest returns a pushed frame if there is one, otherwise the next
// frame of the sequence.
func (s *MockSource) TryAcquireLatest() (*depth.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, false
	}

	if s.pending != nil {
		f := s.pending
		s.pending = nil
		s.acquired++
		return f, true
	}

	if len(s.frames) == 0 {
		return nil, false
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, false
		}
		s.index = 0
	}

	f := s.frames[s.index]
	s.index++
	s.acquired++

	return f, true
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Push makes f the next frame handed out, replacing any frame not yet taken
func (s *MockSource) Push(f *depth.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = f
}

// SetFrames replaces the frame sequence
func (s *MockSource) SetFrames(frames []*depth.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Acquired returns how many frames have been handed out
func (s *MockSource) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}
