package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/depth"
)

// SaveFrame writes f to path as a 16-bit single channel PNG.
func SaveFrame(f *depth.Frame, path string) error {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height {
		return fmt.Errorf("save %s: incomplete frame", path)
	}

	m, err := depth.ToMat(f)
	if err != nil {
		return err
	}
	defer m.Close()

	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("write depth frame to %s failed", path)
	}
	return nil
}

// LoadFrame reads a 16-bit PNG written by SaveFrame.
func LoadFrame(path string) (*depth.Frame, error) {
	m := gocv.IMRead(path, gocv.IMReadAnyDepth)
	defer m.Close()

	if m.Empty() {
		return nil, fmt.Errorf("read depth frame %s failed", path)
	}
	f, ok := depth.FromMat(m)
	if !ok {
		return nil, fmt.Errorf("%s is not a 16-bit depth image", path)
	}
	return f, nil
}

// ReplaySource plays back a directory of recorded depth PNGs in name order.
// Every call to TryAcquireLatest yields the next frame.
type ReplaySource struct {
	dir     string
	loop    bool
	paths   []string
	index   int
	seq     uint64
	mu      sync.Mutex
	running bool
}

// NewReplaySource creates a ReplaySource over dir.
func NewReplaySource(dir string, loop bool) *ReplaySource {
	return &ReplaySource{dir: dir, loop: loop}
}

// Open lists the recording. It fails when the directory holds no PNG files.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	if len(paths) == 0 {
		return fmt.Errorf("open recording: no png frames in %s", s.dir)
	}
	sort.Strings(paths)

	s.paths = paths
	s.index = 0
	s.running = true
	return nil
}

// TryAcquireLatest loads the next recorded frame. Unreadable files are
// skipped.
func (s *ReplaySource) TryAcquireLatest() (*depth.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, false
	}

	for attempts := 0; attempts < len(s.paths); attempts++ {
		if s.index >= len(s.paths) {
			if !s.loop {
				return nil, false
			}
			s.index = 0
		}

		path := s.paths[s.index]
		s.index++

		f, err := LoadFrame(path)
		if err != nil {
			continue
		}
		s.seq++
		f.Seq = s.seq
		f.Timestamp = time.Now()
		f.MinReliable = DefaultMinReliable
		f.MaxReliable = depth.MaxDistance
		return f, true
	}
	return nil, false
}

// Len returns the number of frames in the recording.
func (s *ReplaySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Close stops playback.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// IsOpen returns true while the recording is open.
func (s *ReplaySource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
