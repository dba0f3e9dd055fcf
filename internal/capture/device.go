package capture

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/depth"
)

// DefaultMinReliable is the near limit of the depth sensor in millimetres.
// The OpenNI2 backend exposes no capture property for it. The far limit is
// always widened to depth.MaxDistance.
const DefaultMinReliable = 500

// readRetryDelay is how long the reader waits after a failed read.
const readRetryDelay = 50 * time.Millisecond

// DeviceSource reads depth maps from an OpenNI2 device. A reader goroutine
// keeps only the newest frame, so TryAcquireLatest never waits on the device.
type DeviceSource struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	latest   *depth.Frame
	seq      uint64
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDeviceSource creates a DeviceSource for the given OpenNI2 device index.
func NewDeviceSource(deviceID int) *DeviceSource {
	return &DeviceSource{deviceID: deviceID}
}

// Open opens the device and starts the reader goroutine.
func (s *DeviceSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCaptureWithAPI(s.deviceID, gocv.VideoCaptureOpenNI2)
	if err != nil {
		return fmt.Errorf("open depth device %d: %w", s.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open depth device %d: device not available", s.deviceID)
	}

	s.capture = capture
	s.running = true
	s.latest = nil
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.read(capture, s.stopCh, s.doneCh)

	return nil
}

// read grabs depth maps until stopCh is closed. With the OpenNI2 backend the
// default retrieve channel is the 16-bit depth map in millimetres.
func (s *DeviceSource) read(capture *gocv.VideoCapture, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if ok := capture.Read(&mat); !ok || mat.Empty() {
			time.Sleep(readRetryDelay)
			continue
		}

		f, ok := depth.FromMat(mat)
		if !ok {
			log.Printf("capture: unexpected depth map %dx%d type %v", mat.Cols(), mat.Rows(), mat.Type())
			time.Sleep(readRetryDelay)
			continue
		}
		f.MinReliable = DefaultMinReliable
		f.MaxReliable = depth.MaxDistance
		s.publish(f)
	}
}

// publish replaces the latest slot with f.
func (s *DeviceSource) publish(f *depth.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	f.Seq = s.seq
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	s.latest = f
}

// TryAcquireLatest hands out the newest frame once.
func (s *DeviceSource) TryAcquireLatest() (*depth.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.latest == nil {
		return nil, false
	}
	f := s.latest
	s.latest = nil
	return f, true
}

// Close stops the reader and releases the device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	if !s.running || s.capture == nil {
		s.running = false
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	capture := s.capture
	s.capture = nil
	s.latest = nil
	s.mu.Unlock()

	<-doneCh
	return capture.Close()
}

// IsOpen returns true if the device is open and being read.
func (s *DeviceSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
