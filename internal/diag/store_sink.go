package diag

import (
	"log"
	"sync"

	"github.com/ayusman/projmap/internal/store"
)

// DefaultBatchSize is how many records StoreSink buffers before writing.
const DefaultBatchSize = 30

// StoreSink appends records to the detection log of a session. Records are
// written in batches.
type StoreSink struct {
	mu        sync.Mutex
	repo      *store.DetectionRepository
	sessionID string
	batchSize int
	pending   []*store.Detection
	failed    int
}

// NewStoreSink creates a StoreSink for sessionID.
func NewStoreSink(repo *store.DetectionRepository, sessionID string, batchSize int) *StoreSink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &StoreSink{
		repo:      repo,
		sessionID: sessionID,
		batchSize: batchSize,
	}
}

// Detection converts r into a detection log row.
func Detection(sessionID string, r Record) *store.Detection {
	d := &store.Detection{
		SessionID:  sessionID,
		Seq:        r.Seq,
		CapturedAt: r.Time,
		Outcome:    string(r.Result.Outcome),
		Circles:    len(r.Shapes.Circles),
		Lines:      len(r.Shapes.Lines),
		SignalX:    r.Result.Signal.X,
		SignalY:    r.Result.Signal.Y,
		SignalR:    r.Result.Signal.Radius,
		Emitted:    r.Result.Emitted,
		Reset:      r.Result.Reset,
		Threshold:  float64(r.Threshold),
	}
	if len(r.Shapes.Circles) > 0 {
		c := r.Shapes.Circles[0]
		d.RawX, d.RawY, d.RawR = c.X, c.Y, c.Radius
	}
	return d
}

func (s *StoreSink) Record(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, Detection(s.sessionID, r))
	if len(s.pending) >= s.batchSize {
		s.flushLocked()
	}
}

// Flush writes any buffered records.
func (s *StoreSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *StoreSink) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}
	err := s.repo.CreateBatch(s.pending)
	if err != nil {
		s.failed += len(s.pending)
		log.Printf("diag: dropped %d detections: %v", len(s.pending), err)
	}
	s.pending = s.pending[:0]
	return err
}

// Failed returns the number of records that could not be written.
func (s *StoreSink) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Close flushes the remaining records.
func (s *StoreSink) Close() error {
	return s.Flush()
}
