// Package diag records per-frame detection diagnostics and summarizes them.
package diag

import (
	"fmt"
	"io"
	"time"

	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/stabilizer"
)

// Record is what one pipeline pass produced.
type Record struct {
	Seq       uint64
	Time      time.Time
	Shapes    detector.Shapes
	Threshold float32
	Result    stabilizer.Result
}

// Sink receives a Record for every processed frame. Implementations are
// called from the frame loop and must not block for long.
type Sink interface {
	Record(r Record)
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(Record) {}
func (Nop) Close() error { return nil }

// LogSink writes one "X:%d, Y:%d, R:%d" line per raw circle.
type LogSink struct {
	w io.Writer
}

// NewLogSink creates a LogSink writing to w.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{w: w}
}

func (s *LogSink) Record(r Record) {
	for _, c := range r.Shapes.Circles {
		fmt.Fprintf(s.w, "X:%d, Y:%d, R:%d\n", c.X, c.Y, c.Radius)
	}
}

func (s *LogSink) Close() error { return nil }

// Multi fans records out to several sinks.
type Multi []Sink

func (m Multi) Record(r Record) {
	for _, s := range m {
		s.Record(r)
	}
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
