package diag

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/stabilizer"
	"github.com/ayusman/projmap/internal/store"
)

func TestLogLimiter(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(0, 0)

	l := NewLogLimiter(time.Second)
	l.SetLogger(log.New(&buf, "", 0))
	l.nowFunc = func() time.Time { return now }

	l.Printf("no frame")
	l.Printf("no frame")
	l.Printf("no frame")
	assert.Equal(t, 2, l.Suppressed())

	l.Printf("bad size")
	now = now.Add(2 * time.Second)
	l.Printf("bad size")
	l.Printf("no frame")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"no frame", "bad size", "bad size", "no frame"}, lines)
	assert.Equal(t, 0, l.Suppressed())
}

func TestLogLimiter_ReportsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(0, 0)

	l := NewLogLimiter(time.Second)
	l.SetLogger(log.New(&buf, "", 0))
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		l.Print("no frame")
	}
	now = now.Add(time.Second)
	l.Print("no frame")

	assert.Equal(t, "no frame\nno frame (suppressed 3 repeats)\n", buf.String())
}

func TestLogLimiter_KeepsUpstreamNotice(t *testing.T) {
	src, err := os.ReadFile("loglimiter.go")
	require.NoError(t, err)

	for _, want := range []string{
		"github.com/TheCacophonyProject/thermal-recorder",
		"Copyright (C) 2019, The Cacophony Project",
		"GNU General Public License",
	} {
		assert.Contains(t, string(src), want)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(&buf)

	sink.Record(Record{Shapes: detector.Shapes{Circles: []detector.Circle{
		{X: 100, Y: 75, Radius: 40},
		{X: 10, Y: 20, Radius: 30},
	}}})
	sink.Record(Record{})

	assert.Equal(t, "X:100, Y:75, R:40\nX:10, Y:20, R:30\n", buf.String())
	assert.NoError(t, sink.Close())
}

type countingSink struct {
	records int
	closed  bool
}

func (c *countingSink) Record(Record) { c.records++ }

func (c *countingSink) Close() error {
	c.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, Nop{}, b}

	m.Record(Record{})
	m.Record(Record{})
	require.NoError(t, m.Close())

	assert.Equal(t, 2, a.records)
	assert.Equal(t, 2, b.records)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "diag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSink(t *testing.T) {
	s := newStore(t)
	sess, err := s.Sessions().Start("mock", params.DefaultParams())
	require.NoError(t, err)

	sink := NewStoreSink(s.Detections(), sess.ID, 2)

	hit := Record{
		Seq:       1,
		Time:      time.Now(),
		Shapes:    detector.Shapes{Circles: []detector.Circle{{X: 100, Y: 75, Radius: 40}}},
		Threshold: 170,
		Result:    stabilizer.Result{Outcome: stabilizer.Recorded},
	}
	miss := Record{
		Seq:    2,
		Time:   time.Now(),
		Result: stabilizer.Result{Outcome: stabilizer.Missed, Emitted: true, Signal: stabilizer.Signal{X: 20, Y: 15, Radius: 8}},
	}

	sink.Record(hit)
	n, _ := s.Detections().CountBySession(sess.ID)
	assert.Equal(t, 0, n, "first record stays buffered")

	sink.Record(miss)
	n, _ = s.Detections().CountBySession(sess.ID)
	assert.Equal(t, 2, n, "batch written when full")

	sink.Record(Record{Seq: 3, Time: time.Now(), Result: stabilizer.Result{Outcome: stabilizer.Missed}})
	require.NoError(t, sink.Close())

	got, err := s.Detections().ListBySession(sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "recorded", got[0].Outcome)
	assert.Equal(t, 100, got[0].RawX)
	assert.Equal(t, 40, got[0].RawR)
	assert.InDelta(t, 170, got[0].Threshold, 0.001)
	assert.True(t, got[1].Emitted)
	assert.Equal(t, 8, got[1].SignalR)
	assert.Equal(t, 0, sink.Failed())
}

func TestStoreSink_UnknownSession(t *testing.T) {
	s := newStore(t)
	sink := NewStoreSink(s.Detections(), "missing", 1)

	sink.Record(Record{Time: time.Now(), Result: stabilizer.Result{Outcome: stabilizer.Missed}})
	assert.Equal(t, 1, sink.Failed())
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Stats{}, Summarize(nil))
	})

	t.Run("mixed session", func(t *testing.T) {
		ds := []store.Detection{
			{Outcome: "recorded", RawX: 100, RawY: 70, RawR: 38},
			{Outcome: "missed", Emitted: true},
			{Outcome: "missed", Emitted: true},
			{Outcome: "recorded", RawX: 102, RawY: 74, RawR: 42},
			{Outcome: "ambiguous"},
			{Outcome: "missed", Emitted: true, Reset: true},
		}

		s := Summarize(ds)

		assert.Equal(t, 6, s.Frames)
		assert.Equal(t, 2, s.Recorded)
		assert.Equal(t, 3, s.Missed)
		assert.Equal(t, 1, s.Ambiguous)
		assert.Equal(t, 3, s.Emitted)
		assert.Equal(t, 1, s.Resets)
		assert.Equal(t, 2, s.LongestMiss)
		assert.InDelta(t, 2.0/6.0, s.HitRate, 1e-9)
		assert.InDelta(t, 40, s.RadiusMean, 1e-9)
		// sample standard deviation of {38, 42}
		assert.InDelta(t, 2.828427, s.RadiusStdDev, 1e-6)
		assert.InDelta(t, 1.414214, s.JitterX, 1e-6)
		assert.InDelta(t, 2.828427, s.JitterY, 1e-6)
	})

	t.Run("single hit has no spread", func(t *testing.T) {
		s := Summarize([]store.Detection{{Outcome: "recorded", RawR: 40}})
		assert.Equal(t, 40.0, s.RadiusMean)
		assert.Equal(t, 0.0, s.RadiusStdDev)
	})
}
