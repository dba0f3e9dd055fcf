package stabilizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func one(x, y, r int) []Observation {
	return []Observation{{X: x, Y: y, Radius: r}}
}

func TestNew_Empty(t *testing.T) {
	s := New()
	st := s.State()

	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 0, st.Failures)
	assert.Equal(t, 0, st.Successes)
	for i, o := range st.History {
		assert.Equal(t, Observation{}, o, "slot %d", i)
	}
	assert.True(t, s.Current().IsZero())
}

func TestUpdate_WriteIndexWraps(t *testing.T) {
	s := New()
	for k := 1; k <= 12; k++ {
		s.Update(one(k, k, k))
		assert.Equal(t, k%HistorySize, s.State().Index, "after %d writes", k)
	}

	// Slots hold the last five writes in round-robin order.
	st := s.State()
	assert.Equal(t, Observation{X: 11, Y: 11, Radius: 11}, st.History[0])
	assert.Equal(t, Observation{X: 12, Y: 12, Radius: 12}, st.History[1])
	assert.Equal(t, Observation{X: 8, Y: 8, Radius: 8}, st.History[2])
}

func TestUpdate_UnwrittenSlotsAreZero(t *testing.T) {
	s := New()
	s.Update(one(10, 20, 30))
	s.Update(one(11, 21, 31))

	st := s.State()
	for i := 2; i < HistorySize; i++ {
		assert.Equal(t, Observation{}, st.History[i], "slot %d", i)
	}
}

func TestUpdate_Outcomes(t *testing.T) {
	t.Run("single detection records and leaves failures alone", func(t *testing.T) {
		s := New()
		s.Update(nil)
		s.Update(nil)
		before := s.State()

		res := s.Update(one(40, 50, 12))

		after := s.State()
		assert.Equal(t, Recorded, res.Outcome)
		assert.Equal(t, before.Failures, after.Failures)
		assert.Equal(t, before.Successes+1, after.Successes)
		assert.Equal(t, Observation{X: 40, Y: 50, Radius: 12}, after.History[before.Index])
	})

	t.Run("no detection counts a failure and keeps history", func(t *testing.T) {
		s := New()
		s.Update(one(1, 2, 3))
		before := s.State()

		res := s.Update(nil)

		after := s.State()
		assert.Equal(t, Missed, res.Outcome)
		assert.Equal(t, before.Failures+1, after.Failures)
		assert.Equal(t, before.Successes, after.Successes)
		assert.Equal(t, before.History, after.History)
		assert.Equal(t, before.Index, after.Index)
	})

	t.Run("several detections change nothing", func(t *testing.T) {
		s := New()
		s.Update(one(1, 2, 3))
		s.Update(nil)
		before := s.State()

		res := s.Update([]Observation{{X: 1, Y: 1, Radius: 10}, {X: 90, Y: 90, Radius: 20}})

		assert.Equal(t, Ambiguous, res.Outcome)
		assert.Equal(t, before, s.State())
	})
}

func TestUpdate_MeanIncludesEmptySlots(t *testing.T) {
	s := New()

	res := s.Update(one(10, 10, 5))
	assert.False(t, res.Emitted, "unbroken streak must not emit")
	res = s.Update(one(20, 20, 5))
	assert.False(t, res.Emitted)

	s.Update(nil)
	s.Update(nil)
	res = s.Update(nil)

	require.Equal(t, 3, s.State().Failures)
	assert.True(t, res.Emitted)
	assert.Equal(t, Signal{X: 6, Y: 6, Radius: 2}, res.Signal)
	assert.Equal(t, Signal{X: 6, Y: 6, Radius: 2}, s.Current())
}

func TestUpdate_TruncatesTowardZero(t *testing.T) {
	s := New()
	s.Update(nil)
	res := s.Update(one(4, 9, 14))

	// 4/5, 9/5, 14/5
	assert.Equal(t, Signal{X: 0, Y: 1, Radius: 2}, res.Signal)
}

func TestUpdate_StreakDoesNotEmit(t *testing.T) {
	s := New()
	for i := 0; i < 20; i++ {
		res := s.Update(one(100, 80, 40))
		assert.False(t, res.Emitted)
	}
	assert.True(t, s.Current().IsZero())
}

func TestUpdate_EmitOnStreak(t *testing.T) {
	s := New(WithEmitOnStreak(true))
	res := s.Update(one(100, 80, 40))

	assert.True(t, res.Emitted)
	assert.Equal(t, Signal{X: 20, Y: 16, Radius: 8}, res.Signal)

	for i := 0; i < 4; i++ {
		res = s.Update(one(100, 80, 40))
	}
	assert.Equal(t, Signal{X: 100, Y: 80, Radius: 40}, res.Signal)
}

func TestUpdate_ResetAfterSustainedFailure(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s.Update(one(50, 60, 20))
	}

	for i := 1; i <= FailureLimit; i++ {
		res := s.Update(nil)
		require.False(t, res.Reset, "frame %d", i)
		require.True(t, res.Emitted, "frame %d", i)
		require.Equal(t, i, s.State().Failures)
	}

	res := s.Update(nil)
	assert.True(t, res.Reset)
	assert.False(t, res.Emitted)
	assert.True(t, res.Signal.IsZero())

	st := s.State()
	assert.Equal(t, 0, st.Failures)
	assert.Equal(t, 0, st.Successes)
	for i, o := range st.History {
		assert.Equal(t, Observation{}, o, "slot %d", i)
	}
	assert.True(t, s.Current().IsZero())
}

func TestUpdate_ResetFromEmpty(t *testing.T) {
	s := New()
	var res Result
	for i := 0; i < FailureLimit+1; i++ {
		res = s.Update(nil)
	}

	assert.True(t, res.Reset)
	assert.Equal(t, 0, s.State().Failures)
	assert.Equal(t, 0, s.State().Successes)
}

func TestUpdate_ResetKeepsWriteIndex(t *testing.T) {
	s := New()
	s.Update(one(1, 1, 1))
	s.Update(one(2, 2, 2))
	for i := 0; i < FailureLimit+1; i++ {
		s.Update(nil)
	}

	assert.Equal(t, 2, s.State().Index)

	s.Update(one(7, 7, 7))
	assert.Equal(t, Observation{X: 7, Y: 7, Radius: 7}, s.State().History[2])
}

func TestUpdate_FailuresSurviveSuccesses(t *testing.T) {
	s := New()
	s.Update(nil)
	for i := 0; i < 10; i++ {
		res := s.Update(one(30, 30, 15))
		assert.True(t, res.Emitted, "a prior failure keeps the averaging branch active")
	}
	assert.Equal(t, 1, s.State().Failures)
	assert.Equal(t, 10, s.State().Successes)
	assert.Equal(t, Signal{X: 30, Y: 30, Radius: 15}, s.Current())
}

func TestUpdate_AmbiguousRetainsSignal(t *testing.T) {
	s := New()
	s.Update(one(50, 50, 25))
	s.Update(nil)
	prev := s.Current()

	res := s.Update([]Observation{{X: 1}, {X: 2}})

	// The failure count is still positive so the same average is re-emitted.
	assert.True(t, res.Emitted)
	assert.Equal(t, prev, res.Signal)
}

func TestReset(t *testing.T) {
	s := New()
	s.Update(one(1, 2, 3))
	s.Update(nil)
	s.Reset()

	assert.Equal(t, State{}, s.State())
	assert.True(t, s.Current().IsZero())
}
