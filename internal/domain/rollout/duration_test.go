package rollout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func pause(from, to int) Pause {
	end := day(to)
	return Pause{ProjectID: uuid.New(), StartAt: day(from), EndAt: &end}
}

func openPause(from int) Pause {
	return Pause{ProjectID: uuid.New(), StartAt: day(from)}
}

func TestNetProgressDays(t *testing.T) {
	now := day(100)

	t.Run("Nil start yields zero", func(t *testing.T) {
		end := day(10)
		assert.Equal(t, 0, NetProgressDays(nil, &end, nil, now))
	})

	t.Run("No end uses now as reference", func(t *testing.T) {
		start := day(0)
		assert.Equal(t, 100, NetProgressDays(&start, nil, nil, now))
	})

	t.Run("End before start floors at zero", func(t *testing.T) {
		start := day(10)
		end := day(5)
		assert.Equal(t, 0, NetProgressDays(&start, &end, nil, now))
	})

	t.Run("Single inside pause subtracts its exact length", func(t *testing.T) {
		start := day(0)
		end := day(30)
		got := NetProgressDays(&start, &end, []Pause{pause(10, 15)}, now)
		assert.Equal(t, 25, got)
	})

	t.Run("Pause entirely after window is ignored", func(t *testing.T) {
		start := day(0)
		end := day(30)
		got := NetProgressDays(&start, &end, []Pause{pause(40, 50)}, now)
		assert.Equal(t, 30, got)
	})

	t.Run("Pause entirely before window is ignored", func(t *testing.T) {
		start := day(20)
		end := day(50)
		got := NetProgressDays(&start, &end, []Pause{pause(0, 10)}, now)
		assert.Equal(t, 30, got)
	})

	t.Run("Pause straddling the window is clipped", func(t *testing.T) {
		start := day(10)
		end := day(40)
		got := NetProgressDays(&start, &end, []Pause{pause(0, 20)}, now)
		assert.Equal(t, 20, got)
	})

	t.Run("Open pause runs until now", func(t *testing.T) {
		start := day(0)
		got := NetProgressDays(&start, nil, []Pause{openPause(90)}, now)
		assert.Equal(t, 90, got)
	})

	t.Run("Overlapping pauses are merged, not double counted", func(t *testing.T) {
		start := day(0)
		end := day(30)
		// 10-20 and 15-25 cover 15 distinct days
		got := NetProgressDays(&start, &end, []Pause{pause(10, 20), pause(15, 25)}, now)
		assert.Equal(t, 15, got)
	})

	t.Run("Identical duplicate pauses count once", func(t *testing.T) {
		start := day(0)
		end := day(30)
		got := NetProgressDays(&start, &end, []Pause{pause(5, 10), pause(5, 10)}, now)
		assert.Equal(t, 25, got)
	})

	t.Run("Pauses exceeding the window never drive net below zero", func(t *testing.T) {
		start := day(0)
		end := day(10)
		got := NetProgressDays(&start, &end, []Pause{pause(0, 10), pause(0, 10)}, now)
		assert.Equal(t, 0, got)
	})

	t.Run("Net never exceeds raw elapsed", func(t *testing.T) {
		start := day(0)
		end := day(45)
		for _, ps := range [][]Pause{nil, {pause(1, 2)}, {pause(0, 50)}, {openPause(3)}} {
			got := NetProgressDays(&start, &end, ps, now)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 45)
		}
	})
}

func TestPauseClose(t *testing.T) {
	p, err := NewPause(uuid.New(), day(0), "store renovation")
	require.NoError(t, err)
	require.True(t, p.IsOpen())

	t.Run("End before start rejected", func(t *testing.T) {
		assert.ErrorIs(t, p.Close(day(-1)), ErrPauseEndBeforeStart)
	})

	t.Run("Close succeeds once", func(t *testing.T) {
		require.NoError(t, p.Close(day(5)))
		assert.False(t, p.IsOpen())
		assert.ErrorIs(t, p.Close(day(6)), ErrPauseAlreadyClosed)
	})
}
