package uba_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hausgeist/luftmetrics/internal/uba"
)

func TestComputeWindow(t *testing.T) {
	now := time.Date(2020, 1, 21, 17, 0, 0, 0, time.UTC)
	mark := time.Date(2020, 1, 21, 12, 0, 0, 0, time.UTC)

	from, to := uba.ComputeWindow(now, mark, 30)
	assert.Equal(t, mark.Add(-time.Minute), from)
	assert.Equal(t, now.Add(time.Minute), to)
}

func TestComputeWindow_UnsetMark(t *testing.T) {
	now := time.Date(2020, 1, 21, 17, 4, 30, 123456789, time.UTC)

	from, to := uba.ComputeWindow(now, time.Time{}, 30)

	wantMark := now.Add(-30 * 24 * time.Hour).Truncate(time.Minute)
	assert.Equal(t, wantMark.Add(-time.Minute), from)
	assert.Equal(t, now.Add(time.Minute), to)
	assert.Zero(t, from.Second())
	assert.Zero(t, from.Nanosecond())
}

func TestComputeWindow_StaleMarkReinitialized(t *testing.T) {
	now := time.Date(2020, 1, 21, 17, 0, 0, 0, time.UTC)
	mark := now.Add(-90 * 24 * time.Hour)

	from, _ := uba.ComputeWindow(now, mark, 30)

	// A mark beyond the retention horizon starts over from the horizon.
	horizon := now.Add(-30 * 24 * time.Hour).Truncate(time.Minute)
	assert.Equal(t, horizon.Add(-time.Minute), from)
}

func TestComputeWindow_FutureMarkClamped(t *testing.T) {
	now := time.Date(2020, 1, 21, 17, 0, 0, 0, time.UTC)
	mark := now.Add(10 * time.Minute)

	from, to := uba.ComputeWindow(now, mark, 30)
	assert.False(t, from.After(to))
	assert.Equal(t, to, from)
}
