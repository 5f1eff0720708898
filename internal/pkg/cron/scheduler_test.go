package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDailyRunLaterToday(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, 6, 1, 10, 15, 0, 0, loc)

	next := nextDailyRun(now, 23)

	assert.Equal(t, time.Date(2026, 6, 1, 23, 0, 0, 0, loc), next)
}

func TestNextDailyRunRollsToTomorrow(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("WIB", 7*3600)

	// Past the hour, and exactly on the hour, both roll over.
	for _, now := range []time.Time{
		time.Date(2026, 6, 1, 23, 30, 0, 0, loc),
		time.Date(2026, 6, 1, 23, 0, 0, 0, loc),
	} {
		next := nextDailyRun(now, 23)
		assert.Equal(t, time.Date(2026, 6, 2, 23, 0, 0, 0, loc), next, now)
	}
}

func TestNextDailyRunCrossesMonthBoundary(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, 6, 30, 23, 45, 0, 0, loc)

	next := nextDailyRun(now, 23)

	assert.Equal(t, time.Date(2026, 7, 1, 23, 0, 0, 0, loc), next)
}

func TestRunOnceExecutesAllJobs(t *testing.T) {
	t.Parallel()
	s := NewScheduler(time.UTC)

	var ran []string
	s.AddIntervalJob("sweep", time.Hour, func(ctx context.Context) error {
		ran = append(ran, "sweep")
		return nil
	})
	s.AddDailyJob("mark-absent", 23, func(ctx context.Context) error {
		ran = append(ran, "mark-absent")
		return nil
	})

	s.RunOnce(context.Background())

	assert.Equal(t, []string{"sweep", "mark-absent"}, ran)
}

func TestRunOnceContinuesPastFailure(t *testing.T) {
	t.Parallel()
	s := NewScheduler(time.UTC)

	ran := false
	s.AddDailyJob("failing", 1, func(ctx context.Context) error {
		return errors.New("boom")
	})
	s.AddDailyJob("after", 2, func(ctx context.Context) error {
		ran = true
		return nil
	})

	s.RunOnce(context.Background())

	require.True(t, ran)
}

func TestStopWaitsForJobs(t *testing.T) {
	t.Parallel()
	s := NewScheduler(time.UTC)

	started := make(chan struct{})
	s.AddIntervalJob("ticker", time.Hour, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("interval job never ran on start")
	}
	s.Stop()
}
