package cronx

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := New(nil)
	cancel, err := s.Schedule("not a schedule", func() {})
	require.Error(t, err)
	require.Nil(t, cancel)
	require.Error(t, Validate("61 * * * *"))
	require.NoError(t, Validate("0 2 * * *"))
	require.NoError(t, Validate("@every 1h"))
}

func TestScheduleRunsJob(t *testing.T) {
	t.Parallel()

	s := New(nil)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var runs atomic.Int32
	cancel, err := s.Schedule("@every 1s", func() { runs.Add(1) })
	require.NoError(t, err)
	defer cancel()

	require.False(t, s.NextRun().IsZero())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestCancelStopsFurtherRuns(t *testing.T) {
	t.Parallel()

	s := New(nil)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var runs atomic.Int32
	cancel, err := s.Schedule("@every 1s", func() { runs.Add(1) })
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	cancel()
	require.True(t, s.NextRun().IsZero())

	time.Sleep(50 * time.Millisecond)
	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	require.Equal(t, after, runs.Load())
}

func TestPanickingJobIsRecovered(t *testing.T) {
	t.Parallel()

	s := New(nil)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var runs atomic.Int32
	cancel, err := s.Schedule("@every 1s", func() {
		runs.Add(1)
		panic("boom")
	})
	require.NoError(t, err)
	defer cancel()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 20*time.Millisecond)
}

func TestStopWithoutJobs(t *testing.T) {
	t.Parallel()

	s := New(nil)
	require.NoError(t, s.Stop(context.Background()))
}
