package batch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerOnCleanSchedulerIsNoop(t *testing.T) {
	calls := 0
	s := New(func() { calls++ })
	require.False(t, s.Trigger())
	require.Zero(t, calls)
	require.False(t, s.Dirty())
}

func TestManyMarksOneFlush(t *testing.T) {
	var applied []int
	var seen []int
	s := New(func() { seen = append([]int(nil), applied...) })

	for i := 0; i < 10; i++ {
		applied = append(applied, i)
		s.Mark()
	}
	require.True(t, s.Dirty())
	require.True(t, s.Trigger())
	require.False(t, s.Trigger())
	require.Len(t, seen, 10)
	require.Equal(t, uint64(1), s.Flushes())
}

func TestMarkDuringFlushSchedulesAnother(t *testing.T) {
	var s *Scheduler
	calls := 0
	s = New(func() {
		calls++
		if calls == 1 {
			s.Mark()
		}
	})

	s.Mark()
	require.True(t, s.Trigger())
	require.True(t, s.Dirty())
	require.True(t, s.Trigger())
	require.False(t, s.Trigger())
	require.Equal(t, 2, calls)
}

func TestConcurrentMarks(t *testing.T) {
	calls := 0
	s := New(func() { calls++ })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mark()
		}()
	}
	wg.Wait()

	require.True(t, s.Trigger())
	require.False(t, s.Trigger())
	require.Equal(t, 1, calls)
}
