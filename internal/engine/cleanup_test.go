package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupLoop_RunsOnInterval(t *testing.T) {
	var calls int32
	loop := NewCleanupLoop(10*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	loop.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	loop.Stop()

	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestCleanupLoop_StopPreventsFurtherRuns(t *testing.T) {
	var calls int32
	loop := NewCleanupLoop(10*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	loop.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	loop.Stop()
	after := atomic.LoadInt32(&calls)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestCleanupLoop_PanicInFuncDoesNotKillLoop(t *testing.T) {
	var calls int32
	loop := NewCleanupLoop(10*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	})

	loop.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	loop.Stop()

	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}
