package timer

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ScheduleFires(t *testing.T) {
	m := NewManager(slog.Default())
	defer m.StopAll()

	fired := make(chan struct{})

	m.Schedule("c-1", 10*time.Millisecond, func() { close(fired) })
	assert.True(t, m.Pending("c-1"))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	require.Eventually(t, func() bool {
		return !m.Pending("c-1")
	}, time.Second, 5*time.Millisecond)
}

func TestManager_CancelPreventsFire(t *testing.T) {
	m := NewManager(slog.Default())
	defer m.StopAll()

	var fired atomic.Bool

	m.Schedule("c-1", 20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, m.Cancel("c-1"))
	assert.False(t, m.Pending("c-1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled timer must not fire")
}

func TestManager_CancelUnknownIsNoop(t *testing.T) {
	m := NewManager(slog.Default())

	assert.False(t, m.Cancel("missing"))
}

func TestManager_RescheduleReplacesPendingTimer(t *testing.T) {
	m := NewManager(slog.Default())
	defer m.StopAll()

	var (
		firstFired  atomic.Bool
		secondFired = make(chan struct{})
	)

	m.Schedule("c-1", 20*time.Millisecond, func() { firstFired.Store(true) })
	m.Schedule("c-1", 40*time.Millisecond, func() { close(secondFired) })

	select {
	case <-secondFired:
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}

	assert.False(t, firstFired.Load(), "replaced timer must not fire")
}

func TestManager_OneTimerPerCustomer(t *testing.T) {
	m := NewManager(slog.Default())
	defer m.StopAll()

	var fires atomic.Int32

	for i := 0; i < 10; i++ {
		m.Schedule("c-1", 15*time.Millisecond, func() { fires.Add(1) })
	}

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())
}

func TestManager_StopAll(t *testing.T) {
	m := NewManager(slog.Default())

	var fired atomic.Bool

	m.Schedule("c-1", 20*time.Millisecond, func() { fired.Store(true) })
	m.Schedule("c-2", 20*time.Millisecond, func() { fired.Store(true) })

	m.StopAll()

	assert.False(t, m.Pending("c-1"))
	assert.False(t, m.Pending("c-2"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}
