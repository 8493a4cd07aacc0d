package poller

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStopLifecycle(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var ticks atomic.Int32
	p := New("video", 5*time.Millisecond, func() { ticks.Add(1) }, logger)

	assert.False(t, p.Running())
	require.NoError(t, p.Start())
	assert.True(t, p.Running())

	err := p.Start()
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Stop returns")

	p.Stop()

	require.NoError(t, p.Start(), "a stopped poller can be restarted")
	require.Eventually(t, func() bool { return ticks.Load() > stopped }, time.Second, time.Millisecond)
	p.Stop()
}

func TestFixedDelayBetweenTicks(t *testing.T) {
	logger, _ := test.NewNullLogger()
	const interval = 15 * time.Millisecond

	var (
		mu     sync.Mutex
		starts []time.Time
		ends   []time.Time
	)
	p := New("classify", interval, func() {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	}, logger)

	require.NoError(t, p.Start())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ends) >= 4
	}, 2*time.Second, time.Millisecond)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts) && i <= len(ends); i++ {
		gap := starts[i].Sub(ends[i-1])
		assert.GreaterOrEqual(t, gap, interval, "tick %d started %v after the previous one ended", i, gap)
	}
}

func TestTicksNeverOverlap(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var inFlight, maxInFlight, ticks atomic.Int32

	p := New("warehouse", time.Millisecond, func() {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		ticks.Add(1)
	}, logger)

	require.NoError(t, p.Start())
	require.Eventually(t, func() bool { return ticks.Load() >= 5 }, time.Second, time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	logger, _ := test.NewNullLogger()
	started := make(chan struct{})
	var finished atomic.Bool

	p := New("slow", time.Hour, func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	}, logger)

	require.NoError(t, p.Start())
	<-started
	p.Stop()
	assert.True(t, finished.Load())
}

func TestPanickingTickIsRecovered(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var ticks atomic.Int32

	p := New("flaky", time.Millisecond, func() {
		if ticks.Add(1) == 1 {
			panic("bad frame")
		}
	}, logger)

	require.NoError(t, p.Start())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	p.Stop()

	var panics int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			panics++
			assert.Equal(t, "bad frame", entry.Data["panic"])
		}
	}
	assert.Equal(t, 1, panics)
}
