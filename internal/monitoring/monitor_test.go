package monitoring_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/perchsec/sentinel/internal/monitoring"
)

func TestMonitor_TickFeedsRefreshHooks(t *testing.T) {
	clock := monitoring.NewManualClock(testStart)
	c := monitoring.NewCollector(10, clock)
	record(c, clock, "/a", 100, 500)

	m := monitoring.NewMonitor(c, monitoring.MonitorConfig{})
	var seen atomic.Int64
	var lastErrorRate atomic.Value
	m.OnRefresh(func(snap monitoring.SystemMetricsSnapshot) {
		seen.Add(1)
		lastErrorRate.Store(snap.ErrorRate)
	})

	m.Tick()
	assert.Equal(t, int64(1), seen.Load())
	assert.Equal(t, 100.0, lastErrorRate.Load())
}

func TestMonitor_TickRecoversPanic(t *testing.T) {
	clock := monitoring.NewManualClock(testStart)
	c := monitoring.NewCollector(10, clock)
	m := monitoring.NewMonitor(c, monitoring.MonitorConfig{})

	// A panicking hook must not unwind past the hooks behind it: every other
	// hook still runs on the same tick, and on every tick after.
	var after atomic.Int64
	m.OnRefresh(func(monitoring.SystemMetricsSnapshot) { panic("boom") })
	m.OnRefresh(func(monitoring.SystemMetricsSnapshot) { after.Add(1) })

	m.Tick()
	assert.Equal(t, int64(1), after.Load())
	m.Tick()
	assert.Equal(t, int64(2), after.Load())
}

func TestMonitor_SweepHookPanicIsolated(t *testing.T) {
	clock := monitoring.NewManualClock(testStart)
	c := monitoring.NewCollector(10, clock)
	m := monitoring.NewMonitor(c, monitoring.MonitorConfig{
		RefreshInterval: time.Hour,
		SweepInterval:   5 * time.Millisecond,
	})

	var swept atomic.Int64
	m.OnSweep(func(time.Time) { panic("boom") })
	m.OnSweep(func(time.Time) { swept.Add(1) })

	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	assert.Greater(t, swept.Load(), int64(0))
}

func TestMonitor_StartStop(t *testing.T) {
	clock := monitoring.NewManualClock(testStart)
	c := monitoring.NewCollector(10, clock)
	m := monitoring.NewMonitor(c, monitoring.MonitorConfig{
		RefreshInterval: 5 * time.Millisecond,
		SweepInterval:   5 * time.Millisecond,
	})

	var refreshes, sweeps atomic.Int64
	m.OnRefresh(func(monitoring.SystemMetricsSnapshot) { refreshes.Add(1) })
	m.OnSweep(func(time.Time) { sweeps.Add(1) })

	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	assert.Greater(t, refreshes.Load(), int64(0))
	assert.Greater(t, sweeps.Load(), int64(0))

	// Stop twice is safe, and no further ticks run after Stop.
	m.Stop()
	stopped := refreshes.Load()
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, stopped, refreshes.Load())
}
