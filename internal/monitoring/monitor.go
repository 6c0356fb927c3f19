// Package monitoring - monitor.go drives periodic refresh and cleanup.
//
// DESIGN: Two independent tickers with explicit Start/Stop:
//   - refresh tick: takes a metrics snapshot and feeds the registered
//     refresh hooks (rule evaluation lives behind one of these hooks)
//   - sweep tick:   feeds cleanup/persistence hooks (threat window pruning,
//     async profile persistence)
//
// Each hook invocation recovers its own panics; one misbehaving hook can
// neither kill the loop nor starve the hooks registered after it.
package monitoring

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Default tick intervals.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultSweepInterval   = 60 * time.Second
)

// Monitor runs the periodic refresh and sweep loops.
type Monitor struct {
	collector *Collector
	cfg       MonitorConfig

	mu       sync.Mutex
	refresh  []func(SystemMetricsSnapshot)
	sweep    []func(now time.Time)
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor over the given collector. Zero intervals
// fall back to the defaults.
func NewMonitor(collector *Collector, cfg MonitorConfig) *Monitor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Monitor{collector: collector, cfg: cfg}
}

// OnRefresh registers a hook invoked with each periodic metrics snapshot.
// Hooks must be registered before Start.
func (m *Monitor) OnRefresh(hook func(SystemMetricsSnapshot)) {
	m.mu.Lock()
	m.refresh = append(m.refresh, hook)
	m.mu.Unlock()
}

// OnSweep registers a cleanup hook invoked on the sweep interval.
// Hooks must be registered before Start.
func (m *Monitor) OnSweep(hook func(now time.Time)) {
	m.mu.Lock()
	m.sweep = append(m.sweep, hook)
	m.mu.Unlock()
}

// Start launches the periodic loops. Calling Start twice is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	log.Info().
		Dur("refresh_interval", m.cfg.RefreshInterval).
		Dur("sweep_interval", m.cfg.SweepInterval).
		Msg("monitor started")

	m.wg.Add(2)
	go m.refreshLoop()
	go m.sweepLoop()
}

// Stop halts both loops and waits for them to exit. Safe to call twice.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	log.Info().Msg("monitor stopped")
}

// Tick runs one refresh cycle immediately. Used by tests and by on-demand
// administrative refresh.
func (m *Monitor) Tick() {
	m.runRefresh()
}

func (m *Monitor) refreshLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.runRefresh()
		}
	}
}

func (m *Monitor) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.runSweep()
		}
	}
}

func (m *Monitor) runRefresh() {
	snap := m.collector.CurrentSnapshot()
	m.mu.Lock()
	hooks := m.refresh
	m.mu.Unlock()
	for _, hook := range hooks {
		runHook("refresh", func() { hook(snap) })
	}
}

func (m *Monitor) runSweep() {
	now := m.collector.clock.Now()
	m.mu.Lock()
	hooks := m.sweep
	m.mu.Unlock()
	for _, hook := range hooks {
		runHook("sweep", func() { hook(now) })
	}
}

// runHook isolates one hook invocation; a panicking hook must not unwind
// past the hooks registered after it.
func runHook(tick string, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tick", tick).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("monitor hook panicked")
		}
	}()
	hook()
}
