// Package monitoring - metrics.go aggregates samples into system metrics.
//
// DESIGN: The Collector exclusively owns the sample ring and the running
// counters. Producers push completed-request samples and cache outcomes;
// readers take immutable snapshots. Taking a snapshot is pure: rule
// evaluation is driven separately by the Monitor tick, never as a side
// effect of reading metrics.
package monitoring

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TopEndpointLimit caps the top-endpoints ranking in aggregate reports.
const TopEndpointLimit = 10

// sparklinePoints is the target number of memory sparkline points.
const sparklinePoints = 20

// aggregatePeriods maps the supported named windows to durations.
var aggregatePeriods = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// Collector owns the sample store and process-lifetime counters.
// All methods are safe for concurrent use.
type Collector struct {
	store *SampleStore
	clock Clock

	mu            sync.Mutex
	startedAt     time.Time
	requestCount  int64
	errorCount    int64
	durationSumMs float64
	cacheHits     int64
	cacheMisses   int64
	activeConns   int64
}

// NewCollector creates a collector with the given sample capacity.
// A nil clock defaults to the system clock.
func NewCollector(capacity int, clock Clock) *Collector {
	if clock == nil {
		clock = SystemClock()
	}
	return &Collector{
		store:     NewSampleStore(capacity),
		clock:     clock,
		startedAt: clock.Now(),
	}
}

// Observe records a completed request, attaching the timestamp and a
// resource snapshot internally. This is the inbound boundary for
// request-handling collaborators.
func (c *Collector) Observe(endpoint, method string, durationMs float64, statusCode int) {
	res := CaptureResources()
	c.RecordSample(Sample{
		Endpoint:   endpoint,
		Method:     method,
		DurationMs: durationMs,
		StatusCode: statusCode,
		Timestamp:  c.clock.Now(),
		Resources:  &res,
	})
}

// RecordSample stores a pre-built sample and updates the running counters.
func (c *Collector) RecordSample(sample Sample) {
	c.store.Record(sample)

	c.mu.Lock()
	c.requestCount++
	c.durationSumMs += sample.DurationMs
	if sample.StatusCode >= 400 {
		c.errorCount++
	}
	c.mu.Unlock()
}

// RecordCacheHit increments the cache hit counter.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	c.cacheHits++
	c.mu.Unlock()
}

// RecordCacheMiss increments the cache miss counter.
func (c *Collector) RecordCacheMiss() {
	c.mu.Lock()
	c.cacheMisses++
	c.mu.Unlock()
}

// ConnOpened increments the active-connection estimate.
func (c *Collector) ConnOpened() {
	c.mu.Lock()
	c.activeConns++
	c.mu.Unlock()
}

// ConnClosed decrements the active-connection estimate.
func (c *Collector) ConnClosed() {
	c.mu.Lock()
	if c.activeConns > 0 {
		c.activeConns--
	}
	c.mu.Unlock()
}

// CurrentSnapshot computes a point-in-time metrics snapshot from the current
// counters and sample ring. It has no side effects.
func (c *Collector) CurrentSnapshot() SystemMetricsSnapshot {
	now := c.clock.Now()
	perMinute := len(c.store.Snapshot(now.Add(-time.Minute)))

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := SystemMetricsSnapshot{
		Timestamp:         now,
		UptimeSeconds:     now.Sub(c.startedAt).Seconds(),
		Memory:            CaptureResources(),
		ActiveConnections: c.activeConns,
		RequestCount:      c.requestCount,
		ErrorCount:        c.errorCount,
		RequestsPerMinute: perMinute,
	}
	if c.requestCount > 0 {
		snap.AvgResponseTime = c.durationSumMs / float64(c.requestCount)
		snap.ErrorRate = float64(c.errorCount) / float64(c.requestCount) * 100
	}
	if total := c.cacheHits + c.cacheMisses; total > 0 {
		snap.CacheHitRate = float64(c.cacheHits) / float64(total) * 100
	}
	return snap
}

// Aggregate filters stored samples to the named window ("1h", "24h", "7d")
// and summarizes them. Empty windows produce zeroed numbers and empty lists.
func (c *Collector) Aggregate(period string) (AggregateReport, error) {
	window, ok := aggregatePeriods[period]
	if !ok {
		return AggregateReport{}, fmt.Errorf("unknown aggregation period %q", period)
	}

	now := c.clock.Now()
	samples := c.store.Snapshot(now.Add(-window))

	report := AggregateReport{
		Period:          period,
		GeneratedAt:     now,
		TotalRequests:   len(samples),
		TopEndpoints:    []EndpointCount{},
		StatusCodes:     map[int]int{},
		MemorySparkline: []float64{},
	}
	if len(samples) == 0 {
		return report, nil
	}

	var durationSum float64
	var errors int
	counts := map[string]int{}
	var firstSeen []string
	for _, s := range samples {
		durationSum += s.DurationMs
		if s.StatusCode >= 400 {
			errors++
		}
		if _, seen := counts[s.Endpoint]; !seen {
			firstSeen = append(firstSeen, s.Endpoint)
		}
		counts[s.Endpoint]++
		report.StatusCodes[s.StatusCode]++
	}

	report.AvgResponseTime = durationSum / float64(len(samples))
	report.ErrorRate = float64(errors) / float64(len(samples)) * 100
	report.TopEndpoints = topEndpoints(counts, firstSeen)
	report.MemorySparkline = memorySparkline(samples)
	return report, nil
}

// topEndpoints ranks endpoints by count, ties broken by first-seen order.
func topEndpoints(counts map[string]int, firstSeen []string) []EndpointCount {
	ranked := make([]EndpointCount, 0, len(firstSeen))
	for _, ep := range firstSeen {
		ranked = append(ranked, EndpointCount{Endpoint: ep, Count: counts[ep]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > TopEndpointLimit {
		ranked = ranked[:TopEndpointLimit]
	}
	return ranked
}

// memorySparkline samples heap usage at roughly sparklinePoints evenly
// spaced positions; fewer samples yield one point each.
func memorySparkline(samples []Sample) []float64 {
	heap := func(s Sample) float64 {
		if s.Resources == nil {
			return 0
		}
		return s.Resources.HeapUsedMB
	}

	if len(samples) <= sparklinePoints {
		points := make([]float64, 0, len(samples))
		for _, s := range samples {
			points = append(points, heap(s))
		}
		return points
	}

	points := make([]float64, 0, sparklinePoints)
	for i := 0; i < sparklinePoints; i++ {
		points = append(points, heap(samples[i*len(samples)/sparklinePoints]))
	}
	return points
}

// Samples exposes a copy of stored samples since the given time.
func (c *Collector) Samples(since time.Time) []Sample {
	return c.store.Snapshot(since)
}

// Reset zeroes all counters and clears the sample store.
func (c *Collector) Reset() {
	c.store.Clear()

	c.mu.Lock()
	c.requestCount = 0
	c.errorCount = 0
	c.durationSumMs = 0
	c.cacheHits = 0
	c.cacheMisses = 0
	c.mu.Unlock()
}
