// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by the alerting, threat, notify and server
// packages. Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - Severity:              Ordinal classification shared by alerts and threats
//   - Sample:                One completed request observation
//   - SystemMetricsSnapshot: Point-in-time derived metrics
//   - AggregateReport:       Windowed aggregation result
//   - Config types:          LoggerConfig, MonitorConfig
package monitoring

import "time"

// =============================================================================
// SEVERITY - Shared by alert rules and threat profiles
// =============================================================================

// Severity classifies alerts and threat profiles, low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of the severity, with critical highest.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// =============================================================================
// SAMPLES - Raw request observations
// =============================================================================

// ResourceSnapshot captures process resource usage at sample time.
type ResourceSnapshot struct {
	HeapUsedMB  float64 `json:"heapUsedMB"`
	HeapTotalMB float64 `json:"heapTotalMB"`
	ExternalMB  float64 `json:"externalMB"`
	CPUUserMs   float64 `json:"cpuUserMs"`
	CPUSystemMs float64 `json:"cpuSystemMs"`
}

// HeapUsedPercent returns heap usage as a percentage of heap total,
// or 0 when the heap total is unknown.
func (r ResourceSnapshot) HeapUsedPercent() float64 {
	if r.HeapTotalMB <= 0 {
		return 0
	}
	return r.HeapUsedMB / r.HeapTotalMB * 100
}

// Sample is one completed request observation. Immutable once created.
type Sample struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	DurationMs float64           `json:"durationMs"`
	StatusCode int               `json:"statusCode"`
	Timestamp  time.Time         `json:"timestamp"`
	Resources  *ResourceSnapshot `json:"resources,omitempty"`
}

// =============================================================================
// DERIVED METRICS
// =============================================================================

// SystemMetricsSnapshot is a point-in-time derived read of system metrics.
// Produced on demand by the Collector; never mutated after creation.
type SystemMetricsSnapshot struct {
	Timestamp         time.Time        `json:"timestamp"`
	UptimeSeconds     float64          `json:"uptimeSeconds"`
	Memory            ResourceSnapshot `json:"memory"`
	ActiveConnections int64            `json:"activeConnections"`
	RequestCount      int64            `json:"requestCount"`
	ErrorCount        int64            `json:"errorCount"`
	AvgResponseTime   float64          `json:"avgResponseTime"`
	ErrorRate         float64          `json:"errorRate"`
	CacheHitRate      float64          `json:"cacheHitRate"`
	RequestsPerMinute int              `json:"requestsPerMinute"`
}

// EndpointCount is one entry of a top-endpoints ranking.
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

// AggregateReport is the result of aggregating samples over a named window.
// Empty windows yield zeroed numbers and empty (non-nil) collections.
type AggregateReport struct {
	Period          string          `json:"period"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	TotalRequests   int             `json:"totalRequests"`
	AvgResponseTime float64         `json:"avgResponseTime"`
	ErrorRate       float64         `json:"errorRate"`
	TopEndpoints    []EndpointCount `json:"topEndpoints"`
	StatusCodes     map[int]int     `json:"statusCodes"`
	MemorySparkline []float64       `json:"memorySparkline"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// MonitorConfig contains periodic monitor settings.
type MonitorConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // snapshot + rule evaluation tick
	SweepInterval   time.Duration `yaml:"sweep_interval"`   // cleanup + persistence tick
}
