// Package alerting - path.go resolves dot-addressed metric paths.
//
// DESIGN: Rules address metrics by dotted string ("memory.heapUsedPercent").
// Rather than reflecting over structs, the snapshot is flattened into a
// small JSON metric document (sjson) and paths are resolved against it
// (gjson). A missing path is "no value", never an error; the rule simply
// does not fire that cycle.
package alerting

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/perchsec/sentinel/internal/monitoring"
)

// MetricDocument flattens a snapshot into the JSON document rules are
// evaluated against.
func MetricDocument(snap monitoring.SystemMetricsSnapshot) []byte {
	doc := []byte(`{}`)
	set := func(path string, value float64) {
		doc, _ = sjson.SetBytes(doc, path, value)
	}

	set("uptime.seconds", snap.UptimeSeconds)
	set("memory.heapUsedMB", snap.Memory.HeapUsedMB)
	set("memory.heapTotalMB", snap.Memory.HeapTotalMB)
	set("memory.heapUsedPercent", snap.Memory.HeapUsedPercent())
	set("memory.externalMB", snap.Memory.ExternalMB)
	set("cpu.userMs", snap.Memory.CPUUserMs)
	set("cpu.systemMs", snap.Memory.CPUSystemMs)
	set("connections.active", float64(snap.ActiveConnections))
	set("requests.count", float64(snap.RequestCount))
	set("requests.errors", float64(snap.ErrorCount))
	set("requests.avgResponseTime", snap.AvgResponseTime)
	set("requests.errorRate", snap.ErrorRate)
	set("requests.perMinute", float64(snap.RequestsPerMinute))
	set("cache.hitRate", snap.CacheHitRate)
	return doc
}

// ResolveMetric looks up a dot path in a metric document. The second return
// is false when the path is absent or not numeric.
func ResolveMetric(doc []byte, path string) (float64, bool) {
	v := gjson.GetBytes(doc, path)
	if !v.Exists() || v.Type != gjson.Number {
		return 0, false
	}
	return v.Float(), true
}
